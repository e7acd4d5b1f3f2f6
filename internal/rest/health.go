package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dfryer1193/rhyon/api"
	"github.com/dfryer1193/rhyon/shared/db"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	database db.Pinger
}

func NewHealthHandler(database db.Pinger) *HealthHandler {
	return &HealthHandler{
		database: database,
	}
}

// Check answers 200 when the database responds to a ping and 503 otherwise.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.database.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Code:    http.StatusServiceUnavailable,
			Message: "database unavailable",
		})
		return
	}

	respond(c, http.StatusOK, api.HealthResponse{Status: "ok"})
}
