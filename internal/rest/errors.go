package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/rhyon/api"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError writes the {code, message} body for err. Client errors carry
// their own message; anything that maps to 5xx is logged and answered generically.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperr.StatusCode(err)
	message := err.Error()

	var httpErr apperr.HTTPError
	if status >= http.StatusInternalServerError || !errors.As(err, &httpErr) {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		message = http.StatusText(status)
	}

	c.AbortWithStatusJSON(status, api.ErrorResponse{
		Code:    status,
		Message: message,
	})
}

func respond[T any](c *gin.Context, status int, data T) {
	c.JSON(status, api.Response[T]{
		Code: status,
		Data: data,
	})
}
