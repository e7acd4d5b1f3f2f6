package http

import (
	"net/http"

	"github.com/dfryer1193/rhyon/api"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// PushHandler consumes verified push events.
type PushHandler interface {
	HandlePushEvent(evt *github.PushEvent) error
}

type WebhookHandler struct {
	webhookSecret []byte
	pushHandler   PushHandler
}

func NewWebhookHandler(secret string, pushHandler PushHandler) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: []byte(secret),
		pushHandler:   pushHandler,
	}
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook/git", h.HandleGitWebhook)
}

// HandleGitWebhook verifies the payload signature and hands push events to the
// sync. Other event types are acknowledged and ignored.
func (h *WebhookHandler) HandleGitWebhook(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook payload")
		abort(c, http.StatusBadRequest, "Invalid payload")
		return
	}

	eventType := github.WebHookType(c.Request)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		abort(c, http.StatusBadRequest, "Invalid event")
		return
	}

	switch evt := event.(type) {
	case *github.PushEvent:
		err = h.pushHandler.HandlePushEvent(evt)
	default:
		log.Debug().Str("event", eventType).Msg("Ignoring webhook event")
	}
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Error handling webhook event")
		abort(c, http.StatusInternalServerError, "Error handling event")
		return
	}

	c.Status(http.StatusNoContent)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
