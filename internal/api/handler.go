package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"parkspot-backend/internal/apperr"
	"parkspot-backend/internal/auth"
	"parkspot-backend/internal/location"
	"parkspot-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	auth    *auth.Service
	tracker *location.Tracker
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, a *auth.Service, t *location.Tracker, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		auth:    a,
		tracker: t,
		webpush: webpushOptions,
	}
}

// writeError converts a service error into an HTTP response. Every
// error reaching this point becomes a user-visible notice; nothing is
// retried.
func writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case apperr.IsConflict(err):
		status = http.StatusConflict
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.KindOf(err) == apperr.KindAuth:
		status = http.StatusUnauthorized
	case apperr.KindOf(err) == apperr.KindPermissionDenied:
		status = http.StatusForbidden
	}
	if status == http.StatusBadGateway {
		log.Printf("store request failed: %v", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": userMessage(err)})
}

func userMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "request failed, please try again"
}
