package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parkspot-backend/internal/location"
	"parkspot-backend/internal/mw"
)

type reportLocationRequest struct {
	// Pointers so a legitimate 0 coordinate is not mistaken for a
	// missing field.
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Elevation *float64 `json:"elevation"`
}

// ReportLocation handles POST /api/location. Each report replaces the
// caller's previous position; a missing elevation is treated as 0.
func (h *Handler) ReportLocation(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req reportLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	pos := location.Position{
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		ObservedAt: time.Now().UTC(),
	}
	if req.Elevation != nil {
		pos.Elevation = *req.Elevation
	}

	h.tracker.Publish(id.UserID, pos)
	c.JSON(http.StatusAccepted, pos)
}

// LatestLocation handles GET /api/location.
func (h *Handler) LatestLocation(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	pos, ok := h.tracker.Latest(id.UserID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position reported yet"})
		return
	}
	c.JSON(http.StatusOK, pos)
}

// StreamLocation handles GET /api/location/stream as server-sent
// events. The subscription is released when the client disconnects.
func (h *Handler) StreamLocation(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	updates, stop := h.tracker.Subscribe(c.Request.Context(), id.UserID)
	defer stop()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case pos, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("position", pos)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
