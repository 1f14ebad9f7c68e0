package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parkspot-backend/internal/apperr"
	"parkspot-backend/internal/model"
	"parkspot-backend/internal/mw"
)

type saveRecordRequest struct {
	Level      string   `json:"level" binding:"required"`
	SlotNumber string   `json:"slot_number" binding:"required"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Elevation  *float64 `json:"elevation"`
}

// SaveRecord handles POST /api/records. Coordinates default to the
// caller's last reported position when the body omits them.
func (h *Handler) SaveRecord(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req saveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level and slot_number are required"})
		return
	}
	if strings.TrimSpace(req.Level) == "" || strings.TrimSpace(req.SlotNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level and slot_number must not be blank"})
		return
	}

	rec := model.ParkingRecord{
		ID:         uuid.NewString(),
		UserID:     id.UserID,
		Level:      strings.TrimSpace(req.Level),
		SlotNumber: strings.TrimSpace(req.SlotNumber),
		CreatedAt:  time.Now().UTC(),
	}

	switch {
	case req.Latitude != nil && req.Longitude != nil:
		rec.Latitude = *req.Latitude
		rec.Longitude = *req.Longitude
		if req.Elevation != nil {
			rec.Elevation = *req.Elevation
		}
	default:
		// No explicit coordinates: fall back to the caller's last
		// reported position.
		pos, ok := h.tracker.Latest(id.UserID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no position available; report a location or supply coordinates"})
			return
		}
		rec.Latitude = pos.Latitude
		rec.Longitude = pos.Longitude
		rec.Elevation = pos.Elevation
	}

	if err := h.store.SaveRecord(c.Request.Context(), &rec); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// ListRecords handles GET /api/records: all of the caller's records,
// most recent first. Never cached; every call round-trips to the store.
func (h *Handler) ListRecords(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	records, err := h.store.ListRecords(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	if records == nil {
		records = []model.ParkingRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetRecord handles GET /api/records/:id.
func (h *Handler) GetRecord(c *gin.Context) {
	rec, ok := h.ownedRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

// MarkDeparted handles POST /api/records/:id/departure. The transition
// is one-way; repeating it returns the record unchanged.
func (h *Handler) MarkDeparted(c *gin.Context) {
	if _, ok := h.ownedRecord(c); !ok {
		return
	}

	rec, err := h.store.MarkDeparted(c.Request.Context(), c.Param("id"), time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/:id.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if _, ok := h.ownedRecord(c); !ok {
		return
	}

	if err := h.store.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ownedRecord fetches the :id record and enforces that it belongs to
// the caller. On failure it writes the response itself.
func (h *Handler) ownedRecord(c *gin.Context) (*model.ParkingRecord, bool) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}

	rec, err := h.store.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if rec.UserID != id.UserID {
		writeError(c, apperr.PermissionDenied("record belongs to another user"))
		return nil, false
	}
	return rec, true
}
