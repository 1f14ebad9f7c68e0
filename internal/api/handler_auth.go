package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parkspot-backend/internal/mw"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
		return
	}

	p, err := h.auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": p.UserID,
		"name":    p.Name,
		"email":   p.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	p, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"user_id": p.UserID,
			"name":    p.Name,
			"email":   p.Email,
		},
	})
}

// Logout handles POST /api/auth/logout. It revokes the presented token
// and drops the caller's live position; it always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if id, ok := mw.IdentityFrom(c); ok {
		h.tracker.Forget(id.UserID)
	}
	h.auth.Logout(mw.BearerToken(c))
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me, returning the stored profile for the
// authenticated user.
func (h *Handler) Me(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	p, err := h.store.ProfileByID(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": p.UserID,
		"name":    p.Name,
		"email":   p.Email,
	})
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// UpdateProfile handles PUT /api/auth/profile. On success the response
// carries a fresh token so the session identity matches the store.
func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	p, token, err := h.auth.UpdateProfile(c.Request.Context(), id.UserID, req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"user_id": p.UserID,
			"name":    p.Name,
			"email":   p.Email,
		},
	})
}
