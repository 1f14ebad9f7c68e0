package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parkspot-backend/config"
	"parkspot-backend/internal/api"
	"parkspot-backend/internal/auth"
	"parkspot-backend/internal/db"
	"parkspot-backend/internal/location"
	"parkspot-backend/internal/store"
)

type recordJSON struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Level      string     `json:"level"`
	SlotNumber string     `json:"slot_number"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Elevation  float64    `json:"elevation"`
	CreatedAt  time.Time  `json:"created_at"`
	LeftAt     *time.Time `json:"left_at"`
}

// TestParkingLifecycle walks the whole user journey over HTTP: sign up,
// log in, report a position, save a spot, review it, mark it departed
// and finally delete it.
func TestParkingLifecycle(t *testing.T) {
	// --- Test Setup ---
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	appStore := store.NewGormStore(testDB)
	authSvc := auth.NewService(appStore, &config.AuthConfig{
		JWTSecret:  "integration-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	tracker := location.NewTracker()
	router := api.NewRouter(&config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 60,
	}, appStore, authSvc, tracker, nil)

	call := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	var token string
	var recordID string

	t.Run("signup and login", func(t *testing.T) {
		w := call("POST", "/api/auth/signup", "", gin.H{
			"name": "Ada", "email": "ada@example.com", "password": "deadbeef",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = call("POST", "/api/auth/login", "", gin.H{
			"email": "ada@example.com", "password": "deadbeef",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Token string `json:"token"`
			User  struct {
				UserID string `json:"user_id"`
				Name   string `json:"name"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)
		assert.Equal(t, "Ada", resp.User.Name)
		token = resp.Token
	})

	t.Run("save from tracked position", func(t *testing.T) {
		w := call("POST", "/api/location", token, gin.H{
			"latitude": 1.2345, "longitude": 3.4567, "elevation": 10.0,
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		w = call("POST", "/api/records", token, gin.H{
			"level": "2", "slot_number": "47",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var rec recordJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, "2", rec.Level)
		assert.Equal(t, "47", rec.SlotNumber)
		assert.Equal(t, 1.2345, rec.Latitude)
		assert.Equal(t, 3.4567, rec.Longitude)
		assert.Equal(t, 10.0, rec.Elevation)
		assert.Nil(t, rec.LeftAt)
		recordID = rec.ID
	})

	t.Run("listing shows the new record", func(t *testing.T) {
		w := call("GET", "/api/records", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var records []recordJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, recordID, records[0].ID)
		assert.Nil(t, records[0].LeftAt)
	})

	t.Run("mark departed is one-way", func(t *testing.T) {
		w := call("POST", "/api/records/"+recordID+"/departure", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var rec recordJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		require.NotNil(t, rec.LeftAt)
		leftAt := *rec.LeftAt

		// All other fields are unchanged.
		assert.Equal(t, "2", rec.Level)
		assert.Equal(t, "47", rec.SlotNumber)
		assert.Equal(t, 1.2345, rec.Latitude)

		// Repeating the call leaves the timestamp alone.
		w = call("POST", "/api/records/"+recordID+"/departure", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		require.NotNil(t, rec.LeftAt)
		assert.True(t, leftAt.Equal(*rec.LeftAt))
	})

	t.Run("delete removes the record", func(t *testing.T) {
		w := call("DELETE", "/api/records/"+recordID, token, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = call("GET", "/api/records", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var records []recordJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
		assert.Empty(t, records)
	})

	t.Run("profile update carries into session", func(t *testing.T) {
		w := call("PUT", "/api/auth/profile", token, gin.H{
			"name": "Ada L", "email": "ada.l@example.com",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)
		token = resp.Token

		w = call("GET", "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Ada L")
		assert.Contains(t, w.Body.String(), "ada.l@example.com")
	})

	t.Run("logout ends the session", func(t *testing.T) {
		w := call("POST", "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = call("GET", "/api/records", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// TestListOrderingOverHTTP verifies newest-first ordering end to end.
func TestListOrderingOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	appStore := store.NewGormStore(testDB)
	authSvc := auth.NewService(appStore, &config.AuthConfig{
		JWTSecret:  "integration-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	router := api.NewRouter(&config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 60,
	}, appStore, authSvc, location.NewTracker(), nil)

	call := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := call("POST", "/api/auth/signup", "", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = call("POST", "/api/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	var ids []string
	for _, slot := range []string{"1", "2", "3"} {
		w := call("POST", "/api/records", login.Token, gin.H{
			"level": "1", "slot_number": slot, "latitude": 1.0, "longitude": 2.0,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var rec recordJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		ids = append(ids, rec.ID)
		// CreatedAt carries sub-second precision, a strict ordering
		// needs distinct timestamps.
		time.Sleep(5 * time.Millisecond)
	}

	w = call("GET", "/api/records", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []recordJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, ids[2], records[0].ID)
	assert.Equal(t, ids[1], records[1].ID)
	assert.Equal(t, ids[0], records[2].ID)
}
