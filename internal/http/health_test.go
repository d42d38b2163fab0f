package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhasnaCharumee/BookMate/internal/database"
)

func TestHealthController_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy with database", func(t *testing.T) {
		dbPath := "./test_health_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
		db, err := database.NewDatabase(dbPath)
		require.NoError(t, err)
		defer func() {
			db.Close()
			os.Remove(dbPath)
		}()

		controller := NewHealthController(db, "test")
		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "ok", response.Checks["database"])
	})

	t.Run("reports missing database", func(t *testing.T) {
		controller := NewHealthController(nil, "test")
		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "not configured", response.Checks["database"])
	})
}
