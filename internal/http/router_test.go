package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_CoversWithAbsoluteBaseURL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "front.jpg"), []byte("jpeg"), 0o644))

	// An absolute base URL must not become a gin route; the files stay
	// reachable under /covers so local serving keeps working.
	router := NewRouter(RouterConfig{
		CoversDir: dir,
		CoversURL: "https://cdn.example.com/covers",
		Version:   "test",
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/covers/front.jpg", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
}

func TestNewRouter_CoversRelativeBaseURL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "back.jpg"), []byte("jpeg"), 0o644))

	router := NewRouter(RouterConfig{
		CoversDir: dir,
		CoversURL: "/covers",
		Version:   "test",
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/covers/back.jpg", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
