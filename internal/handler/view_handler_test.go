package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcapi-client/internal/guard"
)

func TestMountViews(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	r := chi.NewRouter()
	MountViews(r, dir)

	for _, route := range guard.Routes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, route.Path, nil))
		assert.Equal(t, http.StatusOK, w.Code, route.Path)
		assert.Contains(t, w.Body.String(), "shell", route.Path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/not-a-view", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMountViews_MissingShell(t *testing.T) {
	r := chi.NewRouter()
	MountViews(r, t.TempDir())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/interview", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	w := httptest.NewRecorder()
	Assets(dir).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())
}
