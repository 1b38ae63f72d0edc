package engine

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArtifactDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>home</html>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.css"), []byte("body{}"), 0644))

	return dir
}

func TestStatic_Prepare(t *testing.T) {
	s := NewStatic(newArtifactDir(t))
	assert.NoError(t, s.Prepare(context.Background()))
}

func TestStatic_Prepare_MissingDirectory(t *testing.T) {
	s := NewStatic(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, s.Prepare(context.Background()))
}

func TestStatic_Prepare_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "artifact")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	s := NewStatic(file)
	assert.Error(t, s.Prepare(context.Background()))
}

func TestStatic_Render_IndexFallback(t *testing.T) {
	s := NewStatic(newArtifactDir(t))

	resp, err := s.Render(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<html>home</html>", string(body))
}

func TestStatic_Render_Asset(t *testing.T) {
	s := NewStatic(newArtifactDir(t))

	resp, err := s.Render(context.Background(), &Request{Method: http.MethodGet, Path: "/assets/app.css"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestStatic_Render_NotFound(t *testing.T) {
	s := NewStatic(newArtifactDir(t))

	resp, err := s.Render(context.Background(), &Request{Method: http.MethodGet, Path: "/missing"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestStatic_Render_MethodNotAllowed(t *testing.T) {
	s := NewStatic(newArtifactDir(t))

	resp, err := s.Render(context.Background(), &Request{Method: http.MethodPost, Path: "/"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
}

func TestStatic_Render_TraversalConfined(t *testing.T) {
	dir := newArtifactDir(t)
	// Place a file next to the artifact dir that must stay unreachable.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret"), []byte("s"), 0644))

	s := NewStatic(dir)

	resp, err := s.Render(context.Background(), &Request{Method: http.MethodGet, Path: "/../secret"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFunc_Adapter(t *testing.T) {
	called := false
	f := Func(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{Status: http.StatusOK}, nil
	})

	require.NoError(t, f.Prepare(context.Background()))

	resp, err := f.Render(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, resp.Status)
}
