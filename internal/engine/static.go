package engine

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Static serves a directory of prepared build artifacts. It is the default
// engine wired by the server binary and stands in for an external renderer.
type Static struct {
	dir string
}

// NewStatic creates a Static engine rooted at dir.
func NewStatic(dir string) *Static {
	return &Static{dir: dir}
}

// Prepare verifies the artifact directory exists and is readable. A missing
// or unreadable directory indicates a broken deployment and aborts startup.
func (s *Static) Prepare(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("artifact directory %q: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("artifact path %q is not a directory", s.dir)
	}
	return nil
}

// Render maps the request path onto the artifact directory. Directory
// requests fall back to index.html.
func (s *Static) Render(ctx context.Context, req *Request) (*Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return textResponse(http.StatusMethodNotAllowed, "Method Not Allowed"), nil
	}

	name, err := s.resolve(req.Path)
	if err != nil {
		return textResponse(http.StatusNotFound, "Not Found"), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return textResponse(http.StatusNotFound, "Not Found"), nil
		}
		return nil, fmt.Errorf("read artifact %q: %w", name, err)
	}

	header := http.Header{}
	header.Set("Content-Type", contentType(name))

	return &Response{
		Status: http.StatusOK,
		Header: header,
		Body:   bytes.NewReader(data),
	}, nil
}

// resolve cleans the request path and confines it to the artifact directory.
func (s *Static) resolve(reqPath string) (string, error) {
	clean := path.Clean("/" + reqPath)

	name := filepath.Join(s.dir, filepath.FromSlash(clean))
	info, err := os.Stat(name)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
	}
	return name, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func textResponse(status int, body string) *Response {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &Response{
		Status: status,
		Header: header,
		Body:   strings.NewReader(body),
	}
}
