// Package engine defines the rendering delegate consumed by the server core.
// The server does not know how responses are produced; it hands every request
// to an Engine and writes back whatever descriptor comes out.
package engine

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request is the normalized request handed to the engine.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
}

// Response describes what the server writes back to the transport: status,
// headers, and body, verbatim.
type Response struct {
	Status int
	Header http.Header
	Body   io.Reader
}

// Engine turns a normalized request into a response descriptor.
type Engine interface {
	// Prepare performs one-time warm-up, such as loading compiled build
	// artifacts. It must complete before any connection is accepted;
	// failure is fatal to process startup.
	Prepare(ctx context.Context) error

	// Render produces a response for one request. It may perform arbitrary
	// asynchronous work. A returned error is contained to that request.
	Render(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to an Engine with a no-op Prepare.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Prepare implements Engine.
func (f Func) Prepare(ctx context.Context) error { return nil }

// Render implements Engine.
func (f Func) Render(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
