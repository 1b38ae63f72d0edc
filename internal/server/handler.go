package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-render-host/internal/engine"
	"github.com/sirosfoundation/go-render-host/pkg/middleware"
)

// trackInFlight registers the request with the tracker before the engine runs
// and deregisters it exactly once on every exit path, panics included.
func (m *Manager) trackInFlight() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.tracker.Enter()
		defer m.tracker.Exit()

		c.Next()
	}
}

// dispatch hands one request to the engine and writes its descriptor back to
// the transport. An engine failure is contained to this request: the caller
// gets a generic 500 and the process keeps serving.
func (m *Manager) dispatch(c *gin.Context) {
	req := &engine.Request{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		Query:      c.Request.URL.Query(),
		Header:     c.Request.Header,
		Body:       c.Request.Body,
		RemoteAddr: c.Request.RemoteAddr,
	}

	resp, err := m.eng.Render(c.Request.Context(), req)
	if err != nil {
		m.logger.Error("Render failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if closer, ok := resp.Body.(io.Closer); ok {
		defer closer.Close()
	}

	header := c.Writer.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}

	c.Status(resp.Status)
	if resp.Body == nil {
		c.Writer.WriteHeaderNow()
		return
	}

	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// The client is gone mid-write; there is nobody left to tell.
		m.logger.Warn("Response write failed",
			zap.String("path", req.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	}
}
