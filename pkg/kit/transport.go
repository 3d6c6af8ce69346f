package kit

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ClientTransport is the RoundTripper shared by every outbound API client.
// It asks for JSON, accepts brotli-compressed bodies and records metrics.
type ClientTransport struct {
	Name    string
	Base    http.RoundTripper
	Metrics *ClientMetrics
}

// NewClientTransport returns the instrumented transport chain. A nil base
// uses http.DefaultTransport.
func NewClientTransport(name string, base http.RoundTripper, m *ClientMetrics) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(&ClientTransport{Name: name, Base: base, Metrics: m})
}

func (t *ClientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Accept-Encoding", "br")

	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		t.Metrics.observe(t.Name, req.Method, 0, err, time.Since(start))
		return nil, err
	}
	t.Metrics.observe(t.Name, req.Method, resp.StatusCode, nil, time.Since(start))

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), Closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Uncompressed = true
	}
	return resp, nil
}

type decodedBody struct {
	io.Reader
	io.Closer
}
