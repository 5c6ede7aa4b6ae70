package webservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/ir"
)

const (
	// Usage is the component usage key of webservice adapters.
	Usage = "webservice.request"

	// ConstraintProtocol narrows adapters to a webservice protocol.
	ConstraintProtocol = "webservice_protocol"
)

// Request is one call to a webservice.
type Request struct {
	// Params fill {name} placeholders of the webservice URL.
	Params map[string]string
	// Headers are merged over the defaults.
	Headers map[string]string
	// Auth overrides the webservice credentials.
	Auth *BasicAuth
	// ContentType overrides the webservice content type.
	ContentType string
	Body        []byte
}

// BasicAuth holds HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Adapter performs requests against a configured webservice.
type Adapter interface {
	Request(ctx context.Context, cfg ir.WebserviceConfig, method string, req Request) ([]byte, error)
}

// StatusError is returned when the webservice answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// HTTPAdapter talks to http and https webservices.
type HTTPAdapter struct {
	Client *http.Client
	Logger *slog.Logger
}

// NewHTTPAdapter creates an adapter using client, or http.DefaultClient when nil.
func NewHTTPAdapter(client *http.Client, logger *slog.Logger) *HTTPAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAdapter{Client: client, Logger: logger}
}

// Request sends req to the webservice and returns the response body.
func (a *HTTPAdapter) Request(ctx context.Context, cfg ir.WebserviceConfig, method string, req Request) ([]byte, error) {
	target, err := FormatURL(cfg.URL, req.Params)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = cfg.ContentType
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	switch {
	case req.Auth != nil:
		httpReq.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	case cfg.Username != "" && cfg.Password != "":
		httpReq.SetBasicAuth(cfg.Username, cfg.Password)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger().Debug("webservice request",
		"webservice", cfg.Code,
		"method", httpReq.Method,
		"url", target,
		"status", resp.StatusCode,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     httpReq.Method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}
	return respBody, nil
}

// Get sends a GET request.
func (a *HTTPAdapter) Get(ctx context.Context, cfg ir.WebserviceConfig, req Request) ([]byte, error) {
	return a.Request(ctx, cfg, http.MethodGet, req)
}

// Post sends a POST request.
func (a *HTTPAdapter) Post(ctx context.Context, cfg ir.WebserviceConfig, req Request) ([]byte, error) {
	return a.Request(ctx, cfg, http.MethodPost, req)
}

// Put sends a PUT request.
func (a *HTTPAdapter) Put(ctx context.Context, cfg ir.WebserviceConfig, req Request) ([]byte, error) {
	return a.Request(ctx, cfg, http.MethodPut, req)
}

func (a *HTTPAdapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// FormatURL replaces {name} placeholders in raw with params.
// A placeholder without a value is an error.
func FormatURL(raw string, params map[string]string) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(raw, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := params[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("missing url parameter %q for %s", missing, raw)
	}
	return out, nil
}

// Register adds the HTTP adapter for the http and https protocols.
func Register(reg *component.Registry, a *HTTPAdapter) error {
	for _, protocol := range []string{"http", "https"} {
		err := reg.Register(component.Component{
			Name:  "webservice.requests." + protocol,
			Usage: []string{Usage},
			Match: map[string]string{ConstraintProtocol: protocol},
			Impl:  a,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Call resolves the adapter for cfg.Protocol and performs the request.
func Call(ctx context.Context, reg *component.Registry, cfg ir.WebserviceConfig, method string, req Request) ([]byte, error) {
	adapter, _, err := component.Resolve[Adapter](reg, component.Query{
		Usage:       Usage,
		Constraints: map[string]string{ConstraintProtocol: cfg.Protocol},
	})
	if err != nil {
		return nil, fmt.Errorf("webservice %q: %w", cfg.Code, err)
	}
	return adapter.Request(ctx, cfg, method, req)
}
