// Package httprequest provides the http_request step executor: an outbound
// HTTP call with the response captured into the variable store. Every URL goes
// through the SSRF screen first.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/variables"
)

const (
	defaultOutputVariable = "httpResponse"
	defaultTimeout        = 30 * time.Second
	maxTimeout            = 120 * time.Second

	// maxResponseBytes bounds how much of a response body is kept.
	maxResponseBytes = 1 << 20
)

var (
	// ErrURLMissing is returned when the config has no url.
	ErrURLMissing = errors.New("missing 'url' in configuration")

	// ErrURLRejected is returned when the URL fails the security screen.
	ErrURLRejected = errors.New("url rejected by security validation")

	// ErrUnsupportedMethod is returned for a method outside GET, POST, PUT,
	// DELETE.
	ErrUnsupportedMethod = errors.New("unsupported http method")
)

// Executor performs one HTTP request.
type Executor struct {
	URL            string
	Method         string
	Headers        map[string]string
	Body           string
	Timeout        time.Duration
	OutputVariable string

	client *http.Client
}

// NewExecutor builds the executor from an interpolated config.
func NewExecutor(config map[string]any) (*Executor, error) {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, ErrURLMissing
	}

	rawMethod, _ := config["method"].(string)

	method := strings.ToUpper(strings.TrimSpace(rawMethod))
	if method == "" {
		method = http.MethodGet
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%q: %w", method, ErrUnsupportedMethod)
	}

	headers := make(map[string]string)

	if rawHeaders, ok := config["headers"].(map[string]any); ok {
		for name, value := range rawHeaders {
			headers[name] = variables.Stringify(value)
		}
	}

	timeout := defaultTimeout

	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	body, _ := config["body"].(string)

	outputVariable, _ := config["output_variable"].(string)
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &Executor{
		URL:            rawURL,
		Method:         method,
		Headers:        headers,
		Body:           body,
		Timeout:        timeout,
		OutputVariable: outputVariable,
		client:         &http.Client{},
	}, nil
}

// Execute screens the URL, performs the request and stores the captured
// response. Timeouts come back wrapped in protocol.ErrTimeout.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "http_request_executor", "method", e.Method)

	checked := security.ValidateURL(e.URL)
	if !checked.IsValid {
		return nil, fmt.Errorf("%s: %w", strings.Join(checked.Errors, "; "), ErrURLRejected)
	}

	requestCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if e.Body != "" {
		bodyReader = strings.NewReader(e.Body)
	}

	request, err := http.NewRequestWithContext(requestCtx, e.Method, checked.Sanitized, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for name, value := range e.Headers {
		request.Header.Set(name, value)
	}

	if e.Body != "" && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()

	response, err := e.client.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("request to %s after %v: %w", checked.Sanitized, e.Timeout, protocol.ErrTimeout)
		}

		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	rawBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	captured := map[string]any{
		"status":      response.StatusCode,
		"body":        string(rawBody),
		"headers":     flattenHeaders(response.Header),
		"duration_ms": time.Since(started).Milliseconds(),
	}

	// JSON responses are stored decoded so later steps can path into them.
	if strings.Contains(response.Header.Get("Content-Type"), "application/json") {
		var decoded any
		if json.Unmarshal(rawBody, &decoded) == nil {
			captured["json"] = decoded
		}
	}

	err = execCtx.Vars.Set(ctx, e.OutputVariable, captured, variables.SourceAutomation, variables.ScopeExecution)
	if err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	logger.DebugContext(ctx, "HTTP request completed", "status", response.StatusCode, "url", checked.Sanitized)

	return captured, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	flattened := make(map[string]string, len(headers))

	for name := range headers {
		flattened[name] = headers.Get(name)
	}

	return flattened
}

// Factory creates http_request executors.
type Factory struct{}

// NewFactory returns the http_request executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeHTTPRequest
}
