// Package webhook provides the webhook step executor: a fire-and-report HTTP
// call that, unlike http_request, does not capture the response into the
// variable store.
package webhook

import (
	"context"
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

const requestTimeout = 30 * time.Second

var (
	// ErrURLMissing is returned when the config has no url.
	ErrURLMissing = errors.New("missing 'url' in configuration")

	// ErrURLRejected is returned when the URL fails the security screen.
	ErrURLRejected = errors.New("url rejected by security validation")
)

// Executor delivers one webhook call.
type Executor struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string

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
		method = http.MethodPost
	}

	headers := make(map[string]string)

	if rawHeaders, ok := config["headers"].(map[string]any); ok {
		for name, value := range rawHeaders {
			headers[name] = variables.Stringify(value)
		}
	}

	body, _ := config["body"].(string)

	return &Executor{
		URL:     rawURL,
		Method:  method,
		Headers: headers,
		Body:    body,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// Execute screens the URL and delivers the call. Non-2xx statuses are
// failures.
func (e *Executor) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	checked := security.ValidateURL(e.URL)
	if !checked.IsValid {
		return nil, fmt.Errorf("%s: %w", strings.Join(checked.Errors, "; "), ErrURLRejected)
	}

	var bodyReader io.Reader
	if e.Body != "" {
		bodyReader = strings.NewReader(e.Body)
	}

	request, err := http.NewRequestWithContext(ctx, e.Method, checked.Sanitized, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for name, value := range e.Headers {
		request.Header.Set(name, value)
	}

	if e.Body != "" && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := e.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 1<<16))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d", response.StatusCode)
	}

	logger.DebugContext(ctx, "Webhook delivered", "module", "webhook_executor", "status", response.StatusCode)

	return map[string]any{"status": response.StatusCode, "url": checked.Sanitized}, nil
}

// Factory creates webhook executors.
type Factory struct{}

// NewFactory returns the webhook executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds an executor from config.
func (f *Factory) Create(config map[string]any) (protocol.Executor, error) {
	return NewExecutor(config)
}

// ID returns the step type tag.
func (f *Factory) ID() string {
	return models.StepTypeWebhook
}
