package reporter

import (
	"context"
	"strings"
	"time"

	"plant_monitor/internal/logger"

	"github.com/go-resty/resty/v2"
)

// HTTPConfig configures the external push API. Empty BaseURL disables it.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxInFlight int
}

// HTTPReporter posts JSON payloads to <BaseURL>/<kind>.
type HTTPReporter struct {
	*dispatcher
	client *resty.Client
}

func NewHTTP(cfg HTTPConfig, log *logger.Logger) *HTTPReporter {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	r := &HTTPReporter{client: client}
	r.dispatcher = newDispatcher("http", r.send, cfg.Timeout, cfg.MaxInFlight, log)
	return r
}

func (r *HTTPReporter) send(ctx context.Context, kind Kind, payload any) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/" + string(kind))
	if err != nil {
		return &ReporterError{Kind: kind, Err: err}
	}
	if !resp.IsSuccess() {
		return &ReporterError{Kind: kind, Status: resp.StatusCode()}
	}
	return nil
}

// Close waits for in-flight pushes; they are cancelled first.
func (r *HTTPReporter) Close() error {
	r.dispatcher.close()
	return nil
}
