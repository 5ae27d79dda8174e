// Package advisor turns recent readings into care recommendations, asking a
// remote model first and falling back to fixed rules whenever that fails.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plant_monitor/internal/logger"
	"plant_monitor/internal/models"
)

// MaxContextReadings bounds how many recent readings are sent to the model.
const MaxContextReadings = 6

// Defaults for Config zero values.
const (
	DefaultModel              = "claude-sonnet-4-20250514"
	DefaultMaxTokens          = 150
	DefaultTimeout            = 20 * time.Second
	DefaultBreakerMaxFailures = 3
	DefaultBreakerCooldown    = 5 * time.Minute
)

var errEmptyResponse = errors.New("response has no text content")

// Advisor produces a recommendation; it never fails.
type Advisor interface {
	Advise(ctx context.Context, recent []models.Reading, findings []models.Finding) models.Recommendation
}

// Completer sends one system+user prompt pair to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AdvisorError describes why the remote path was abandoned.
type AdvisorError struct {
	Op  string
	Err error
}

func (e *AdvisorError) Error() string { return fmt.Sprintf("advisor %s: %v", e.Op, e.Err) }

func (e *AdvisorError) Unwrap() error { return e.Err }

// Config holds the AI settings. An empty APIKey means fallback only.
type Config struct {
	APIKey             string
	Model              string
	BaseURL            string
	MaxTokens          int64
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BreakerMaxFailures <= 0 {
		c.BreakerMaxFailures = DefaultBreakerMaxFailures
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = DefaultBreakerCooldown
	}
	return c
}

// Client is the Advisor used by the monitor.
type Client struct {
	completer Completer
	timeout   time.Duration
	breaker   *Breaker
	log       *logger.Logger
	now       func() time.Time
}

// New builds a Client backed by the Anthropic API, or a fallback-only
// Client when no API key is configured.
func New(cfg Config, log *logger.Logger) *Client {
	cfg = cfg.withDefaults()
	var c Completer
	if cfg.APIKey != "" {
		c = NewAnthropic(cfg)
	}
	return NewWithCompleter(c, cfg, log)
}

// NewWithCompleter builds a Client around any Completer; nil means fallback only.
func NewWithCompleter(c Completer, cfg Config, log *logger.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		completer: c,
		timeout:   cfg.Timeout,
		breaker:   NewBreaker(cfg.BreakerMaxFailures, cfg.BreakerCooldown),
		log:       log,
		now:       time.Now,
	}
}

// Enabled reports whether a remote model is configured.
func (c *Client) Enabled() bool { return c.completer != nil }

// Advise returns an AI recommendation, or a rule-based one tagged with the
// failure reason when the remote call cannot be used.
func (c *Client) Advise(ctx context.Context, recent []models.Reading, findings []models.Finding) models.Recommendation {
	if c.completer == nil {
		return Fallback(recent, findings, c.now())
	}
	text, err := c.ask(ctx, recent, findings)
	if err != nil {
		c.log.Warnw("advisor_fallback", "err", err, "breaker", c.breaker.State().String())
		rec := Fallback(recent, findings, c.now())
		rec.FallbackReason = err.Error()
		return rec
	}
	return models.Recommendation{Text: text, Source: models.SourceAI, GeneratedAt: c.now().UTC()}
}

func (c *Client) ask(ctx context.Context, recent []models.Reading, findings []models.Finding) (text string, err error) {
	if !c.breaker.Allow() {
		return "", &AdvisorError{Op: "call", Err: ErrBreakerOpen}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &AdvisorError{Op: "call", Err: fmt.Errorf("panic: %v", r)}
		}
		c.breaker.Record(err)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err = c.completer.Complete(ctx, SystemPrompt, BuildPrompt(recent, findings))
	if err != nil {
		return "", &AdvisorError{Op: "call", Err: err}
	}
	if text == "" {
		return "", &AdvisorError{Op: "decode", Err: errEmptyResponse}
	}
	return text, nil
}
