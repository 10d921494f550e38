// Package line pushes reports to a LINE group through the Messaging API.
package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/upstream"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const (
	defaultBaseURL = "https://api.line.me"
	pushPath       = "/v2/bot/message/push"

	// MaxTextLength is LINE's limit for one text message, in characters.
	MaxTextLength = 5000
)

// Config for the LINE notifier.
type Config struct {
	Token           string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
}

// Notifier implements domain.Notifier.
type Notifier struct {
	http   *upstream.Client
	logger *slog.Logger
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// NewNotifier creates a push client authorised by the channel access token.
func NewNotifier(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Notifier{
		http: upstream.New(upstream.Config{
			Name:            "line",
			BaseURL:         base,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			Headers:         map[string]string{"Authorization": "Bearer " + cfg.Token},
			Metrics:         metrics,
			Logger:          logger,
		}),
		logger: logger,
	}
}

func (n *Notifier) Name() string { return "line" }

// Push sends text as one message to recipient, a user, group or room ID.
func (n *Notifier) Push(ctx context.Context, recipient, text string) error {
	if recipient == "" {
		return errors.New("line push: recipient is empty")
	}
	msg, cut := Truncate(text, MaxTextLength)
	if cut {
		n.logger.Warn("report truncated for line", "length", len([]rune(text)), "limit", MaxTextLength)
	}

	body := pushRequest{To: recipient, Messages: []textMessage{{Type: "text", Text: msg}}}
	if err := n.http.PostJSON(ctx, pushPath, body, nil); err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}

// Truncate shortens s to at most limit characters, ending with an ellipsis
// when cut. It reports whether anything was removed.
func Truncate(s string, limit int) (string, bool) {
	r := []rune(s)
	if len(r) <= limit {
		return s, false
	}
	if limit <= 1 {
		return string(r[:limit]), true
	}
	return string(r[:limit-1]) + "…", true
}
