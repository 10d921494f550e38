// Package textconv rewrites provider text into the preferred Chinese script.
//
// Upstream APIs answer in a mix of Simplified and Traditional characters
// depending on the endpoint and language support; reports always go out in
// Traditional Chinese with Taiwan phrasing.
package textconv

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/longbridgeapp/opencc"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

// Disabled is the configuration value that turns conversion off.
const Disabled = "none"

// Converter wraps an OpenCC dictionary. Conversion errors fall back to the
// input text so a bad dictionary lookup never drops a forecast.
type Converter struct {
	cc     *opencc.OpenCC
	logger *slog.Logger
}

// New loads the named OpenCC conversion, e.g. "s2twp". The value "none"
// (or an empty name) returns a domain.IdentityConverter.
func New(name string, logger *slog.Logger) (domain.ScriptConverter, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, Disabled) {
		return domain.IdentityConverter{}, nil
	}
	cc, err := opencc.New(name)
	if err != nil {
		return nil, fmt.Errorf("load opencc conversion %q: %w", name, err)
	}
	return &Converter{cc: cc, logger: logger}, nil
}

// Convert implements domain.ScriptConverter.
func (c *Converter) Convert(text string) string {
	if text == "" {
		return text
	}
	out, err := c.cc.Convert(text)
	if err != nil {
		c.logger.Warn("script conversion failed", "error", err)
		return text
	}
	return out
}
