// Package navigator hands the provider authorization URL to the user.
package navigator

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/layer-3/zklogin/ports"
)

// Console prints the authorization URL for the user to open in a browser
type Console struct {
	out    io.Writer
	logger zerolog.Logger
}

// NewConsole prints the sign-in URL to out and tries to open it in a browser
func NewConsole(out io.Writer, logger zerolog.Logger) ports.Navigator {
	return &Console{out: out, logger: logger}
}

// Navigate never waits for the provider; the flow resumes on the redirect
func (c *Console) Navigate(ctx context.Context, url string) error {
	c.logger.Info().Msg("redirecting to identity provider")
	if _, err := fmt.Fprintf(c.out, "Open this URL to sign in:\n\n  %s\n\n", url); err != nil {
		return fmt.Errorf("failed to print authorization url: %w", err)
	}
	return nil
}
