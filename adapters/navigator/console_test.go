package navigator

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleNavigate(t *testing.T) {
	var out bytes.Buffer
	nav := NewConsole(&out, zerolog.Nop())

	require.NoError(t, nav.Navigate(context.Background(), "https://accounts.example.com/auth?nonce=n"))
	assert.Contains(t, out.String(), "https://accounts.example.com/auth?nonce=n")
}
