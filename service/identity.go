package service

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/url"
	"strings"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/zkcrypto"
	"github.com/layer-3/zklogin/ports"
)

// ProviderConfig describes the OpenID provider
type ProviderConfig struct {
	AuthURL     string
	ClientID    string
	RedirectURI string
}

// phaseTransitions lists the allowed identity phase moves; reset returns to idle from anywhere
var phaseTransitions = map[core.IdentityPhase]core.IdentityPhase{
	core.PhaseIdle:       core.PhaseNonceReady,
	core.PhaseNonceReady: core.PhaseRedirected,
	core.PhaseRedirected: core.PhaseTokenReceived,
}

// IdentityAcquirer drives the OAuth implicit flow
type IdentityAcquirer struct {
	cfg       ProviderConfig
	decoder   ports.TokenDecoder
	navigator ports.Navigator
}

// NewIdentityAcquirer validates cfg and returns an acquirer in the idle phase
func NewIdentityAcquirer(cfg ProviderConfig, decoder ports.TokenDecoder, navigator ports.Navigator) (*IdentityAcquirer, error) {
	if cfg.AuthURL == "" || cfg.ClientID == "" || cfg.RedirectURI == "" {
		return nil, fmt.Errorf("identity provider: %w", core.ErrMissingConfig)
	}
	if _, err := url.Parse(cfg.AuthURL); err != nil {
		return nil, fmt.Errorf("invalid provider auth url: %w", err)
	}
	return &IdentityAcquirer{cfg: cfg, decoder: decoder, navigator: navigator}, nil
}

// ComputeNonce binds the ephemeral key, max epoch and randomness
func (a *IdentityAcquirer) ComputeNonce(pk ed25519.PublicKey, maxEpoch uint64, randomness string) (string, error) {
	return zkcrypto.Nonce(pk, maxEpoch, randomness)
}

// AuthorizationURL builds the provider URL carrying nonce
func (a *IdentityAcquirer) AuthorizationURL(nonce string) string {
	u, _ := url.Parse(a.cfg.AuthURL)
	q := u.Query()
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURI)
	q.Set("response_type", "id_token")
	q.Set("scope", "openid")
	q.Set("nonce", nonce)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedirectToProvider sends the user away. The flow resumes with ParseReturnedToken.
func (a *IdentityAcquirer) RedirectToProvider(ctx context.Context, nonce string) error {
	if nonce == "" {
		return fmt.Errorf("redirect without nonce: %w", core.ErrInvalidTransition)
	}
	return a.navigator.Navigate(ctx, a.AuthorizationURL(nonce))
}

// ParseReturnedToken extracts and decodes the id token from the redirect fragment.
// Every failure wraps core.ErrMalformedToken.
func (a *IdentityAcquirer) ParseReturnedToken(fragment string) (*core.IdentityToken, error) {
	raw, err := TokenFromFragment(fragment)
	if err != nil {
		return nil, err
	}
	return a.decoder.Decode(raw)
}

// Transition checks a phase move against the transition table
func (a *IdentityAcquirer) Transition(from, to core.IdentityPhase) error {
	if to == core.PhaseIdle {
		return nil
	}
	if next, ok := phaseTransitions[from]; !ok || next != to {
		return fmt.Errorf("%s -> %s: %w", from, to, core.ErrInvalidTransition)
	}
	return nil
}

// TokenFromFragment extracts id_token from a redirect fragment. It accepts the bare
// fragment, the fragment with its leading '#', or the full redirect URL.
func TokenFromFragment(fragment string) (string, error) {
	if i := strings.Index(fragment, "#"); i >= 0 {
		fragment = fragment[i+1:]
	}
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return "", fmt.Errorf("failed to parse fragment: %w: %w", core.ErrMalformedToken, err)
	}
	if msg := values.Get("error"); msg != "" {
		return "", fmt.Errorf("provider returned %q: %w", msg, core.ErrMalformedToken)
	}
	token := values.Get("id_token")
	if token == "" {
		return "", fmt.Errorf("fragment has no id_token: %w", core.ErrMalformedToken)
	}
	return token, nil
}
