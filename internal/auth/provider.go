// Package auth supplies bearer tokens for outgoing calls.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/torosent/callcheck/internal/config"
)

// Provider returns the access token to send with the next call.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Inject sets the Authorization header from p unless header already carries
// one.
func Inject(ctx context.Context, p Provider, header http.Header) error {
	if p == nil || header.Get("Authorization") != "" {
		return nil
	}
	token, err := p.Token(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}
	header.Set("Authorization", "Bearer "+token)
	return nil
}

// FromConfig returns the provider cfg describes, or nil when auth is off.
func FromConfig(cfg config.AuthConfig, client *http.Client) (Provider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.AuthTypeClientCredentials:
		return NewClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes,
			WithRefreshBeforeExpiry(cfg.RefreshBeforeExpiry), WithHTTPClient(client)), nil
	case config.AuthTypePassword:
		return NewPasswordGrant(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.Scopes,
			WithRefreshBeforeExpiry(cfg.RefreshBeforeExpiry), WithHTTPClient(client)), nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}
