package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// TokenError is a token endpoint response that carried no usable token.
type TokenError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token endpoint returned %d: %s: %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
	}
}

// TokenSource fetches OAuth2 access tokens and caches each one until shortly
// before it expires. Concurrent callers share one fetch.
type TokenSource struct {
	tokenURL            string
	clientID            string
	clientSecret        string
	form                url.Values
	refreshBeforeExpiry time.Duration
	client              *http.Client
	now                 func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type Option func(*TokenSource)

// WithRefreshBeforeExpiry renews tokens this long before they expire.
func WithRefreshBeforeExpiry(d time.Duration) Option {
	return func(s *TokenSource) {
		if d > 0 {
			s.refreshBeforeExpiry = d
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *TokenSource) {
		if client != nil {
			s.client = client
		}
	}
}

// NewClientCredentials uses the client_credentials grant.
func NewClientCredentials(tokenURL, clientID, clientSecret string, scopes []string, opts ...Option) *TokenSource {
	form := url.Values{"grant_type": {"client_credentials"}}
	return newTokenSource(tokenURL, clientID, clientSecret, form, scopes, opts)
}

// NewPasswordGrant uses the resource owner password grant.
func NewPasswordGrant(tokenURL, clientID, clientSecret, username, password string, scopes []string, opts ...Option) *TokenSource {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	return newTokenSource(tokenURL, clientID, clientSecret, form, scopes, opts)
}

func newTokenSource(tokenURL, clientID, clientSecret string, form url.Values, scopes []string, opts []Option) *TokenSource {
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	s := &TokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		form:         form,
		client:       &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the cached token or fetches a new one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expiry.IsZero() || s.now().Before(s.expiry)) {
		return s.token, nil
	}
	token, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	// a zero expiry keeps a token that came without expires_in
	s.expiry = time.Time{}
	if expiresIn > 0 {
		s.expiry = s.now().Add(expiresIn - s.refreshBeforeExpiry)
	}
	return s.token, nil
}

func (s *TokenSource) fetch(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(s.form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(s.clientID), url.QueryEscape(s.clientSecret))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}

	doc := gjson.ParseBytes(body)
	if resp.StatusCode != http.StatusOK || doc.Get("error").Exists() {
		return "", 0, &TokenError{
			StatusCode:  resp.StatusCode,
			Code:        doc.Get("error").String(),
			Description: doc.Get("error_description").String(),
		}
	}
	token := doc.Get("access_token").String()
	if token == "" {
		return "", 0, errors.New("token response has no access_token")
	}
	return token, time.Duration(doc.Get("expires_in").Int()) * time.Second, nil
}
