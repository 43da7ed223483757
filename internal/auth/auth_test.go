package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/callcheck/internal/config"
)

var jsonHeaders = http.Header{"Content-Type": {"application/json"}}

func tokenHandler(body string) http.Handler {
	return httphelpers.HandlerWithResponse(200, jsonHeaders, []byte(body))
}

func TestClientCredentialsRequest(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(tokenHandler(`{"access_token":"tok-1","expires_in":3600}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		src := NewClientCredentials(server.URL, "svc", "s3cret", []string{"orders.read", "orders.write"})

		token, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)

		info := <-requests
		assert.Equal(t, http.MethodPost, info.Request.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", info.Request.Header.Get("Content-Type"))
		user, pass, ok := info.Request.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "svc", user)
		assert.Equal(t, "s3cret", pass)
		assert.Equal(t, "grant_type=client_credentials&scope=orders.read+orders.write", string(info.Body))
	})
}

func TestPasswordGrantRequest(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(tokenHandler(`{"access_token":"tok-2"}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		src := NewPasswordGrant(server.URL, "svc", "", "alice", "pw", nil)

		token, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", token)
		assert.Equal(t, "grant_type=password&password=pw&username=alice", string((<-requests).Body))
	})
}

func TestTokenIsCachedUntilRefreshWindow(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(tokenHandler(`{"access_token":"tok","expires_in":60}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		src := NewClientCredentials(server.URL, "svc", "x", nil, WithRefreshBeforeExpiry(10*time.Second))
		src.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			_, err := src.Token(context.Background())
			require.NoError(t, err)
		}
		assert.Len(t, requests, 1)

		now = now.Add(49 * time.Second)
		_, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Len(t, requests, 1)

		now = now.Add(2 * time.Second)
		_, err = src.Token(context.Background())
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(tokenHandler(`{"access_token":"tok","expires_in":3600}`))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		src := NewClientCredentials(server.URL, "svc", "x", nil)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := src.Token(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "tok", token)
			}()
		}
		wg.Wait()
		assert.Len(t, requests, 1)
	})
}

func TestTokenErrors(t *testing.T) {
	t.Run("oauth error body", func(t *testing.T) {
		handler := httphelpers.HandlerWithResponse(400, jsonHeaders, []byte(`{"error":"invalid_client","error_description":"unknown client"}`))
		httphelpers.WithServer(handler, func(server *httptest.Server) {
			_, err := NewClientCredentials(server.URL, "svc", "x", nil).Token(context.Background())
			var terr *TokenError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, 400, terr.StatusCode)
			assert.Equal(t, "invalid_client", terr.Code)
			assert.Equal(t, "token endpoint returned 400: invalid_client: unknown client", terr.Error())
		})
	})

	t.Run("missing token", func(t *testing.T) {
		httphelpers.WithServer(tokenHandler(`{"token_type":"bearer"}`), func(server *httptest.Server) {
			_, err := NewClientCredentials(server.URL, "svc", "x", nil).Token(context.Background())
			assert.ErrorContains(t, err, "no access_token")
		})
	})
}

func TestInject(t *testing.T) {
	header := http.Header{}
	require.NoError(t, Inject(context.Background(), Static("abc"), header))
	assert.Equal(t, "Bearer abc", header.Get("Authorization"))

	explicit := http.Header{"Authorization": {"Basic xyz"}}
	require.NoError(t, Inject(context.Background(), Static("abc"), explicit))
	assert.Equal(t, "Basic xyz", explicit.Get("Authorization"))

	none := http.Header{}
	require.NoError(t, Inject(context.Background(), nil, none))
	assert.Empty(t, none.Get("Authorization"))
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(config.AuthConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = FromConfig(config.AuthConfig{Type: config.AuthTypePassword, TokenURL: "https://idp/token", ClientID: "id", Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	src, ok := p.(*TokenSource)
	require.True(t, ok)
	assert.Equal(t, "password", src.form.Get("grant_type"))

	_, err = FromConfig(config.AuthConfig{Type: "implicit"}, nil)
	assert.Error(t, err)
}
