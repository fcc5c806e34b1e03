package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreauth "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/auth"
)

func TestJWTResolver_RoundTrip(t *testing.T) {
	r, err := NewJWTResolver(Config{Secret: "s3cret", Issuer: "pace"})
	require.NoError(t, err)
	tok, err := r.Issue("staff-2", time.Now(), time.Hour)
	require.NoError(t, err)

	sub, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "staff-2", sub)
}

func TestJWTResolver_Rejects(t *testing.T) {
	r, err := NewJWTResolver(Config{Secret: "s3cret"})
	require.NoError(t, err)
	other, err := NewJWTResolver(Config{Secret: "other"})
	require.NoError(t, err)

	expired, _ := r.Issue("staff-1", time.Now().Add(-2*time.Hour), time.Hour)
	forged, _ := other.Issue("staff-1", time.Now(), time.Hour)
	noSub, _ := r.Issue("", time.Now(), time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"empty":   "",
		"expired": expired,
		"forged":  forged,
		"nosub":   noSub,
		"none":    none,
	} {
		_, err := r.Resolve(context.Background(), tok)
		if !errors.Is(err, coreauth.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated got %v", name, err)
		}
	}
}

func TestNewJWTResolver_RequiresSecret(t *testing.T) {
	_, err := NewJWTResolver(Config{})
	assert.Error(t, err)
}

func TestClientCred_CachesToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClientCred(ClientCredConfig{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})
	ctx := context.Background()

	req, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	require.NoError(t, client.SetAuthHeader(ctx, req))
	assert.Equal(t, "Bearer token123", req.Header.Get("Authorization"))

	_, err := client.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	client.Invalidate()
	_, err = client.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallerContext(t *testing.T) {
	ctx := coreauth.WithCaller(context.Background(), "staff-1")
	id, ok := coreauth.Caller(ctx)
	assert.True(t, ok)
	assert.Equal(t, "staff-1", id)
	_, ok = coreauth.Caller(context.Background())
	assert.False(t, ok)
}
