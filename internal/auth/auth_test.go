package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", "flous-test", time.Hour)

	signed, err := tokens.Generate(models.User{ID: 42, Username: "mona", Email: "mona@example.com"})
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestTokenRejected(t *testing.T) {
	tokens := NewTokenManager("secret", "flous-test", time.Hour)
	user := models.User{ID: 7}

	expired := NewTokenManager("secret", "flous-test", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Generate(user)
	require.NoError(t, err)

	foreign, err := NewTokenManager("other", "flous-test", time.Hour).Generate(user)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenManager("secret", "someone-else", time.Hour).Generate(user)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "flous-test", "sub": "7", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expiredToken,
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"alg none":     noneAlg,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDenylist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	denylist := NewDenylist(client)
	ctx := context.Background()

	listed, err := denylist.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, denylist.Add(ctx, "tok", time.Minute))
	listed, err = denylist.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, listed)

	mr.FastForward(2 * time.Minute)
	listed, err = denylist.Contains(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, denylist.Add(ctx, "stale", -time.Second))
	assert.False(t, mr.Exists(denylistPrefix+"stale"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{User: models.User{ID: 3, IsAdmin: true}})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), id.User.ID)
	assert.True(t, id.User.IsAdmin)
}
