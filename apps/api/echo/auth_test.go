package echoapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
)

func Test_parseToken(t *testing.T) {
	conf := &core.Config{AppName: "attendance-test", SecretKey: "test-secret"}
	conf.Server.JWTExpirationDelta = time.Hour
	kavya := user.User{Username: "Kavya"}

	sign := func(t *testing.T, claims *Claims, key string) string {
		token, err := GenerateToken(claims, key)
		require.NoError(t, err)
		return token
	}
	withClaims := func(fn func(c *Claims)) *Claims {
		claims := GetUserClaims(kavya, conf)
		fn(claims)
		return claims
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, GetUserClaims(kavya, conf)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: sign(t, GetUserClaims(kavya, conf), conf.SecretKey)},
		{name: "wrong key", token: sign(t, GetUserClaims(kavya, conf), "other-secret"), wantErr: true},
		{name: "unsigned", token: unsigned, wantErr: true},
		{
			name:    "expired",
			token:   sign(t, withClaims(func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }), conf.SecretKey),
			wantErr: true,
		},
		{
			name:    "no expiry",
			token:   sign(t, withClaims(func(c *Claims) { c.ExpiresAt = nil }), conf.SecretKey),
			wantErr: true,
		},
		{
			name:    "other issuer",
			token:   sign(t, withClaims(func(c *Claims) { c.Issuer = "someone-else" }), conf.SecretKey),
			wantErr: true,
		},
		{
			name:    "no subject",
			token:   sign(t, withClaims(func(c *Claims) { c.Subject = "" }), conf.SecretKey),
			wantErr: true,
		},
		{name: "garbage", token: "not.a.token", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := parseToken(tc.token, conf.SecretKey, conf.AppName)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Kavya", claims.Subject)
			assert.False(t, claims.IsAdmin)
		})
	}
}

func Test_domainErrStatus(t *testing.T) {
	assert.Equal(t, 401, domainErrStatus(user.ErrInvalidCredentials))
	assert.Equal(t, 0, domainErrStatus(user.ErrNotFound))
}
