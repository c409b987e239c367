package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/user"
)

const requesterKey = "requester"

// Claims represents the authorization claims transmitted via a JWT.
// The Subject is the username.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"isAdmin,omitempty"`
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		IsAdmin: usr.IsAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenStr, secretKey, issuer string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secretKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// requesterMiddleware resolves who is calling: the subject of a Bearer token,
// or the `user` query parameter when allowQueryIdentity is on.
// Whether the requester may do what they ask is left to the services.
func requesterMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
				tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
				if !ok {
					return errInvalidToken
				}
				claims, err := parseToken(tokenStr, conf.SecretKey, conf.AppName)
				if err != nil {
					return errInvalidToken.WithInternal(err)
				}
				ctx.Set(requesterKey, claims.Subject)
			} else if conf.Server.AllowQueryIdentity {
				ctx.Set(requesterKey, ctx.QueryParam("user"))
			}
			return next(ctx)
		}
	}
}

func getRequester(ctx echo.Context) string {
	requester, _ := ctx.Get(requesterKey).(string)
	return requester
}
