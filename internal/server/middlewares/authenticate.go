package middlewares

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/server/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
const CurrentUserContextKey = "current_user"

// jwtContextKey is where echo-jwt stores the parsed token.
const jwtContextKey = "user"

// Authenticate returns a bearer token middleware.
// It verifies signature and expiry of the access token and stores
// current_user into echo.Context; failures never reach the handler.
func Authenticate(db database.Client, m session.Manager) echo.MiddlewareFunc {
	gate := echojwt.WithConfig(echojwt.Config{
		SigningKey: m.SigningKey(),
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(session.AccessClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return kverror.NewWithTag(http.StatusUnauthorized, "invalid-auth", "invalid or expired token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return gate(func(c echo.Context) error {
			token, ok := c.Get(jwtContextKey).(*jwt.Token)
			if !ok {
				return kverror.NewWithTag(http.StatusUnauthorized, "invalid-auth", "invalid or expired token")
			}

			claims, ok := token.Claims.(*session.AccessClaims)
			if !ok || claims.UserID == "" {
				return kverror.NewWithTag(http.StatusUnauthorized, "invalid-auth", "invalid or expired token")
			}

			// A valid token for a deleted account is worthless.
			user, err := db.FindUser(claims.UserID)
			if err != nil {
				if db.IsNotFound(err) {
					return kverror.NewWithTag(http.StatusUnauthorized, "invalid-auth", "invalid or expired token")
				}
				return errors.Wrap(err, "could not get access to database")
			}

			c.Set(CurrentUserContextKey, user)
			return next(c)
		})
	}
}
