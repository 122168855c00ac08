package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kumado/kumado/internal/model"
	"github.com/pkg/errors"
)

type (
	// AccessClaims are the claims embedded in access tokens.
	AccessClaims struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		jwt.RegisteredClaims
	}

	// A Manager mints and validates the token pair.
	Manager interface {
		// SigningKey returns the HMAC key used to sign tokens.
		SigningKey() []byte
		// AccessToken mints a short-lived access token for the given user.
		AccessToken(user *model.User) (token string, expiresAt time.Time, err error)
		// RefreshToken mints a refresh token carrying only an expiration claim.
		RefreshToken() (token string, expiresAt time.Time, err error)
		// ParseAccessToken verifies the token signature and returns its claims.
		// Expiration is only enforced when allowExpired is false; an expired
		// access token is the expected input of a refresh request.
		ParseAccessToken(token string, allowExpired bool) (*AccessClaims, error)
	}

	manager struct {
		signingKey []byte
		// Session params
		accessTokenExpirationTime  time.Duration
		refreshTokenExpirationTime time.Duration
	}
)

// NewManager returns a new manager.
func NewManager(signingKey []byte, accessTokenExpirationTime, refreshTokenExpirationTime time.Duration) Manager {
	return &manager{
		signingKey:                 signingKey,
		accessTokenExpirationTime:  accessTokenExpirationTime,
		refreshTokenExpirationTime: refreshTokenExpirationTime,
	}
}

func (m *manager) SigningKey() []byte {
	return m.signingKey
}

func (m *manager) AccessToken(user *model.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.accessTokenExpirationTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.signingKey)
	return signed, expiresAt, errors.Wrap(err, "could not sign access token")
}

func (m *manager) RefreshToken() (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(m.refreshTokenExpirationTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(m.signingKey)
	return signed, expiresAt, errors.Wrap(err, "could not sign refresh token")
}

func (m *manager) ParseAccessToken(token string, allowExpired bool) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if allowExpired {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := new(AccessClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, options...)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse access token")
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, errors.New("invalid access token claims")
	}

	return claims, nil
}
