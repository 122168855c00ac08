package service

import (
	"net/http"
	"time"

	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/model"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type (
	// CredentialsParams are used to signup or login a user.
	CredentialsParams struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	// RefreshParams are used to mint a new access token.
	RefreshParams struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	// A Login is the payload returned on successful authentication.
	Login struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		ExpiresAt    int64  `json:"exp"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	// A Refresh is the payload returned when a new access token is minted.
	Refresh struct {
		AccessToken string `json:"accessToken"`
		ExpiresAt   int64  `json:"exp"`
	}

	// An UserService handles the account and token lifecycle.
	UserService interface {
		// Signup registers a new user.
		Signup(params CredentialsParams) error
		// Login authenticates a user and issues a token pair. The refresh
		// token is kept on file, invalidating any previously issued one.
		Login(params CredentialsParams) (*Login, error)
		// Logout discards the refresh token on file. Idempotent.
		Logout(userID string) error
		// Refresh trades a valid refresh token for a new access token.
		Refresh(params RefreshParams) (*Refresh, error)
	}

	userService struct {
		db       database.Client
		sessions session.Manager
	}
)

// NewUser returns a new UserService.
func NewUser(db database.Client, sessions session.Manager) UserService {
	return &userService{
		db:       db,
		sessions: sessions,
	}
}

func (s *userService) Signup(params CredentialsParams) error {
	if params.Username == "" || params.Password == "" {
		return kverror.New(http.StatusBadRequest, "username and password are required")
	}

	// Check if the username is free to use.
	_, err := s.db.FindUserByUsername(params.Username)
	if err == nil {
		return kverror.New(http.StatusBadRequest, "username is already taken")
	}
	if !s.db.IsNotFound(err) {
		return errors.Wrap(err, "could not get access to database")
	}

	user := &model.User{
		Username: params.Username,
	}

	// Crypt password
	password, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "could not store user password safe")
	}
	user.Password = string(password)

	// Persist the model. The store enforces username uniqueness, which
	// catches signups racing on the same name.
	if err := s.db.SaveUser(user); err != nil {
		if s.db.IsAlreadyExists(err) {
			return kverror.New(http.StatusBadRequest, "username is already taken")
		}
		return errors.Wrap(err, "could not persist user")
	}

	return nil
}

func (s *userService) Login(params CredentialsParams) (*Login, error) {
	// Retrieve user
	user, err := s.db.FindUserByUsername(params.Username)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kverror.New(http.StatusBadRequest, "invalid username or password")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	// Verify password
	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(params.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, kverror.New(http.StatusBadRequest, "invalid username or password")
		}
		return nil, errors.Wrap(err, "could not validate password")
	}

	access, expiresAt, err := s.sessions.AccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt, err := s.sessions.RefreshToken()
	if err != nil {
		return nil, err
	}

	err = s.db.SaveSession(&model.Session{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpireAt:     refreshExpiresAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not persist session")
	}

	return &Login{
		ID:           user.ID,
		Username:     user.Username,
		ExpiresAt:    expiresAt.Unix(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *userService) Logout(userID string) error {
	return errors.Wrap(s.db.DeleteSessionByUserID(userID), "could not discard session")
}

func (s *userService) Refresh(params RefreshParams) (*Refresh, error) {
	if params.AccessToken == "" || params.RefreshToken == "" {
		return nil, kverror.New(http.StatusBadRequest, "accessToken and refreshToken are required")
	}

	// The expired access token identifies the caller, so its signature must
	// verify even though its expiration claim gets a pass.
	claims, err := s.sessions.ParseAccessToken(params.AccessToken, true)
	if err != nil {
		return nil, kverror.New(http.StatusBadRequest, "invalid access token")
	}

	stored, err := s.db.FindSessionByUserID(claims.UserID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kverror.New(http.StatusBadRequest, "no refresh token on file")
		}
		return nil, errors.Wrap(err, "could not get session")
	}

	if !session.SecureCompare(stored.RefreshToken, params.RefreshToken) {
		return nil, kverror.New(http.StatusBadRequest, "refresh token mismatch")
	}
	if stored.ExpireAt.Before(time.Now()) {
		return nil, kverror.New(http.StatusBadRequest, "refresh token has expired")
	}

	user, err := s.db.FindUser(claims.UserID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kverror.New(http.StatusBadRequest, "no refresh token on file")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	access, expiresAt, err := s.sessions.AccessToken(user)
	if err != nil {
		return nil, err
	}

	return &Refresh{
		AccessToken: access,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}
