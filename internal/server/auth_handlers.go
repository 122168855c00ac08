package server

import (
	"net/http"

	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/server/serializer"
	"github.com/kumado/kumado/internal/server/service"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/labstack/echo/v4"
)

// auth contains all authentication handlers.
type auth struct {
	db       database.Client
	sessions session.Manager
}

///// Signup
////
//

// Signup handler is used to register a user.
func (h *auth) Signup(c echo.Context) error {
	// Filter params
	var params service.CredentialsParams
	if err := c.Bind(&params); err != nil {
		return kverror.New(http.StatusBadRequest, "could not get credentials")
	}

	service := service.NewUser(h.db, h.sessions)
	if err := service.Signup(params); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("signup success", nil))
}

///// Login
////
//

// Login authenticates a user and returns a token pair.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params service.CredentialsParams
	if err := c.Bind(&params); err != nil {
		return kverror.New(http.StatusBadRequest, "could not get credentials")
	}
	if params.Username == "" || params.Password == "" {
		return kverror.New(http.StatusBadRequest, "username and password are required")
	}

	service := service.NewUser(h.db, h.sessions)
	login, err := service.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("login success", login))
}

///// Refresh
////
//

// Refresh trades an expired access token plus the refresh token on file
// for a fresh access token.
func (h *auth) Refresh(c echo.Context) error {
	// Filter params
	var params service.RefreshParams
	if err := c.Bind(&params); err != nil {
		return kverror.New(http.StatusBadRequest, "could not get tokens")
	}

	service := service.NewUser(h.db, h.sessions)
	refresh, err := service.Refresh(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("token refresh success", refresh))
}

///// Logout
////
//

// Logout discards the caller's refresh token.
func (h *auth) Logout(c echo.Context) error {
	service := service.NewUser(h.db, h.sessions)
	if err := service.Logout(currentUser(c).ID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("logout success", nil))
}
