package server_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/kumado/kumado/internal/model"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ExpiresAt    int64  `json:"exp"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func TestRequestSignup(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	params := gofight.D{"username": "george", "password": "password42"}

	r.POST("/signup").SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"code":200,"message":"signup success","data":null}`, r.Body.String())

		user, err := ctrl.Database.FindUserByUsername("george")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "password42", user.Password)
	})

	r.POST("/signup").SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"username is already taken","data":null}`, r.Body.String())
	})

	r.POST("/signup").SetJSON(gofight.D{"username": "", "password": "x"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
	})
}

func TestRequestLogin(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user := createUser(ctrl, "george")

	r.POST("/login").SetJSON(gofight.D{"username": "nobody", "password": "password42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"invalid username or password","data":null}`, r.Body.String())
	})

	r.POST("/login").SetJSON(gofight.D{"username": "george", "password": "trololo"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"invalid username or password","data":null}`, r.Body.String())
	})

	r.POST("/login").SetJSON(gofight.D{"username": "george", "password": "password42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		login := decodeLogin(t, r)
		assert.Equal(t, user.ID, login.ID)
		assert.Equal(t, "george", login.Username)
		assert.Greater(t, login.ExpiresAt, time.Now().Unix())
		assert.NotEmpty(t, login.RefreshToken)

		// The access token decodes to the user it was issued for.
		claims, err := sessions(ctrl).ParseAccessToken(login.AccessToken, false)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "george", claims.Username)

		// The refresh token is on file.
		stored, err := ctrl.Database.FindSessionByUserID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, login.RefreshToken, stored.RefreshToken)
	})
}

func TestRequestRefresh(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user := createUser(ctrl, "george")
	login := loginRequest(t, engine, r, "george")

	r.POST("/refresh").SetJSON(gofight.D{"accessToken": login.AccessToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"accessToken and refreshToken are required","data":null}`, r.Body.String())
	})

	r.POST("/refresh").SetJSON(gofight.D{"accessToken": "trololo", "refreshToken": login.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"invalid access token","data":null}`, r.Body.String())
	})

	r.POST("/refresh").SetJSON(gofight.D{"accessToken": login.AccessToken, "refreshToken": login.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var response envelope
		require.NoError(t, json.Unmarshal(r.Body.Bytes(), &response))
		assert.Equal(t, "token refresh success", response.Message)

		var refresh struct {
			AccessToken string `json:"accessToken"`
			ExpiresAt   int64  `json:"exp"`
		}
		require.NoError(t, json.Unmarshal(response.Data, &refresh))
		assert.NotEmpty(t, refresh.AccessToken)

		claims, err := sessions(ctrl).ParseAccessToken(refresh.AccessToken, false)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	// A second login overwrites the token on file, invalidating the first one.
	relogin := loginRequest(t, engine, r, "george")
	r.POST("/refresh").SetJSON(gofight.D{"accessToken": login.AccessToken, "refreshToken": login.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"refresh token mismatch","data":null}`, r.Body.String())
	})

	// Expired token on file.
	err := ctrl.Database.SaveSession(&model.Session{
		UserID:       user.ID,
		RefreshToken: relogin.RefreshToken,
		ExpireAt:     time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	r.POST("/refresh").SetJSON(gofight.D{"accessToken": relogin.AccessToken, "refreshToken": relogin.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"refresh token has expired","data":null}`, r.Body.String())
	})
}

func TestRequestLogout(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user := createUser(ctrl, "george")
	login := loginRequest(t, engine, r, "george")

	r.POST("/auth/logout").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"code":401,"message":"invalid or expired token","data":null}`, r.Body.String())
	})

	header := gofight.H{
		"Authorization": "Bearer " + login.AccessToken,
	}

	r.POST("/auth/logout").SetHeader(header).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"code":200,"message":"logout success","data":null}`, r.Body.String())

		_, err := ctrl.Database.FindSessionByUserID(user.ID)
		assert.True(t, ctrl.Database.IsNotFound(err))
	})

	// Idempotent.
	r.POST("/auth/logout").SetHeader(header).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	// No refresh once logged out.
	r.POST("/refresh").SetJSON(gofight.D{"accessToken": login.AccessToken, "refreshToken": login.RefreshToken}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"code":400,"message":"no refresh token on file","data":null}`, r.Body.String())
	})
}

func TestRequestAuthTodoScoping(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	user := createUser(ctrl, "george")
	createTodo(ctrl, "", "public todo")

	r.GET("/auth/todo").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	header := gofight.H{
		"Authorization": "Bearer " + accessToken(ctrl, user),
	}

	r.POST("/auth/todo/create").SetHeader(header).SetJSON(gofight.D{"content": "private todo"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
	})

	// The caller's namespace only holds its own todo.
	r.GET("/auth/todo").SetHeader(header).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		page := decodePage(t, r)
		require.Len(t, page.Todos, 1)
		assert.Equal(t, "private todo", page.Todos[0].Content)
	})

	// The public namespace is untouched.
	r.GET("/todo").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		page := decodePage(t, r)
		require.Len(t, page.Todos, 1)
		assert.Equal(t, "public todo", page.Todos[0].Content)
	})

	// A token signed with another key is rejected.
	forged, _, err := session.NewManager([]byte("wrong-secret"), time.Hour, time.Hour).AccessToken(user)
	require.NoError(t, err)
	r.GET("/auth/todo").SetHeader(gofight.H{"Authorization": "Bearer " + forged}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})
}

func loginRequest(t *testing.T, engine *echo.Echo, r *gofight.RequestConfig, username string) (login *loginPayload) {
	t.Helper()

	r.POST("/login").SetJSON(gofight.D{"username": username, "password": "password42"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		require.Equal(t, http.StatusOK, r.Code)
		login = decodeLogin(t, r)
	})
	return login
}

func decodeLogin(t *testing.T, r gofight.HTTPResponse) *loginPayload {
	t.Helper()

	var response envelope
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &response))
	assert.Equal(t, "login success", response.Message)

	login := new(loginPayload)
	require.NoError(t, json.Unmarshal(response.Data, login))
	return login
}
