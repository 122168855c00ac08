package server_test

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/model"
	"github.com/kumado/kumado/internal/server"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestRequestHome(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"code":200,"message":"success","data":{"version":"test"}}`, r.Body.String())
		assert.Equal(t, "test", r.HeaderMap.Get(server.RevisionHeader))
	})
}

func setup() (engine *echo.Echo, ctrl server.Controller, r *gofight.RequestConfig, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "kumado.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.BoltOpen(filename)
	if err != nil {
		panic(err)
	}

	ctrl = server.Controller{
		Version:                    "test",
		Database:                   db,
		SigningKey:                 []byte("secret"),
		AccessTokenExpirationTime:  time.Hour,
		RefreshTokenExpirationTime: 24 * time.Hour,
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl, gofight.New(), func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func createUser(ctrl server.Controller, username string) *model.User {
	password, err := bcrypt.GenerateFromPassword([]byte("password42"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	user := &model.User{
		Username: username,
		Password: string(password),
	}
	if err = ctrl.Database.SaveUser(user); err != nil {
		panic(err)
	}

	return user
}

func createTodo(ctrl server.Controller, userID, content string) *model.Todo {
	todo := &model.Todo{
		Content: content,
	}
	if err := ctrl.Database.SaveTodo(userID, todo); err != nil {
		panic(err)
	}
	return todo
}

func sessions(ctrl server.Controller) session.Manager {
	return session.NewManager(
		ctrl.SigningKey,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
	)
}

func accessToken(ctrl server.Controller, user *model.User) string {
	token, _, err := sessions(ctrl).AccessToken(user)
	if err != nil {
		panic(err)
	}
	return token
}
