package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/model"
	"github.com/kumado/kumado/internal/server/middlewares"
	"github.com/kumado/kumado/internal/server/serializer"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RevisionHeader carries the server revision so browser clients can detect deploys.
const RevisionHeader = "X-Kumado-Revision"

// A Controller is used to init the server package.
type Controller struct {
	Version  string
	Database database.Client
	// CORS params
	CORSOrigin string
	// JWT params
	SigningKey []byte
	// Session params
	AccessTokenExpirationTime  time.Duration
	RefreshTokenExpirationTime time.Duration
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(corsWithConfig(ctrl))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(RevisionHeader, ctrl.Version)
			return next(c)
		}
	})
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	////////////
	// Router //
	////////////

	sessions := session.NewManager(
		ctrl.SigningKey,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
	)

	router := engine.Group("")
	restricted := router.Group("/auth")
	restricted.Use(middlewares.Authenticate(ctrl.Database, sessions))

	// generic handlers
	//
	router.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, serializer.Success("success", echo.Map{
			"version": ctrl.Version,
		}))
	})

	//
	// auth handlers
	//
	auth := &auth{
		db:       ctrl.Database,
		sessions: sessions,
	}
	router.POST("/signup", auth.Signup)
	router.POST("/login", auth.Login)
	router.POST("/refresh", auth.Refresh)
	restricted.POST("/logout", auth.Logout)

	//
	// todo handlers, once on the public namespace and once scoped to the
	// authenticated caller
	//
	todo := &todo{
		db: ctrl.Database,
	}
	for _, g := range []*echo.Group{router, restricted} {
		g.GET("/todo", todo.List)
		g.GET("/todo/count", todo.Count)
		g.GET("/todo/dashboard", todo.Dashboard)
		g.POST("/todo/create", todo.Create)
		g.PATCH("/todo/update/:id", todo.Update)
		g.DELETE("/todo/delete/all", todo.DeleteAll)
		g.DELETE("/todo/delete/:id", todo.Delete)
	}

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func corsWithConfig(ctrl Controller) echo.MiddlewareFunc {
	config := middleware.CORSConfig{
		AllowMethods: []string{
			http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodGet, http.MethodDelete, http.MethodOptions,
		},
		ExposeHeaders:    []string{echo.HeaderContentLength, RevisionHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if ctrl.CORSOrigin != "" {
		config.AllowOrigins = []string{ctrl.CORSOrigin}
	}
	return middleware.CORSWithConfig(config)
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}

// currentUserID resolves the todo namespace: the caller's user id on
// restricted routes, the public namespace everywhere else.
func currentUserID(c echo.Context) string {
	if user := currentUser(c); user != nil {
		return user.ID
	}
	return ""
}
