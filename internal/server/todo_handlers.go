package server

import (
	"net/http"

	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/server/serializer"
	"github.com/kumado/kumado/internal/server/service"
	"github.com/labstack/echo/v4"
)

// todo contains all todo handlers.
type todo struct {
	db database.Client
}

type (
	createTodoParams struct {
		Content string `json:"content"`
	}

	updateTodoParams struct {
		IsChecked bool `json:"isChecked"`
	}
)

///// List
////
//

// List returns one page of the todo listing.
// Supported queries: page (1-based, default 1) and filter (all|checked|unchecked).
func (h *todo) List(c echo.Context) error {
	page := service.ParsePage(c.QueryParam("page"))
	filter := service.ParseFilter(c.QueryParam("filter"))

	list, err := service.NewTodo(h.db, currentUserID(c)).List(page, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("success", list))
}

///// Count
////
//

// Count returns the page count over the unfiltered listing.
// Kept for clients predating the totalPage field of List.
func (h *todo) Count(c echo.Context) error {
	totalPage, err := service.NewTodo(h.db, currentUserID(c)).Count()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("success", totalPage))
}

///// Dashboard
////
//

// Dashboard returns completion statistics over the whole namespace.
func (h *todo) Dashboard(c echo.Context) error {
	dashboard, err := service.NewTodo(h.db, currentUserID(c)).Dashboard()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("success", dashboard))
}

///// Create
////
//

// Create stores a new unchecked todo.
func (h *todo) Create(c echo.Context) error {
	// Filter params
	var params createTodoParams
	if err := c.Bind(&params); err != nil {
		return kverror.New(http.StatusBadRequest, "could not get todo params")
	}

	todo, err := service.NewTodo(h.db, currentUserID(c)).Create(params.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("todo creation success", todo))
}

///// Update
////
//

// Update overwrites the completion flag of a todo.
func (h *todo) Update(c echo.Context) error {
	// Filter params
	var params updateTodoParams
	if err := c.Bind(&params); err != nil {
		return kverror.New(http.StatusBadRequest, "could not get todo params")
	}

	todo, err := service.NewTodo(h.db, currentUserID(c)).Update(c.Param("id"), params.IsChecked)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("todo update success", todo))
}

///// Delete
////
//

// Delete removes a todo. Removing a missing id succeeds.
func (h *todo) Delete(c echo.Context) error {
	if err := service.NewTodo(h.db, currentUserID(c)).Delete(c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("todo delete success", nil))
}

///// DeleteAll
////
//

// DeleteAll removes every todo of the namespace.
func (h *todo) DeleteAll(c echo.Context) error {
	if err := service.NewTodo(h.db, currentUserID(c)).DeleteAll(); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Success("todo delete success", nil))
}
