package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kumado/kumado/internal/database"
	"github.com/kumado/kumado/internal/kverror"
	"github.com/kumado/kumado/internal/model"
	"github.com/pkg/errors"
)

// PageSize is the fixed number of todos per listing page.
const PageSize = 6

// A Filter restricts a listing to a completion state.
type Filter string

// Supported listing filters.
const (
	FilterAll       Filter = "all"
	FilterChecked   Filter = "checked"
	FilterUnchecked Filter = "unchecked"
)

type (
	// A Page is one slice of the todo listing.
	Page struct {
		Todos     []*model.Todo `json:"todos"`
		TotalPage int           `json:"totalPage"`
	}

	// A Dashboard aggregates completion statistics over the whole namespace.
	Dashboard struct {
		Progress float64 `json:"progress"`
		Finished int     `json:"finished"`
		Left     int     `json:"left"`
	}

	// A TodoService answers list/aggregate queries and performs single-item
	// mutations for one namespace.
	TodoService interface {
		// List returns the requested page of the filtered listing.
		// Pages are 1-based; a page past the end yields an empty list.
		List(page int, filter Filter) (*Page, error)
		// Count returns the page count over the unfiltered listing.
		Count() (int, error)
		// Dashboard returns completion statistics.
		Dashboard() (*Dashboard, error)
		// Create stores a new unchecked todo.
		Create(content string) (*model.Todo, error)
		// Update overwrites the completion flag, preserving id and content.
		Update(id string, checked bool) (*model.Todo, error)
		// Delete removes the todo. Deleting a missing id succeeds.
		Delete(id string) error
		// DeleteAll removes every todo of the namespace.
		DeleteAll() error
	}

	todoService struct {
		db     database.Client
		userID string
	}
)

// NewTodo returns a new TodoService scoped to the given user namespace.
// An empty userID addresses the shared public namespace.
func NewTodo(db database.Client, userID string) TodoService {
	return &todoService{
		db:     db,
		userID: userID,
	}
}

// ParsePage parses a page query parameter.
// Anything that is not an integer greater than zero falls back to the first page.
func ParsePage(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseFilter parses a filter query parameter. Unknown values mean no filtering.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(s)) {
	case FilterChecked:
		return FilterChecked
	case FilterUnchecked:
		return FilterUnchecked
	default:
		return FilterAll
	}
}

func (s *todoService) List(page int, filter Filter) (*Page, error) {
	todos, err := s.db.FindTodos(s.userID)
	if err != nil {
		return nil, errors.Wrap(err, "could not list todos")
	}

	switch filter {
	case FilterChecked:
		todos = keep(todos, true)
	case FilterUnchecked:
		todos = keep(todos, false)
	}

	totalPage := (len(todos) + PageSize - 1) / PageSize

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(todos) {
		start = len(todos)
	}
	if end > len(todos) {
		end = len(todos)
	}

	return &Page{
		Todos:     todos[start:end],
		TotalPage: totalPage,
	}, nil
}

func (s *todoService) Count() (int, error) {
	todos, err := s.db.FindTodos(s.userID)
	if err != nil {
		return 0, errors.Wrap(err, "could not count todos")
	}
	return (len(todos) + PageSize - 1) / PageSize, nil
}

func (s *todoService) Dashboard() (*Dashboard, error) {
	todos, err := s.db.FindTodos(s.userID)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute dashboard")
	}

	finished := len(keep(todos, true))

	dashboard := &Dashboard{
		Finished: finished,
		Left:     len(todos) - finished,
	}
	// An empty namespace reports a progress of 0, never NaN.
	if len(todos) > 0 {
		dashboard.Progress = float64(finished) / float64(len(todos)) * 100
	}

	return dashboard, nil
}

func (s *todoService) Create(content string) (*model.Todo, error) {
	if content == "" {
		return nil, kverror.New(http.StatusBadRequest, "content is required")
	}

	todo := &model.Todo{
		Content: content,
	}
	if err := s.db.SaveTodo(s.userID, todo); err != nil {
		return nil, errors.Wrap(err, "could not persist todo")
	}

	return todo, nil
}

func (s *todoService) Update(id string, checked bool) (*model.Todo, error) {
	todo, err := s.db.FindTodo(s.userID, id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kverror.New(http.StatusNotFound, "todo not found")
		}
		return nil, errors.Wrap(err, "could not get todo")
	}

	todo.IsChecked = checked
	if err := s.db.SaveTodo(s.userID, todo); err != nil {
		return nil, errors.Wrap(err, "could not persist todo")
	}

	return todo, nil
}

func (s *todoService) Delete(id string) error {
	return s.db.DeleteTodo(s.userID, id)
}

func (s *todoService) DeleteAll() error {
	return s.db.DeleteTodos(s.userID)
}

func keep(todos []*model.Todo, checked bool) []*model.Todo {
	kept := make([]*model.Todo, 0, len(todos))
	for _, todo := range todos {
		if todo.IsChecked == checked {
			kept = append(kept, todo)
		}
	}
	return kept
}
