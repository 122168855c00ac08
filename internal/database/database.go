package database

import (
	"github.com/kumado/kumado/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique constraint error.
		IsAlreadyExists(err error) bool

		TodoInteraction
		UserInteraction
		SessionInteraction
	}

	// A TodoInteraction defines all the methods used to interact with todo records.
	// The userID argument selects the namespace the records live in; the empty
	// string addresses the shared public namespace.
	TodoInteraction interface {
		// SaveTodo inserts or updates the todo in the given namespace.
		SaveTodo(userID string, todo *model.Todo) error
		// FindTodo returns the todo for the given id.
		FindTodo(userID, id string) (*model.Todo, error)
		// FindTodos returns all todos of the namespace in key order.
		FindTodos(userID string) ([]*model.Todo, error)
		// DeleteTodo deletes the todo for the given id. Deleting a missing id is a no-op.
		DeleteTodo(userID, id string) error
		// DeleteTodos deletes every todo of the namespace in a single transaction.
		DeleteTodos(userID string) error
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// SaveUser inserts or updates the user, enforcing username uniqueness.
		SaveUser(user *model.User) error
		// FindUser returns the user for the given id (ULID).
		FindUser(id string) (*model.User, error)
		// FindUserByUsername returns the user for the given username.
		FindUserByUsername(username string) (*model.User, error)
	}

	// A SessionInteraction defines all the methods used to interact with the
	// refresh token kept on file for a user.
	SessionInteraction interface {
		// SaveSession stores the session, overwriting any previous one for the user.
		SaveSession(session *model.Session) error
		// FindSessionByUserID returns the session on file for the given user id.
		FindSessionByUserID(userID string) (*model.Session, error)
		// DeleteSessionByUserID removes the session on file. Idempotent.
		DeleteSessionByUserID(userID string) error
	}
)
