package database

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/kumado/kumado/internal/model"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

// Buckets layout:
//
//	todo-list/<namespace>/<ulid> -> todo record
//	users/<ulid>                 -> user record
//	usernames/<username>         -> user id (uniqueness index)
//	sessions/<user id>           -> refresh token record
var (
	bucketTodos     = []byte("todo-list")
	bucketUsers     = []byte("users")
	bucketUsernames = []byte("usernames")
	bucketSessions  = []byte("sessions")
)

// publicNamespace holds the todos that do not belong to any user.
var publicNamespace = []byte("public")

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")
)

// Record ids are ULIDs so the natural bbolt key order is the creation order.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

type bolt struct {
	db *bbolt.DB
}

// BoltInit initializes the Bolt database buckets.
func BoltInit(database string) error {
	client, err := BoltOpen(database)
	if err != nil {
		return err
	}
	return client.Close()
}

// BoltOpen returns a new Bolt database connection.
func BoltOpen(database string) (Client, error) {
	db, err := bbolt.Open(database, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTodos, bucketUsers, bucketUsernames, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not init buckets")
	}

	return &bolt{db: db}, nil
}

// Close the database.
func (c *bolt) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *bolt) IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsAlreadyExists returns true if err is a unique constraint error.
func (c *bolt) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == ErrAlreadyExists
}

// SaveTodo inserts or updates the todo in the given namespace.
func (c *bolt) SaveTodo(userID string, todo *model.Todo) error {
	stamp(todo)

	payload, err := msgpack.Marshal(todo)
	if err != nil {
		return errors.Wrap(err, "could not serialize todo")
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketTodos).CreateBucketIfNotExists(namespace(userID))
		if err != nil {
			return err
		}
		return b.Put([]byte(todo.ID), payload)
	})
	return errors.Wrap(err, "could not save todo")
}

// FindTodo returns the todo for the given id.
func (c *bolt) FindTodo(userID, id string) (*model.Todo, error) {
	var todo model.Todo

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos).Bucket(namespace(userID))
		if b == nil {
			return ErrNotFound
		}

		payload := b.Get([]byte(id))
		if payload == nil {
			return ErrNotFound
		}
		return msgpack.Unmarshal(payload, &todo)
	})
	if err != nil {
		return nil, errors.Wrap(err, "find todo by id")
	}
	return &todo, nil
}

// FindTodos returns all todos of the namespace in key order.
func (c *bolt) FindTodos(userID string) ([]*model.Todo, error) {
	todos := make([]*model.Todo, 0)

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos).Bucket(namespace(userID))
		if b == nil {
			return nil
		}

		cursor := b.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var todo model.Todo
			if err := msgpack.Unmarshal(v, &todo); err != nil {
				return err
			}
			todos = append(todos, &todo)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not find todos")
	}
	return todos, nil
}

// DeleteTodo deletes the todo for the given id. Deleting a missing id is a no-op.
func (c *bolt) DeleteTodo(userID, id string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos).Bucket(namespace(userID))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
	return errors.Wrap(err, "could not delete todo")
}

// DeleteTodos deletes every todo of the namespace in a single transaction.
func (c *bolt) DeleteTodos(userID string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos).Bucket(namespace(userID))
		if b == nil {
			return nil
		}

		cursor := b.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "could not delete todos")
}

// SaveUser inserts or updates the user, enforcing username uniqueness.
func (c *bolt) SaveUser(user *model.User) error {
	stamp(user)

	payload, err := msgpack.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "could not serialize user")
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		index := tx.Bucket(bucketUsernames)

		if id := index.Get([]byte(user.Username)); id != nil && string(id) != user.ID {
			return ErrAlreadyExists
		}

		if err := tx.Bucket(bucketUsers).Put([]byte(user.ID), payload); err != nil {
			return err
		}
		return index.Put([]byte(user.Username), []byte(user.ID))
	})
	return errors.Wrap(err, "could not save user")
}

// FindUser returns the user for the given id (ULID).
func (c *bolt) FindUser(id string) (*model.User, error) {
	var user model.User

	err := c.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket(bucketUsers).Get([]byte(id))
		if payload == nil {
			return ErrNotFound
		}
		return msgpack.Unmarshal(payload, &user)
	})
	if err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByUsername returns the user for the given username.
func (c *bolt) FindUserByUsername(username string) (*model.User, error) {
	var user model.User

	err := c.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsernames).Get([]byte(username))
		if id == nil {
			return ErrNotFound
		}

		payload := tx.Bucket(bucketUsers).Get(id)
		if payload == nil {
			return ErrNotFound
		}
		return msgpack.Unmarshal(payload, &user)
	})
	if err != nil {
		return nil, errors.Wrap(err, "find user by username")
	}
	return &user, nil
}

// SaveSession stores the session, overwriting any previous one for the user.
func (c *bolt) SaveSession(session *model.Session) error {
	payload, err := msgpack.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "could not serialize session")
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(session.UserID), payload)
	})
	return errors.Wrap(err, "could not save session")
}

// FindSessionByUserID returns the session on file for the given user id.
func (c *bolt) FindSessionByUserID(userID string) (*model.Session, error) {
	var session model.Session

	err := c.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket(bucketSessions).Get([]byte(userID))
		if payload == nil {
			return ErrNotFound
		}
		return msgpack.Unmarshal(payload, &session)
	})
	if err != nil {
		return nil, errors.Wrap(err, "find session by user id")
	}
	return &session, nil
}

// DeleteSessionByUserID removes the session on file. Idempotent.
func (c *bolt) DeleteSessionByUserID(userID string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(userID))
	})
	return errors.Wrap(err, "could not delete session")
}

func namespace(userID string) []byte {
	if userID == "" {
		return publicNamespace
	}
	return []byte(userID)
}

func stamp(m model.Model) {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		entropyMu.Lock()
		m.SetID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
		entropyMu.Unlock()
		m.SetCreatedAt(t)
	}
}
