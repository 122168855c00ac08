package model

// A User represents a database record.
// Password holds the bcrypt hash, never the clear-text value.
type User struct {
	Base `msgpack:",inline"`

	Username string `json:"username" msgpack:"username"`
	Password string `json:"-"        msgpack:"password"`
}
