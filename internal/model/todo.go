package model

// A Todo represents a single to-do list entry.
// Entries are keyed by their ULID so the store returns them in creation order.
type Todo struct {
	Base `msgpack:",inline"`

	Content   string `json:"content"   msgpack:"content"`
	IsChecked bool   `json:"isChecked" msgpack:"is_checked"`
}
