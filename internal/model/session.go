package model

import "time"

// A Session holds the refresh token currently on file for a user.
// There is at most one per user; each login overwrites the previous one.
type Session struct {
	UserID       string    `json:"user_id"       msgpack:"user_id"`
	RefreshToken string    `json:"refresh_token" msgpack:"refresh_token"`
	ExpireAt     time.Time `json:"expire_at"     msgpack:"expire_at"`
}
