package models

import "time"

// Session is a server-side login session. Sess holds the JSON-encoded
// SessionData; the cookie only carries the signed sid.
type Session struct {
	SID    string    `gorm:"column:sid;primaryKey;size:64" json:"sid"`
	Sess   string    `gorm:"column:sess;type:json;not null" json:"-"`
	Expire time.Time `gorm:"column:expire;not null;index:idx_user_sessions_expire" json:"expire"`
}

func (Session) TableName() string {
	return "user_sessions"
}

type SessionData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
