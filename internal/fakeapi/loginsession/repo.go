package loginsession

import "time"

// Session is one login held by the fake API.
type Session struct {
	ID        string
	UserID    string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repo interface {
	Upsert(session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
	ListByUser(userID string) ([]Session, error)
	DeleteByUser(userID string) error
}
