package sessions

import "time"

// Session is one login of the user as the API reports it. Exactly one
// session in a list fetched by an authenticated caller is current.
type Session struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsCurrent bool      `json:"isCurrent"`
}

// List is the body of GET /session/all.
type List struct {
	Message  string    `json:"message"`
	Sessions []Session `json:"sessions"`
}

// Current returns the caller's own session, if the list has one.
func (l *List) Current() (Session, bool) {
	for _, s := range l.Sessions {
		if s.IsCurrent {
			return s, true
		}
	}
	return Session{}, false
}

// Others returns every session except the current one.
func (l *List) Others() []Session {
	others := make([]Session, 0, len(l.Sessions))
	for _, s := range l.Sessions {
		if !s.IsCurrent {
			others = append(others, s)
		}
	}
	return others
}
