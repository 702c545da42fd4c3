package loginsession

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("session not found")

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Session // userID -> sessionID -> Session
	owners   map[string]string             // sessionID -> userID
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]map[string]Session),
		owners:   make(map[string]string),
	}
}

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(session Session) error {
	if session.UserID == "" {
		return fmt.Errorf("userID is required")
	}
	if session.ID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.UserID]; !ok {
		r.sessions[session.UserID] = make(map[string]Session)
	}
	r.sessions[session.UserID][session.ID] = session
	r.owners[session.ID] = session.UserID
	return nil
}

func (r *InMemoryRepo) Get(sessionID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return r.sessions[userID][sessionID], nil
}

// Delete removes a session; deleting an unknown session is not an error
func (r *InMemoryRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return nil
	}
	delete(r.owners, sessionID)

	userSessions := r.sessions[userID]
	delete(userSessions, sessionID)
	if len(userSessions) == 0 {
		delete(r.sessions, userID)
	}
	return nil
}

// ListByUser returns the user's sessions, oldest first
func (r *InMemoryRepo) ListByUser(userID string) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Session, 0, len(r.sessions[userID]))
	for _, s := range r.sessions[userID] {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *InMemoryRepo) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.sessions[userID] {
		delete(r.owners, id)
	}
	delete(r.sessions, userID)
	return nil
}
