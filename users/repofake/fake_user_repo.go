package fakeuserrepo

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/authfront/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// ErrNotFound is returned for unknown users.
var ErrNotFound = errors.New("not found")

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	return nil
}

// GetByEmail returns a copy of the stored user.
func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := *ur.users[id]
	return &u, nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	stored, ok := ur.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *stored
	return &u, nil
}

func (ur *FakeUserRepo) SetVerified(email string, verified bool) error {
	return ur.update(email, func(u *users.User) {
		u.IsEmailVerified = verified
	})
}

func (ur *FakeUserRepo) SetPassword(email, passwordHash string) error {
	return ur.update(email, func(u *users.User) {
		u.PasswordHash = passwordHash
	})
}

func (ur *FakeUserRepo) SetTwoFactor(email string, enabled bool, secret string) error {
	return ur.update(email, func(u *users.User) {
		u.Preferences.EnableTwoFactor = enabled
		u.Preferences.TwoFactorSecret = secret
	})
}

func (ur *FakeUserRepo) update(email string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return ErrNotFound
	}
	fn(ur.users[id])
	return nil
}
