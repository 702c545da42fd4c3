package users

type UserRepo interface {
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	SetVerified(email string, verified bool) error
	SetPassword(email, passwordHash string) error
	SetTwoFactor(email string, enabled bool, secret string) error
}
