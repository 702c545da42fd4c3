package api

import "github.com/jrsteele09/authfront/users"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password         string `json:"password" validate:"required,min=6"`
	VerificationCode string `json:"verificationCode" validate:"required"`
}

// MFALoginRequest completes a login that answered mfaRequired.
type MFALoginRequest struct {
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Email string `json:"email" validate:"required,email"`
}

// VerifyMFARequest confirms an authenticator during MFA setup.
type VerifyMFARequest struct {
	Code      string `json:"code" validate:"required,len=6,numeric"`
	SecretKey string `json:"secretKey" validate:"required"`
}

// MessageResponse is the body of calls that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message     string      `json:"message"`
	MFARequired bool        `json:"mfaRequired"`
	User        *users.User `json:"user,omitempty"`
	AccessToken string      `json:"accessToken,omitempty"`
}

type MFASetup struct {
	Message    string `json:"message"`
	Secret     string `json:"secret"`
	QRImageURL string `json:"qrImageUrl"`
}

// CurrentUser is the body of GET /session/.
type CurrentUser struct {
	Message string      `json:"message"`
	User    *users.User `json:"user"`
}
