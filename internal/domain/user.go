package domain

import "time"

// Role is the account role assigned by the backend.
type Role string

const (
	RoleUser       Role = "user"
	RoleStoreOwner Role = "storeOwner"
	RoleAdmin      Role = "admin"
)

// User is the identity record returned by GET /auth/me.
type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Address         string    `json:"address,omitempty"`
	ProfilePic      string    `json:"profilePic,omitempty"`
	Role            Role      `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	Password   string `json:"password"`
	ProfilePic string `json:"profilePic,omitempty"`
	Role       Role   `json:"role,omitempty"`
}

type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ResetPasswordRequestPayload struct {
	Email string `json:"email"`
}

// ResetPasswordPayload carries the emailed reset token. The token travels in
// the URL path, only the new password is sent in the body.
type ResetPasswordPayload struct {
	Token       string `json:"-"`
	NewPassword string `json:"newPassword"`
}

type EmailVerificationPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// MessageData is the data block of endpoints that only acknowledge.
type MessageData struct {
	Message string `json:"message"`
}

// VerificationData is the data block of POST /auth/verify-token.
type VerificationData struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}
