package auth

import (
	"time"

	"github.com/google/uuid"
)

// MethodPassword marks accounts created through Register.
const MethodPassword = "password"

// User represents a user account in the authentication system.
type User struct {
	ID         uuid.UUID
	Email      string
	Name       string // Display name (optional)
	AuthMethod string
	CreatedAt  time.Time
}
