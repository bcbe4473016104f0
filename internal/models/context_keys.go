package models

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// UserContextKey stores the authenticated user's ID in the request context.
	UserContextKey contextKey = "userID"
	// RolesContextKey stores the authenticated user's []string roles.
	RolesContextKey contextKey = "userRoles"
)

// GetUserIDFromContext extracts the user ID from the context.
// Returns uuid.Nil and false when the key is absent or of the wrong type.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	return userID, ok
}

// GetRolesFromContext extracts the roles slice from the context.
func GetRolesFromContext(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(RolesContextKey).([]string)
	return roles, ok
}
