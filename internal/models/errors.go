package models

import "errors"

// Application-wide standard errors
var (
	// Map & Stage Errors
	ErrMapNotFound    = errors.New("map not found")
	ErrMapHasNoStages = errors.New("map has no stages")
	ErrStageNotFound  = errors.New("stage not found")

	// Session Errors
	ErrSessionNotFound    = errors.New("game session not found")
	ErrSessionClosed      = errors.New("game session is already finished")
	ErrSessionStillActive = errors.New("game session is still in progress")

	// ErrProgressCorrupted signals that a stored session contradicts the map it
	// was started against (more completed entries than the map has stages).
	// This must never happen through the progression protocol itself; it is
	// surfaced as a fatal internal error and always logged.
	ErrProgressCorrupted = errors.New("session progress is corrupted")

	// User & Authentication Errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
