package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies every failure the core can surface.
type ErrorType string

const (
	ErrRateLimit ErrorType = "RATE_LIMIT"    // upstream 429
	ErrAPI       ErrorType = "API_ERROR"     // other non-2xx
	ErrNetwork   ErrorType = "NETWORK_ERROR" // transport failure
	ErrNotFound  ErrorType = "NOT_FOUND"     // zero results or no poster
	ErrCache     ErrorType = "CACHE_ERROR"   // persistent-store failure on the poster read path
)

// AppError is the single typed error carried across service boundaries.
type AppError struct {
	Type      ErrorType      `json:"type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewAppError builds a typed error stamped with the current time.
func NewAppError(t ErrorType, message string, details map[string]any) *AppError {
	return &AppError{Type: t, Message: message, Details: details, Timestamp: time.Now().UTC()}
}

// Wrap types an untyped error. An error that already carries a type is
// returned unchanged, never re-wrapped.
func Wrap(err error, t ErrorType, message string) *AppError {
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	details := map[string]any{}
	if err != nil {
		details["cause"] = err.Error()
	}
	return NewAppError(t, message, details)
}

// TypeOf returns the classification of err, or "" for untyped errors.
func TypeOf(err error) ErrorType {
	var app *AppError
	if errors.As(err, &app) {
		return app.Type
	}
	return ""
}

var userMessages = map[ErrorType]string{
	ErrRateLimit: "Too many requests. Please wait a moment and try again.",
	ErrAPI:       "Unable to fetch movie data. Please try again later.",
	ErrNetwork:   "Network error. Please check your internet connection.",
	ErrNotFound:  "Movie not found. Please check the title and try again.",
	ErrCache:     "Cache error. Your data may not be saved.",
}

const unknownUserMessage = "An unexpected error occurred. Please try again."

// UserMessage maps an error to the short, kind-specific string shown to
// users. Raw error text never leaks through this path.
func UserMessage(err error) string {
	if msg, ok := userMessages[TypeOf(err)]; ok {
		return msg
	}
	return unknownUserMessage
}
