package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Client-input errors. Handlers map these to 4xx responses; nothing is
// persisted before they are raised.
var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum upload size")
	ErrNotAnImage      = errors.New("payload does not decode as an image")
	ErrBadConfirmToken = errors.New("confirm_token is required and must match the configured token")
	ErrAssetNotFound   = errors.New("asset not found")
)

// isUniqueViolation detects a uniqueness-constraint failure. The postgres
// driver translates these to gorm.ErrDuplicatedKey; the sqlite driver does
// not always, so the driver message texts are checked as a fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
