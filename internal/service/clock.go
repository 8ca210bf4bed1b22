package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

type CodeGenerator interface {
	NewConfirmationCode() string
}

type uuidCodes struct{}

// NewConfirmationCode returns "RSV-" followed by eight upper-case hex digits.
func (uuidCodes) NewConfirmationCode() string {
	id := uuid.New()
	return "RSV-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// UUIDCodes generates confirmation codes from random UUIDs.
func UUIDCodes() CodeGenerator { return uuidCodes{} }
