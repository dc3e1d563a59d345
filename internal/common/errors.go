// Package common defines shared constants and sentinel errors. Callers should
// use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors.
	ErrorInvalidArgument = errors.New("invalid argument")
)

// IsTempID reports whether id was generated locally and is still waiting for
// a server-assigned replacement.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
