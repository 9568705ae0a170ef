package roster

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired means no credential is configured. No network call
	// was attempted; the fix is to configure a token.
	ErrAuthRequired = errors.New("token required, configure one with 'karatekonnect token set'")

	// ErrDataUnavailable means the remote fetch failed and there is no
	// cached copy at all
	ErrDataUnavailable = errors.New("failed to load data")

	// ErrUpdateFailed means the remote rejected or never received a write.
	// The local cache is left untouched.
	ErrUpdateFailed = errors.New("failed to save data")

	// ErrInvalidDocument means the document breaks a client-side invariant
	// and was not sent
	ErrInvalidDocument = errors.New("invalid document")

	// ErrAthleteNotFound is matched by every *AthleteNotFoundError
	ErrAthleteNotFound = errors.New("athlete not found")
)

// AthleteNotFoundError names the missing athlete
type AthleteNotFoundError struct {
	ID string
}

func (e *AthleteNotFoundError) Error() string {
	return fmt.Sprintf("athlete not found: %s", e.ID)
}

func (e *AthleteNotFoundError) Is(target error) bool {
	return target == ErrAthleteNotFound
}
