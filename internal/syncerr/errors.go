// Package syncerr defines the error taxonomy of the state synchronization core.
//
// None of these errors is meant to reach a user-initiated action: callers
// degrade to "succeeded in memory, persistence may be stale" and surface a
// notice instead.
package syncerr

import (
	"errors"
	"fmt"
)

// Code categorizes synchronization errors.
type Code string

const (
	// CodeStorageParse indicates corrupt or unreadable local data.
	CodeStorageParse Code = "STORAGE_PARSE"

	// CodeBackend indicates a remote call failed (transport or auth).
	CodeBackend Code = "BACKEND"

	// CodeConflict indicates a duplicate insert of an existing record.
	CodeConflict Code = "CONFLICT"

	// CodeQuota indicates a local storage write exceeded the quota.
	CodeQuota Code = "QUOTA"
)

// Error is a categorized synchronization error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the failing operation, e.g. "favorites.add".
	Op string

	// Key identifies the affected storage key or record, if any.
	Key string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StorageParse wraps a decode failure of the value stored under key.
func StorageParse(key string, err error) *Error {
	return &Error{Code: CodeStorageParse, Op: "local.load", Key: key, Err: err}
}

// Backend wraps a remote failure.
func Backend(op string, err error) *Error {
	return &Error{Code: CodeBackend, Op: op, Err: err}
}

// Conflict reports that the record identified by key already exists.
func Conflict(op, key string) *Error {
	return &Error{Code: CodeConflict, Op: op, Key: key}
}

// Quota reports that writing size bytes under key would exceed limit.
func Quota(key string, size, limit int64) *Error {
	return &Error{
		Code: CodeQuota,
		Op:   "local.save",
		Key:  key,
		Err:  fmt.Errorf("%d bytes exceeds quota of %d bytes", size, limit),
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsStorageParse reports whether err is a StorageParse error.
func IsStorageParse(err error) bool { return CodeOf(err) == CodeStorageParse }

// IsBackend reports whether err is a Backend error.
func IsBackend(err error) bool { return CodeOf(err) == CodeBackend }

// IsConflict reports whether err is a Conflict error.
// Uses errors.As, so a Conflict wrapped inside a Backend error is not a conflict.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsQuota reports whether err is a Quota error.
func IsQuota(err error) bool { return CodeOf(err) == CodeQuota }
