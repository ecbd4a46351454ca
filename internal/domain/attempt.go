package domain

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Verification is the human-confirmed correctness of an attempt
type Verification int

const (
	// Unverified means nobody checked the result (verification disabled or execution failed)
	Unverified Verification = iota
	VerifiedSuccess
	VerifiedFailure
)

// String returns the display form used by the CLI
func (v Verification) String() string {
	switch v {
	case VerifiedSuccess:
		return "verified"
	case VerifiedFailure:
		return "rejected"
	default:
		return "unverified"
	}
}

// NullBool encodes the verification as the nullable boolean stored on disk.
// Unverified maps to NULL.
func (v Verification) NullBool() sql.NullBool {
	switch v {
	case VerifiedSuccess:
		return sql.NullBool{Bool: true, Valid: true}
	case VerifiedFailure:
		return sql.NullBool{Bool: false, Valid: true}
	default:
		return sql.NullBool{}
	}
}

// VerificationFromNullBool is the inverse of NullBool
func VerificationFromNullBool(b sql.NullBool) Verification {
	if !b.Valid {
		return Unverified
	}
	if b.Bool {
		return VerifiedSuccess
	}
	return VerifiedFailure
}

// Attempt is one immutable command -> script -> execution -> verification record
type Attempt struct {
	ID           int64
	Command      string
	Script       string
	Succeeded    bool
	Verified     Verification
	ErrorMessage string // set iff !Succeeded
	Feedback     string // set only when Verified == VerifiedFailure
	CreatedAt    time.Time
}

// Reusable reports whether the attempt may be offered as a generation hint.
// Unverified successes count as reusable.
func (a *Attempt) Reusable() bool {
	return a.Succeeded && a.Verified != VerifiedFailure
}

// Validate checks the field invariants that must hold before an attempt is written
func (a *Attempt) Validate() error {
	if a.Command == "" {
		return fmt.Errorf("command is required")
	}
	if strings.TrimSpace(a.Script) == "" {
		return fmt.Errorf("script is required")
	}
	if a.Succeeded && a.ErrorMessage != "" {
		return fmt.Errorf("error message set on a successful attempt")
	}
	if !a.Succeeded && a.ErrorMessage == "" {
		return fmt.Errorf("error message missing on a failed attempt")
	}
	if a.Feedback != "" && a.Verified != VerifiedFailure {
		return fmt.Errorf("feedback is only recorded for rejected attempts")
	}
	if !a.Succeeded && a.Verified != Unverified {
		return fmt.Errorf("failed executions cannot be verified")
	}
	return nil
}

// Status returns a short outcome label for listings
func (a *Attempt) Status() string {
	if !a.Succeeded {
		return "failed"
	}
	return "ok/" + a.Verified.String()
}
