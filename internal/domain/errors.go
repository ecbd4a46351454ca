package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage marks failures of the attempt log medium
	ErrStorage = errors.New("storage error")

	// ErrDeclined is returned when the user refuses to run a generated script
	ErrDeclined = errors.New("execution declined")

	// ErrEmptyCommand is returned for blank commands
	ErrEmptyCommand = errors.New("empty command")
)

// StorageError wraps a failure reading or writing the attempt log
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// GenerationError reports that no script could be produced for a command
type GenerationError struct {
	Command string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating script for %q: %v", e.Command, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExecutionError describes a script that ran but did not succeed
type ExecutionError struct {
	Stderr     string
	Permission bool // missing OS automation permission
}

func (e *ExecutionError) Error() string {
	if e.Permission {
		return "execution failed: automation permission missing: " + e.Stderr
	}
	return "execution failed: " + e.Stderr
}
