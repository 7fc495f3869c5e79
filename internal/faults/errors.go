package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify pipeline failures. Wrap tags an error
// with one of these so callers can branch with errors.Is without importing
// the producing package.
var (
	ErrContract    = errors.New("contract violation")
	ErrTimeout     = errors.New("task timeout")
	ErrExecution   = errors.New("task execution failure")
	ErrDeadline    = errors.New("session deadline exceeded")
	ErrTransition  = errors.New("invalid transition")
	ErrBusy        = errors.New("session busy")
	ErrUnavailable = errors.New("scheduler unavailable")
	ErrCanceled    = errors.New("session canceled")
)

// Kind is the string classification the fallback resolver matches on.
type Kind string

const (
	KindContract    Kind = "contract"
	KindTimeout     Kind = "timeout"
	KindExecution   Kind = "execution"
	KindDeadline    Kind = "deadline"
	KindTransition  Kind = "transition"
	KindBusy        Kind = "busy"
	KindUnavailable Kind = "unavailable"
	KindCanceled    Kind = "canceled"
	KindUnknown     Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker. The marker should be one of the exported
// sentinels above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its marker kind. Unmarked errors classify as
// execution failures when non-nil.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrContract):
		return KindContract
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrDeadline):
		return KindDeadline
	case errors.Is(err, ErrTransition):
		return KindTransition
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrExecution):
		return KindExecution
	default:
		return KindExecution
	}
}

// Fatal reports whether an error must never be retried. Transition errors
// are programmer mistakes and deadline exhaustion cannot be recovered
// within the same session.
func Fatal(err error) bool {
	switch Classify(err) {
	case KindDeadline, KindTransition, KindBusy, KindCanceled:
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
