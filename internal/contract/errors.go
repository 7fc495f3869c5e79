package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gridsight/internal/faults"
)

var reasonPrinter = message.NewPrinter(language.English)

// ViolationError reports a payload that failed contract validation. It
// carries the contract name, the offending field (instance location), and a
// human-readable reason.
type ViolationError struct {
	Contract string
	Field    string
	Reason   string
}

func (e *ViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("contract %s: %s", e.Contract, e.Reason)
	}
	return fmt.Sprintf("contract %s: field %s: %s", e.Contract, e.Field, e.Reason)
}

func (e *ViolationError) Unwrap() error { return faults.ErrContract }

// IsViolation reports whether err is a contract violation.
func IsViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}

func violationFrom(name string, err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ViolationError{Contract: name, Reason: err.Error()}
	}
	leaf := deepestCause(ve)
	field := "/" + strings.Join(leaf.InstanceLocation, "/")
	if field == "/" {
		field = ""
	}
	return &ViolationError{
		Contract: name,
		Field:    field,
		Reason:   leaf.ErrorKind.LocalizedString(reasonPrinter),
	}
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
