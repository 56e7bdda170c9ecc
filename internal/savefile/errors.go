package savefile

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Structural errors. Any of these aborts the whole load.
var (
	// ErrNoRootElement means the input holds no XML element at all.
	ErrNoRootElement = errors.New("save document has no root element")

	// ErrMissingCurrentYear means the document-level CurrentYear leaf is
	// absent or not an integer, so no age can be computed.
	ErrMissingCurrentYear = errors.New("save document has no current year")
)

// Per-record errors returned by Extract.
var (
	// ErrMissingID means a person node has no parseable ID leaf.
	ErrMissingID = errors.New("person has no numeric ID")
)

// SyntaxError reports malformed XML in the save document.
type SyntaxError struct {
	Line int
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed save document at line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func wrapDecodeError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &SyntaxError{Line: se.Line, Msg: se.Msg, Err: err}
	}
	return fmt.Errorf("read save document: %w", err)
}

// IsStructural reports whether err means the input is not a save document of
// the expected shape.
func IsStructural(err error) bool {
	var se *SyntaxError
	return errors.Is(err, ErrNoRootElement) ||
		errors.Is(err, ErrMissingCurrentYear) ||
		errors.As(err, &se)
}

// Issue codes.
const (
	IssueMissingID        = "missing_id"
	IssuePartialBirthDate = "partial_birth_date"
)

// Issue is a per-record anomaly. Issues never abort a load.
type Issue struct {
	// Index is the zero-based position of the person node in the document.
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Raw is the offending text, when there is one.
	Raw string `json:"raw,omitempty"`
}

func (i Issue) String() string {
	if i.Raw != "" {
		return fmt.Sprintf("person %d: %s (%q)", i.Index, i.Message, i.Raw)
	}
	return fmt.Sprintf("person %d: %s", i.Index, i.Message)
}
