package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// users can quote when reporting a problem.
//
// # Save Document Errors (SAVE001-SAVE099)
//
//	SAVE001 - Missing current year: the document has no usable CurrentYear
//	          Action: Upload a save file exported by the game
//	          Patterns: "no current year"
//
//	SAVE002 - Not a save file: the document contains no XML element
//	          Action: Check that you selected the save file, not another file
//	          Patterns: "no root element"
//
//	SAVE003 - Malformed save: the XML is broken or truncated
//	          Action: Re-export the save and upload it again
//	          Patterns: "malformed save document"
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Catalog unavailable: the item catalog could not be retrieved
//	         Action: Check CATALOG_SOURCE and try again
//	         Patterns: "catalog unavailable"
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Superseded: a newer load replaced this one before it finished
//	          Action: None; the newer file is shown
//	          Patterns: "load superseded"
//
//	LOAD002 - System busy: too many loads in progress
//	          Action: Please wait a moment and try again
//	          Patterns: "too many loads"
//
// # View Errors (VIEW001-VIEW099)
//
//	VIEW001 - Unknown column: sort requested on a column that does not exist
//	          Patterns: "unknown column"
//
//	VIEW002 - Nothing loaded: sort or filter before any save was loaded
//	          Patterns: "no save loaded"
//
//	VIEW003 - Invalid filter: a filter value could not be parsed
//	          Patterns: "invalid filter"
//
// # History Errors (HIST001-HIST099)
//
//	HIST001 - History disabled: no database is configured
//	          Patterns: "history disabled"
//
//	HIST002 - Unknown load: the load ID has no history entry
//	          Patterns: "load not found", "invalid load id"
//
//	DB004   - Connection refused: the history database is unreachable
//	          Patterns: "connection refused"
//
// # File and Request Errors
//
//	FILE001 - File too large      Patterns: "file too large"
//	FILE004 - No file             Patterns: "no file provided"
//	UPL004  - Request cancelled   Patterns: "context canceled"
//	UPL005  - Request timeout     Patterns: "context deadline exceeded"
//	RATE001 - Rate limited        Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// original error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so domain patterns come before
// the generic context patterns they may wrap.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Save document structure
	{
		pattern: "no current year",
		msg: UserMessage{
			Message: "The save file has no current year",
			Action:  "Upload a save file exported by the game",
			Code:    "SAVE001",
		},
	},
	{
		pattern: "no root element",
		msg: UserMessage{
			Message: "The file is not a save file",
			Action:  "Check that you selected the save file, not another file",
			Code:    "SAVE002",
		},
	},
	{
		pattern: "malformed save document",
		msg: UserMessage{
			Message: "The save file is damaged or incomplete",
			Action:  "Re-export the save and upload it again",
			Code:    "SAVE003",
		},
	},

	// Catalog
	{
		pattern: "catalog unavailable",
		msg: UserMessage{
			Message: "The item catalog could not be loaded",
			Action:  "Check the catalog source and try again",
			Code:    "CAT001",
		},
	},

	// Load lifecycle
	{
		pattern: "load superseded",
		msg: UserMessage{
			Message: "A newer file replaced this one",
			Action:  "No action needed; the newer file is shown",
			Code:    "LOAD001",
		},
	},
	{
		pattern: "too many loads",
		msg: UserMessage{
			Message: "Too many files are being loaded",
			Action:  "Please wait a moment and try again",
			Code:    "LOAD002",
		},
	},

	// View
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "That column does not exist",
			Action:  "Pick one of the listed columns",
			Code:    "VIEW001",
		},
	},
	{
		pattern: "no save loaded",
		msg: UserMessage{
			Message: "No save file is loaded",
			Action:  "Upload a save file first",
			Code:    "VIEW002",
		},
	},
	{
		pattern: "invalid filter",
		msg: UserMessage{
			Message: "A filter value is not valid",
			Action:  "Ages must be whole numbers",
			Code:    "VIEW003",
		},
	},

	// History
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Load history is not enabled",
			Action:  "Configure DATABASE_URL to keep a load history",
			Code:    "HIST001",
		},
	},
	{
		pattern: "load not found",
		msg: UserMessage{
			Message: "That load is not in the history",
			Action:  "It may have been pruned; pick a load from the history list",
			Code:    "HIST002",
		},
	},
	{
		pattern: "invalid load id",
		msg: UserMessage{
			Message: "That load ID is not valid",
			Action:  "Use a load ID from the history list",
			Code:    "HIST002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},

	// Files and requests
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Check that you selected a save file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a save file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again, or check the size of the save file",
			Code:    "UPL005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unmatched
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
