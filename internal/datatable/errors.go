package datatable

// errors.go defines the sentinel errors of the controller and maps them,
// together with errors bubbling up from the dispatcher and the snapshot
// store, to user-facing messages with a support code.
//
//	TBL001 - Table not found
//	TBL002 - Empty table name
//	TBL003 - Duplicate table name
//	TBL004 - Invalid argument
//	TBL005 - Unsaved changes need an answer
//	CMD001 - Unknown command
//	CMD002 - Nothing to undo / redo
//	CMD003 - Duplicate table id
//	DB001  - No saved snapshot
//	DB004  - Connection refused
//	DB006  - Timeout
//	REQ001 - Request cancelled
//	IMP001 - Import slots busy
//	ERR000 - Anything else
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins.

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyTableName is returned by SaveTable when the draft has no title.
	ErrEmptyTableName = errors.New("empty table name")

	// ErrDuplicateTableName is returned by SaveTable when another table
	// already uses the draft title.
	ErrDuplicateTableName = errors.New("duplicate table name")

	// ErrTableNotFound is returned when an id does not resolve to a table.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidArgument is returned for nil or empty inputs.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UserMessage is a user-friendly description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "The table does not exist",
			Action:  "Reload the table list and try again",
			Code:    "TBL001",
		},
	},
	{
		pattern: "empty table name",
		msg: UserMessage{
			Message: "The table name is empty",
			Action:  "Enter a name for the table",
			Code:    "TBL002",
		},
	},
	{
		pattern: "duplicate table name",
		msg: UserMessage{
			Message: "Another table already uses this name",
			Action:  "Choose a different name",
			Code:    "TBL003",
		},
	},
	{
		pattern: "invalid argument",
		msg: UserMessage{
			Message: "The request is missing a required value",
			Action:  "Check the table id and payload",
			Code:    "TBL004",
		},
	},
	{
		pattern: "unknown command",
		msg: UserMessage{
			Message: "The command is not supported",
			Action:  "Please contact support",
			Code:    "CMD001",
		},
	},
	{
		pattern: "nothing to",
		msg: UserMessage{
			Message: "There is no change to undo or redo",
			Action:  "",
			Code:    "CMD002",
		},
	},
	{
		pattern: "duplicate table id",
		msg: UserMessage{
			Message: "A table with this id is already in the collection",
			Action:  "Import the table without an id to get a new one",
			Code:    "CMD003",
		},
	},
	{
		pattern: "confirmation required",
		msg: UserMessage{
			Message: "The open table has unsaved changes",
			Action:  "Choose whether to save them before switching tables",
			Code:    "TBL005",
		},
	},
	{
		pattern: "project not found",
		msg: UserMessage{
			Message: "No saved tables were found for this project",
			Action:  "Save the project first or check the project name",
			Code:    "DB001",
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
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The server is busy with other imports",
			Action:  "Please wait a moment and upload the file again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a UserMessage. A nil error maps to the
// zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errLower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errLower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}
