package datatable

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped table not found",
			err:         fmt.Errorf("show chart %q: %w", "x", ErrTableNotFound),
			wantCode:    "TBL001",
			wantMessage: "The table does not exist",
		},
		{
			name:        "empty table name",
			err:         ErrEmptyTableName,
			wantCode:    "TBL002",
			wantMessage: "The table name is empty",
		},
		{
			name:        "duplicate table name",
			err:         fmt.Errorf("select table: %w", ErrDuplicateTableName),
			wantCode:    "TBL003",
			wantMessage: "Another table already uses this name",
		},
		{
			name:        "invalid argument",
			err:         fmt.Errorf("remove source: %w", ErrInvalidArgument),
			wantCode:    "TBL004",
			wantMessage: "The request is missing a required value",
		},
		{
			name:        "confirmation required",
			err:         errors.New("select table: confirm: confirmation required"),
			wantCode:    "TBL005",
			wantMessage: "The open table has unsaved changes",
		},
		{
			name:        "unknown command",
			err:         errors.New(`unknown command "dataTableRename"`),
			wantCode:    "CMD001",
			wantMessage: "The command is not supported",
		},
		{
			name:        "nothing to undo",
			err:         errors.New("nothing to undo"),
			wantCode:    "CMD002",
			wantMessage: "There is no change to undo or redo",
		},
		{
			name:        "duplicate table id",
			err:         errors.New("add source \"Sales\": dataTableAddSource t1: duplicate table id"),
			wantCode:    "CMD003",
			wantMessage: "A table with this id is already in the collection",
		},
		{
			name:        "project not found",
			err:         errors.New("load q3: project not found"),
			wantCode:    "DB001",
			wantMessage: "No saved tables were found for this project",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "import slots busy",
			err:         errors.New("too many concurrent imports"),
			wantCode:    "IMP001",
			wantMessage: "The server is busy with other imports",
		},
		{
			name:        "cancelled context",
			err:         context.Canceled,
			wantCode:    "REQ001",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "deadline exceeded",
			err:         context.DeadlineExceeded,
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("TABLE NOT FOUND"),
			wantCode:    "TBL001",
			wantMessage: "The table does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}
