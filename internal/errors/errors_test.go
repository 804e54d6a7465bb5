package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E102",
			wantMsg: "Invalid configuration value",
			wantCat: CategoryConfig,
		},
		{
			name:    "server error",
			code:    "E120",
			wantMsg: "Failed to start listener",
			wantCat: CategoryServer,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "flag %q is required", "--addr")
	if err.Message != `flag "--addr" is required` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != "" || err.Error() != err.Message {
		t.Errorf("uncoded error = %q", err.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	err := New("E100").Wrap(fs.ErrNotExist)

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should see the wrapped cause")
	}
	if !strings.Contains(err.Error(), "E100") || !strings.Contains(err.Error(), "file does not exist") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E101") != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("E102").WithDetail("bad port")
	wrapped := fmt.Errorf("load: %w", coded)
	if got := FromError(wrapped, "E101"); got != coded {
		t.Errorf("FromError should return the existing LobbyError, got %v", got)
	}

	plain := errors.New("boom")
	got := FromError(plain, "E101")
	if got.Code != "E101" || !errors.Is(got, plain) {
		t.Errorf("FromError(plain) = %v", got)
	}
	if !HasCode(fmt.Errorf("ctx: %w", got), "E101") {
		t.Error("HasCode should find the code through wrapping")
	}
	if HasCode(plain, "E101") {
		t.Error("HasCode on a plain error should be false")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E102").
		WithDetail("max_sessions must be positive, got 0").
		WithSuggestion("Set max_sessions in lobbyd.toml").
		Wrap(errors.New("out of range"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E102: Invalid configuration value",
		"max_sessions must be positive, got 0",
		"cause: out of range",
		"Hint: Set max_sessions in lobbyd.toml",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}
