package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "orderdash/pkg/errors"
)

// captureOutput redirects the package output for the duration of fn
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	old := Output
	Output = &buf
	defer func() { Output = old }()
	fn()
	return buf.String()
}

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	original := supportsColor
	SetColor(enabled)
	t.Cleanup(func() { SetColor(original) })
}

func TestColorFunc(t *testing.T) {
	tests := []struct {
		name          string
		supportsColor bool
		input         string
		expectColored bool
	}{
		{
			name:          "with color support",
			supportsColor: true,
			input:         "test text",
			expectColored: true,
		},
		{
			name:          "without color support",
			supportsColor: false,
			input:         "test text",
			expectColored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withColor(t, tt.supportsColor)

			funcs := []func(string) string{
				ColorSuccess,
				ColorError,
				ColorWarning,
				ColorInfo,
				ColorProgress,
				ColorBold,
				ColorDim,
			}

			for _, colorFunc := range funcs {
				result := colorFunc(tt.input)

				if tt.expectColored && result == tt.input {
					t.Error("Expected colored output, got plain text")
				}

				if !tt.expectColored && result != tt.input {
					t.Error("Expected plain text, got colored output")
				}
			}
		})
	}
}

func TestShowHeader(t *testing.T) {
	withColor(t, false)

	output := captureOutput(t, func() { ShowHeader("Test Title") })

	if !strings.Contains(output, "+"+strings.Repeat("-", 48)+"+") {
		t.Error("Header missing border")
	}
	if !strings.Contains(output, "Test Title") {
		t.Error("Header missing title")
	}
}

func TestShowHeaderLongTitle(t *testing.T) {
	withColor(t, false)

	output := captureOutput(t, func() { ShowHeader(strings.Repeat("x", 80)) })

	if !strings.Contains(output, strings.Repeat("x", 80)) {
		t.Error("Long title was truncated")
	}
}

func TestShowError(t *testing.T) {
	withColor(t, false)

	tests := []struct {
		name              string
		err               error
		expectSuggestion  bool
		suggestionKeyword string
	}{
		{
			name:              "authentication error",
			err:               errors.New("authentication failed: invalid credentials"),
			expectSuggestion:  true,
			suggestionKeyword: "set-password",
		},
		{
			name:              "connection error",
			err:               errors.New("dial tcp: connection refused"),
			expectSuggestion:  true,
			suggestionKeyword: "network connectivity",
		},
		{
			name:              "missing table",
			err:               errors.New("Object 'CUSTOMER_ORDERS_2024' does not exist"),
			expectSuggestion:  true,
			suggestionKeyword: "snowflake.table",
		},
		{
			name:              "missing file",
			err:               errors.New("open orders.csv: no such file or directory"),
			expectSuggestion:  true,
			suggestionKeyword: "--path",
		},
		{
			name:             "generic error",
			err:              errors.New("unknown error occurred"),
			expectSuggestion: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, func() { ShowError(tt.err) })

			if !strings.Contains(output, tt.err.Error()) {
				t.Errorf("Error message not found in output: %s", output)
			}
			hasTip := strings.Contains(output, "TIP:")
			if hasTip != tt.expectSuggestion {
				t.Errorf("Expected suggestion=%v, got output: %s", tt.expectSuggestion, output)
			}
			if tt.expectSuggestion && !strings.Contains(output, tt.suggestionKeyword) {
				t.Errorf("Expected suggestion containing %q, got: %s", tt.suggestionKeyword, output)
			}
		})
	}
}

func TestShowErrorAppError(t *testing.T) {
	withColor(t, false)

	err := apperrors.New(apperrors.ErrCodeMissingColumn, "Source is missing a required column").
		WithSuggestions("Map the column name under source.columns in config.yaml")

	output := captureOutput(t, func() { ShowError(err) })

	if !strings.Contains(output, "[ODE3003]") {
		t.Errorf("Expected error code in output: %s", output)
	}
	if !strings.Contains(output, "source.columns") {
		t.Errorf("Expected suggestion in output: %s", output)
	}
}

func TestMessages(t *testing.T) {
	withColor(t, false)

	output := captureOutput(t, func() {
		ShowSuccess("done")
		ShowWarning("careful")
		ShowInfo("note")
		PrintKeyValue("Source", "csv")
	})

	for _, want := range []string{"SUCCESS: done", "WARNING: careful", "INFO: note", "Source:", "csv"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output: %s", want, output)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	withColor(t, false)

	output := captureOutput(t, func() {
		s := NewSpinner("loading")
		s.Start()
		s.Stop(true, "loaded")
		s.Stop(false, "again")
	})

	if !strings.Contains(output, "loaded") || strings.Contains(output, "again") {
		t.Errorf("Unexpected spinner output: %s", output)
	}
}
