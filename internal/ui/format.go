package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"orderdash/pkg/errors"
)

var (
	// Output receives everything the package prints
	Output io.Writer = os.Stdout

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ColorEnabled reports whether ANSI colors are written
func ColorEnabled() bool {
	return supportsColor
}

// SetColor forces colors on or off, e.g. for --no-color
func SetColor(enabled bool) {
	supportsColor = enabled
	color.NoColor = !enabled
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	padding := (width - len(title) - 2) / 2
	if padding < 0 {
		padding = 0
	}
	right := width - 2 - padding - len(title)
	if right < 0 {
		right = 0
	}

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", right),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays a formatted error message
func ShowError(err error) {
	fmt.Fprintf(Output, "\n%s\n", ColorError("ERROR:"))

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(Output, "  [%s] %s\n", appErr.Code, appErr.Message)
		if appErr.Cause != nil {
			fmt.Fprintf(Output, "  %s\n", ColorDim(appErr.Cause.Error()))
		}
		for _, s := range appErr.Suggestions {
			fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(s))
		}
		return
	}

	// Parse error message for better formatting
	message := err.Error()
	lines := strings.Split(message, "\n")
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(Output, "  %s\n", line)
		} else {
			fmt.Fprintf(Output, "  %s\n", ColorDim(line))
		}
	}

	if suggestion := getSuggestion(message); suggestion != "" {
		fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Fprintf(Output, "\n%s %s\n", ColorBold("▶"), ColorBold(title))
	fmt.Fprintln(Output, strings.Repeat("─", 50))
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Fprintf(Output, "  %-20s %s\n", ColorDim(key+":"), value)
}

// getSuggestion returns helpful suggestions based on error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "authentication failed"), strings.Contains(lower, "incorrect username or password"):
		return "Check your username and run 'orderdash config set-password'"
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "Verify your Snowflake account identifier and network connectivity"
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "insufficient privileges"):
		return "Ensure your role can read the orders table"
	case strings.Contains(lower, "does not exist"):
		return "Check snowflake.table and snowflake.database in config.yaml"
	case strings.Contains(lower, "no such file"):
		return "Check source.path in config.yaml or pass --path"
	default:
		return ""
	}
}
