package ui

import "fmt"

// Status symbols. Status lines are never colored.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
)

func statusLine(symbol, msg string) string {
	return symbol + " " + msg
}

// Success prefixes msg with a check mark.
func Success(msg string) string { return statusLine(SymbolSuccess, msg) }

func Successf(format string, args ...interface{}) string {
	return Success(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) string {
	return statusLine(SymbolError, fmt.Sprintf(format, args...))
}

func Warningf(format string, args ...interface{}) string {
	return statusLine(SymbolWarning, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) string {
	return statusLine(SymbolInfo, fmt.Sprintf(format, args...))
}

// DocID renders a document id as "#12" in the accent color.
func DocID(id int64) string {
	return Accent.Render(fmt.Sprintf("#%d", id))
}

// Hint renders secondary text.
func Hint(msg string) string {
	return Muted.Render(msg)
}

// Count pairs n with the matching noun ("1 document", "3 documents").
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("%d %s", n, noun)
}
