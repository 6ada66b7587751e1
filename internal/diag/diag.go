// Package diag defines the structured diagnostic record shared by the
// playlist, guide and compatibility checkers. Severity categories are part of
// the contract: downstream consumers filter on them, so they are explicit
// fields rather than message-prefix conventions.
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies how actionable a finding is.
type Severity int

const (
	Error Severity = iota
	Warning
	Suggestion
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	case Suggestion:
		return "Suggestion"
	case Note:
		return "Note"
	}
	return "Unknown"
}

// MarshalJSON emits the severity name, not the enum ordinal, so serialized
// reports stay stable if ordering ever changes.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strings.ToLower(s.String()) + `"`), nil
}

// Source names the analysis that produced a diagnostic.
type Source string

const (
	SourcePlaylist Source = "M3U"
	SourceGuide    Source = "EPG"
	SourceCompat   Source = "Compatibility"
)

// Diagnostic is one finding. Line is the 1-indexed source line when the
// finding is tied to a specific input line, 0 otherwise.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Source   Source   `json:"source"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// String renders the conventional one-line text form, e.g.
// "M3U Warning (Line 3): ...". Exact wording is presentation; the severity
// category always survives as the second token.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Source))
	b.WriteByte(' ')
	b.WriteString(d.Severity.String())
	if d.Line > 0 {
		fmt.Fprintf(&b, " (Line %d)", d.Line)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// List accumulates diagnostics for one source in discovery order. No sorting
// or deduplication happens here; detection logic owns any duplicate tracking.
type List struct {
	Source Source
	Items  []Diagnostic
}

// NewList returns an empty list bound to src.
func NewList(src Source) *List {
	return &List{Source: src}
}

func (l *List) add(sev Severity, line int, format string, args ...any) {
	l.Items = append(l.Items, Diagnostic{
		Severity: sev,
		Source:   l.Source,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf appends an error finding. line may be 0 for document-level findings.
func (l *List) Errorf(line int, format string, args ...any) {
	l.add(Error, line, format, args...)
}

// Warnf appends a warning finding.
func (l *List) Warnf(line int, format string, args ...any) {
	l.add(Warning, line, format, args...)
}

// Suggestf appends a suggestion finding.
func (l *List) Suggestf(line int, format string, args ...any) {
	l.add(Suggestion, line, format, args...)
}

// Notef appends a note finding.
func (l *List) Notef(line int, format string, args ...any) {
	l.add(Note, line, format, args...)
}

// Strings renders every diagnostic in order.
func (l *List) Strings() []string {
	out := make([]string, len(l.Items))
	for i, d := range l.Items {
		out[i] = d.String()
	}
	return out
}

// Count returns how many diagnostics carry severity sev.
func (l *List) Count(sev Severity) int {
	n := 0
	for _, d := range l.Items {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Len returns the total number of diagnostics.
func (l *List) Len() int { return len(l.Items) }
