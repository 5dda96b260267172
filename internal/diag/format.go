package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders diagnostics one per line in the order given:
// "severity CODE subject: message", followed by indented notes.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeLine(&b, d.Severity.String(), d.Code.ID(), d.Subject, d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			b.WriteString("\n  ")
			writeLine(&b, "note", d.Code.ID(), n.Subject, n.Msg)
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, sev, code, subject, msg string) {
	msg = strings.Join(strings.Fields(msg), " ")
	if subject == "" {
		fmt.Fprintf(b, "%s %s %s", sev, code, msg)
		return
	}
	fmt.Fprintf(b, "%s %s %s: %s", sev, code, subject, msg)
}
