package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hlop3z/hisdb/internal/alerr"
)

// Keys rendered on the location line rather than in the detail gutter.
var locationKeys = map[string]bool{
	"migration": true,
	"name":      true,
	"direction": true,
	"operation": true,
	"op":        true,
	"helps":     true,
}

// FormatError formats an error for the terminal in Cargo/rustc style:
//
//	error[E3001 MigrationFailed]: migration failed
//	  --> 20240102000000_admissions (up) operation 1 CreateTable
//	   |
//	   | sql: CREATE TABLE "Beds" (...)
//	   |
//	cause[E4001 StoreError]: store rejected statement
//	note: table "Beds" already exists
//
// Coded causes are rendered one after another; the first uncoded cause is
// printed as a note, since it carries the store's own message.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ae *alerr.Error
	if !errors.As(err, &ae) {
		return formatGenericError(err)
	}

	var b strings.Builder
	var helps []string
	label := Error("error")
	for ae != nil {
		writeCoded(&b, label, ae)
		helps = append(helps, ae.Helps()...)
		label = Note("cause")

		cause := ae.GetCause()
		if cause == nil {
			break
		}
		var next *alerr.Error
		if !errors.As(cause, &next) {
			b.WriteString(Note("note"))
			b.WriteString(": ")
			b.WriteString(strings.TrimSpace(cause.Error()))
			b.WriteString("\n")
			break
		}
		ae = next
	}

	for _, h := range helps {
		b.WriteString(Help("help"))
		b.WriteString(": ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	return b.String()
}

func writeCoded(b *strings.Builder, label string, e *alerr.Error) {
	code := e.GetCode()
	ctx := e.GetContext()

	fmt.Fprintf(b, "%s[%s %s]: %s\n", label, Code(string(code)), code.Kind(), e.GetMessage())

	if loc := location(ctx); loc != "" {
		b.WriteString("  ")
		b.WriteString(Arrow())
		b.WriteString(" ")
		b.WriteString(Header(loc))
		b.WriteString("\n")
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if !locationKeys[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	gutter := "   " + Pipe()
	b.WriteString(gutter + "\n")
	for _, k := range keys {
		fmt.Fprintf(b, "%s %s: %v\n", gutter, Dim(k), ctx[k])
	}
	b.WriteString(gutter + "\n")
}

// location renders "<id> (<direction>) operation <i> <op>" from whatever
// parts of the migration context are present.
func location(ctx map[string]any) string {
	id, _ := ctx["migration"].(string)
	if id == "" {
		return ""
	}
	parts := []string{id}
	if dir, ok := ctx["direction"].(string); ok {
		parts = append(parts, "("+dir+")")
	}
	if idx, ok := ctx["operation"]; ok {
		parts = append(parts, fmt.Sprintf("operation %v", idx))
	}
	if op, ok := ctx["op"].(string); ok {
		parts = append(parts, op)
	}
	return strings.Join(parts, " ")
}

func formatGenericError(err error) string {
	return Error("error") + ": " + err.Error() + "\n"
}

// FormatWarning formats a single warning line.
func FormatWarning(msg string) string {
	return Warning("warning") + ": " + msg + "\n"
}

// FormatNote formats a single note line.
func FormatNote(msg string) string {
	return Note("note") + ": " + msg + "\n"
}

// FormatSuccess formats a single success line.
func FormatSuccess(msg string) string {
	return Success("success") + ": " + msg + "\n"
}
