package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hlop3z/hisdb/internal/drift"
	"github.com/hlop3z/hisdb/internal/engine"
)

// Time formats used by command output.
const (
	TimeJSON    = time.RFC3339
	TimeDisplay = "2006-01-02 15:04:05"
)

// FormatCount returns "1 migration" or "3 migrations".
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// FormatDuration rounds d for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// StatusCounts tallies a status listing.
type StatusCounts struct {
	Applied  int
	Pending  int
	Orphaned int
}

// CountStatuses tallies applied, pending and orphaned entries.
func CountStatuses(statuses []engine.MigrationStatus) StatusCounts {
	var c StatusCounts
	for _, s := range statuses {
		switch {
		case s.Orphaned:
			c.Orphaned++
		case s.Applied:
			c.Applied++
		default:
			c.Pending++
		}
	}
	return c
}

// RenderStatus renders the migration status table with a summary line and,
// when known, the fingerprint of the applied schema.
func RenderStatus(statuses []engine.MigrationStatus, fingerprint string) string {
	var b strings.Builder
	b.WriteString(RenderTitle("Migration Status"))
	b.WriteString("\n\n")

	if len(statuses) == 0 {
		b.WriteString("  " + Dim("No migrations registered.") + "\n")
		return b.String()
	}

	c := CountStatuses(statuses)
	parts := []string{Success(fmt.Sprintf("%d applied", c.Applied))}
	if c.Pending > 0 {
		parts = append(parts, Warning(fmt.Sprintf("%d pending", c.Pending)))
	}
	if c.Orphaned > 0 {
		parts = append(parts, Error(fmt.Sprintf("%d orphaned", c.Orphaned)))
	}
	b.WriteString("  " + strings.Join(parts, "  ") + "\n\n")

	table := NewStyledTable("ID", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		table.AddRow(s.ID, s.Name, statusBadge(s), appliedAt(s, TimeDisplay))
	}
	b.WriteString(table.String())

	if fingerprint != "" {
		b.WriteString("\n  " + Dim("schema") + " " + Highlight(drift.ShortHash(fingerprint)) + "\n")
	}
	return b.String()
}

func statusBadge(s engine.MigrationStatus) string {
	switch {
	case s.Orphaned:
		return RenderOrphanedBadge()
	case s.Applied:
		return RenderAppliedBadge()
	}
	return RenderPendingBadge()
}

// StatusLabel returns "applied", "pending" or "orphaned".
func StatusLabel(s engine.MigrationStatus) string {
	switch {
	case s.Orphaned:
		return "orphaned"
	case s.Applied:
		return "applied"
	}
	return "pending"
}

func appliedAt(s engine.MigrationStatus, layout string) string {
	if s.AppliedAt.IsZero() {
		return ""
	}
	return s.AppliedAt.UTC().Format(layout)
}

type statusJSON struct {
	Applied     int             `json:"applied"`
	Pending     int             `json:"pending"`
	Orphaned    int             `json:"orphaned"`
	Fingerprint string          `json:"schema_fingerprint,omitempty"`
	Migrations  []migrationJSON `json:"migrations"`
}

type migrationJSON struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	AppliedAt *string `json:"applied_at"`
}

// WriteStatusJSON writes the status listing as indented JSON.
func WriteStatusJSON(w io.Writer, statuses []engine.MigrationStatus, fingerprint string) error {
	c := CountStatuses(statuses)
	out := statusJSON{
		Applied:     c.Applied,
		Pending:     c.Pending,
		Orphaned:    c.Orphaned,
		Fingerprint: fingerprint,
		Migrations:  make([]migrationJSON, len(statuses)),
	}
	for i, s := range statuses {
		m := migrationJSON{ID: s.ID, Name: s.Name, Status: StatusLabel(s)}
		if at := appliedAt(s, TimeJSON); at != "" {
			m.AppliedAt = &at
		}
		out.Migrations[i] = m
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// -----------------------------------------------------------------------------
// Apply / Revert results
// -----------------------------------------------------------------------------

// RenderRecords summarizes the migrations an Apply or Revert run processed.
// verb is "Applied" or "Reverted".
func RenderRecords(verb string, records []engine.MigrationRecord, elapsed time.Duration) string {
	if len(records) == 0 {
		return Success("✓") + " Nothing to do, database is up to date.\n"
	}

	var lines []string
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s %s  %s", Success("✓"), r.ID, Dim(r.Name)))
	}
	title := fmt.Sprintf("%s %s in %s", verb,
		FormatCount(len(records), "migration", "migrations"), FormatDuration(elapsed))
	return RenderSuccessPanel(title, strings.Join(lines, "\n")) + "\n"
}

// -----------------------------------------------------------------------------
// Plan
// -----------------------------------------------------------------------------

// RenderPlan lists every statement a run would send, grouped by migration,
// followed by the schema change the run would make.
func RenderPlan(dir engine.Direction, steps []engine.Step, change *drift.Comparison) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("Plan (%s)", dir)))
	b.WriteString("\n\n")

	if len(steps) == 0 {
		b.WriteString("  " + Dim("Nothing to do.") + "\n")
		return b.String()
	}

	for _, step := range steps {
		fmt.Fprintf(&b, "%s %s %s\n", Highlight("→"), Header(step.Migration.ID),
			Dim("("+FormatCount(len(step.Statements), "statement", "statements")+")"))
		for _, s := range step.Statements {
			prefix := fmt.Sprintf("  %s %s ", Dim(fmt.Sprintf("%2d", s.Index)), Pipe())
			for i, line := range strings.Split(s.SQL, "\n") {
				if i > 0 {
					prefix = "     " + Pipe() + " "
				}
				b.WriteString(prefix + line + "\n")
			}
		}
		b.WriteString("\n")
	}

	if change != nil {
		for _, line := range strings.Split(strings.TrimRight(drift.FormatComparison(change), "\n"), "\n") {
			trimmed := strings.TrimLeft(line, " ")
			b.WriteString(line[:len(line)-len(trimmed)] + Marker(trimmed) + "\n")
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Verify
// -----------------------------------------------------------------------------

// RenderVerify renders a history verification report.
func RenderVerify(r *engine.VerifyReport) string {
	var b strings.Builder
	b.WriteString(RenderTitle("History Verification"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s  %s\n", Success(fmt.Sprintf("%d applied", r.Applied)),
		Warning(fmt.Sprintf("%d pending", r.Pending)))
	if r.ChainRoot != "" {
		fmt.Fprintf(&b, "  %s %s\n", Dim("chain "), Highlight(drift.ShortHash(r.ChainRoot)))
	}
	if r.SchemaFingerprint != "" {
		fmt.Fprintf(&b, "  %s %s\n", Dim("schema"), Highlight(drift.ShortHash(r.SchemaFingerprint)))
	}
	b.WriteString("\n")

	if r.OK() {
		b.WriteString(RenderSuccessPanel("History matches registry", "Every applied migration is registered and in order."))
		b.WriteString("\n")
		return b.String()
	}

	var lines []string
	for _, m := range r.Missing {
		lines = append(lines, fmt.Sprintf("%s %s %s", Error("missing"), m.ID, Dim("applied but not in registry")))
	}
	for _, m := range r.NameMismatches {
		lines = append(lines, fmt.Sprintf("%s %s %s", Warning("renamed"), m.ID,
			Dim(fmt.Sprintf("recorded %q, registry %q", m.Recorded, m.Registry))))
	}
	for _, id := range r.OutOfOrder {
		lines = append(lines, fmt.Sprintf("%s %s %s", Warning("out of order"), id,
			Dim("pending but older than the newest applied migration")))
	}
	b.WriteString(RenderWarningPanel("History does not match registry", strings.Join(lines, "\n")))
	b.WriteString("\n")
	return b.String()
}

// -----------------------------------------------------------------------------
// Lock
// -----------------------------------------------------------------------------

// RenderUnlock reports the outcome of a forced unlock.
func RenderUnlock(before *engine.LockInfo) string {
	if before == nil || !before.Locked {
		return RenderSuccessPanel("Lock available", "No migration lock was held.") + "\n"
	}
	lines := []string{"Held by: " + before.LockedBy}
	if before.LockedAt != nil {
		lines = append(lines, "Since:   "+before.LockedAt.UTC().Format(TimeDisplay))
	}
	return RenderWarningPanel("Lock released", strings.Join(lines, "\n")) + "\n"
}
