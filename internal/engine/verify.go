package engine

import (
	"context"

	"github.com/hlop3z/hisdb/internal/drift"
)

// NameMismatch is a history row whose recorded name differs from the
// registry entry with the same ID.
type NameMismatch struct {
	ID       string
	Recorded string
	Registry string
}

// VerifyReport compares the history table with the registry.
type VerifyReport struct {
	Applied int
	Pending int

	// Missing lists history rows whose ID is not in the registry.
	Missing []MigrationRecord

	NameMismatches []NameMismatch

	// OutOfOrder lists pending IDs that sort before the newest applied ID.
	// Apply runs them after migrations that were meant to follow them.
	OutOfOrder []string

	// ChainRoot is the merkle root of the applied history in order.
	ChainRoot string

	// SchemaFingerprint is the merkle root of the schema the applied history
	// implies. Empty when Missing is not.
	SchemaFingerprint string
}

// OK reports whether history and registry agree.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.NameMismatches) == 0 && len(r.OutOfOrder) == 0
}

// Verify checks the history table against the registry without changing
// either. A missing history table verifies as an empty history.
func (e *Engine) Verify(ctx context.Context, registry []Migration) (*VerifyReport, error) {
	if err := ValidateRegistry(registry); err != nil {
		return nil, err
	}
	applied, err := e.history.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Migration, len(registry))
	for _, m := range registry {
		byID[m.ID] = m
	}

	report := &VerifyReport{Applied: len(applied)}
	links := make([]drift.ChainLink, 0, len(applied))
	done := make(map[string]bool, len(applied))
	latest := ""
	for _, rec := range applied {
		links = append(links, drift.ChainLink{ID: rec.ID, Name: rec.Name})
		done[rec.ID] = true
		if rec.ID > latest {
			latest = rec.ID
		}

		m, ok := byID[rec.ID]
		if !ok {
			report.Missing = append(report.Missing, rec)
			continue
		}
		if m.Name != rec.Name {
			report.NameMismatches = append(report.NameMismatches, NameMismatch{
				ID:       rec.ID,
				Recorded: rec.Name,
				Registry: m.Name,
			})
		}
	}

	for _, m := range registry {
		if done[m.ID] {
			continue
		}
		report.Pending++
		if m.ID < latest {
			report.OutOfOrder = append(report.OutOfOrder, m.ID)
		}
	}

	if report.ChainRoot, err = drift.ChainRoot(links); err != nil {
		return nil, err
	}

	if len(report.Missing) == 0 {
		model, _, err := replayApplied(registry, applied)
		if err != nil {
			return nil, err
		}
		fp, err := drift.Fingerprint(model)
		if err != nil {
			return nil, err
		}
		report.SchemaFingerprint = fp.Root
	}
	return report, nil
}
