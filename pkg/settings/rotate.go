package settings

import (
	"context"
	"fmt"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// RotationReport summarises a Rotate run.
type RotationReport struct {
	Scanned int
	Rotated int
}

// Rotate re-seals every secret field that only a retired data key can
// open, and seals flagged fields still stored in plaintext. The codec must
// be built on a secrets.Keyring for retired keys to be recognised.
//
// Rows are rewritten whole, so run it while writers are quiet.
func (r *Resolver) Rotate(ctx context.Context) (RotationReport, error) {
	var report RotationReport
	err := r.rotate(ctx, &report)

	ev := audit.RotationEvent{
		Actor:   identity.Actor(ctx),
		Scanned: report.Scanned,
		Rotated: report.Rotated,
		Success: err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	r.auditor.Log(ev)
	r.logger.InfoContext(ctx, "secrets rotation finished", "scanned", report.Scanned, "rotated", report.Rotated, "error", err)
	return report, err
}

func (r *Resolver) rotate(ctx context.Context, report *RotationReport) error {
	entries, err := r.store.ListEntries(ctx, store.EntryFilter{})
	if err != nil {
		return err
	}
	for _, e := range entries {
		fields := r.registry.EncryptedFields(e.Key)
		if len(fields) == 0 {
			continue
		}
		report.Scanned++

		doc, changed, err := r.codec.Reencrypt(e.Key, e.Value, fields)
		if err != nil {
			return fmt.Errorf("rotate %s (%s): %w", e.Key, e.Scope(), err)
		}
		if !changed {
			continue
		}
		if _, err := r.store.UpsertOne(ctx, e.Key, e.Scope(), doc); err != nil {
			return err
		}
		if err := r.invalidate(ctx, e.Key, e.Scope()); err != nil {
			return fmt.Errorf("invalidate cached %s: %w", e.Key, err)
		}
		report.Rotated++
	}
	return nil
}
