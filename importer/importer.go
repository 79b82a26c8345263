// Package importer reconciles exported Confluence i18n snapshots into
// group translation tables.
//
// Imports are additive: new keys land as pending rows, untranslated rows
// follow source-text drift, and rows that already carry a translation are
// never touched. Running the same import twice is a no-op.
package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
	"github.com/astrateam-net/confluence-localization-toolkit/store"
)

// Reconciler merges snapshots into the store.
type Reconciler struct {
	store  *store.Store
	logger *slog.Logger
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New creates a Reconciler on top of the given store.
func New(st *store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args describes one import run.
type Args struct {
	GroupKey    string            // Target group, created on first import
	DisplayName string            // Registry display name (optional)
	Description string            // Registry description (optional)
	Snapshot    map[string]string // i18n key to source text
}

// Import merges the snapshot into the group's table, creating the group if
// needed. Entries with an empty key or blank text are counted as malformed
// and skipped; they never abort the run.
func (r *Reconciler) Import(ctx context.Context, args Args) (loctool.ImportReport, error) {
	var report loctool.ImportReport

	table, err := r.store.EnsureGroup(ctx, args.GroupKey, args.DisplayName, args.Description)
	if err != nil {
		return report, err
	}

	// Stable order keeps created_at ordering deterministic across runs.
	keys := make([]string, 0, len(args.Snapshot))
	for key := range args.Snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		text := args.Snapshot[key]
		if strings.TrimSpace(key) == "" || strings.TrimSpace(text) == "" {
			report.Malformed++
			continue
		}

		outcome, err := r.store.UpsertRow(ctx, table, key, text, DerivePluginKey(key))
		if err != nil {
			return report, err
		}

		switch outcome {
		case store.Inserted:
			report.Inserted++
		case store.UpdatedText:
			report.Updated++
		case store.Unchanged:
			report.Unchanged++
		case store.ProtectedSkip:
			report.Protected++
		}
	}

	r.logger.Info("import finished",
		"group", args.GroupKey,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"protected", report.Protected,
		"malformed", report.Malformed)
	return report, nil
}

// ImportJSON parses data as a flat string-to-string JSON object and merges
// it like Import. Non-string values are counted as malformed entries.
func (r *Reconciler) ImportJSON(ctx context.Context, args Args, data []byte) (loctool.ImportReport, error) {
	snapshot, malformed, err := ParseSnapshot(data)
	if err != nil {
		return loctool.ImportReport{}, err
	}

	args.Snapshot = snapshot
	report, err := r.Import(ctx, args)
	report.Malformed += malformed
	return report, err
}

// ParseSnapshot decodes a flat JSON object of i18n strings. The second
// return value counts entries dropped for having non-string values.
func ParseSnapshot(data []byte) (map[string]string, int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, &loctool.ImportFormatError{
			Message: "snapshot is not a JSON object",
			Cause:   err,
		}
	}

	snapshot := make(map[string]string, len(raw))
	malformed := 0
	for key, value := range raw {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			malformed++
			continue
		}
		snapshot[key] = text
	}
	return snapshot, malformed, nil
}

// DerivePluginKey guesses the owning plugin from an i18n key. Keys shaped
// like net.seibertmedia.confluence.<plugin>.<rest> keep four segments,
// other dotted keys fall back to the first three, anything shorter has no
// derivable owner.
func DerivePluginKey(key string) string {
	if !strings.Contains(key, ".") {
		return ""
	}
	parts := strings.Split(key, ".")
	if len(parts) >= 4 && parts[0] == "net" && parts[1] == "seibertmedia" {
		return strings.Join(parts[:4], ".")
	}
	if len(parts) >= 3 {
		return strings.Join(parts[:3], ".")
	}
	return ""
}
