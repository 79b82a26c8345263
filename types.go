package loctool

import "time"

// Status is the translation state of a row.
type Status string

const (
	// StatusPending marks a row that has not been translated yet.
	StatusPending Status = "pending"
	// StatusTranslated marks a row with a completed translation. Terminal:
	// the engine never revisits translated rows.
	StatusTranslated Status = "translated"
	// StatusError marks a row whose last translation attempt failed. Error
	// rows are retried on the next run with no extra delay.
	StatusError Status = "error"
)

// Row is one localizable string in a group table.
type Row struct {
	Key            string // Stable identifier, unique within the group
	OriginalText   string // Source-language text
	TranslatedText string // Empty until translated
	Status         Status
	Method         string // Provider that produced the translation
	PluginKey      string // Provenance, informational only
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Metadata       string // Free-form side channel (last error detail)
}

// Translated reports whether the row carries a non-empty translation.
// Rows for which this is true are protected from re-import overwrites.
func (r Row) Translated() bool {
	return r.TranslatedText != ""
}

// GroupInfo identifies one logical group in the registry.
type GroupInfo struct {
	GroupKey    string // Stable identifier, unique
	TableName   string // Deterministic transform of GroupKey
	DisplayName string
	Description string
	CreatedAt   time.Time
}

// Stats summarises translation progress for a group.
type Stats struct {
	Total      int
	Translated int
	Pending    int
	Errors     int
	Percentage float64
}

// ImportReport counts the per-key outcomes of one import run.
type ImportReport struct {
	Inserted  int // New keys inserted as pending
	Updated   int // Untranslated rows whose source text drifted
	Unchanged int // Untranslated rows with identical source text
	Protected int // Rows with an existing translation, left untouched
	Malformed int // Entries skipped for bad shape (empty key or text)
}

// RunReport counts the per-row outcomes of one translation engine run.
type RunReport struct {
	Translated int // Rows newly marked translated by the provider
	Cached     int // Rows satisfied from the translation cache
	Failed     int // Rows marked error after retry exhaustion
	Batches    int // Provider batches processed
}
