// Package store owns the per-group translation tables and the group
// registry, backed by SQLite.
//
// Each group gets its own table, named by a deterministic transform of the
// group key. The registry table tracks which groups exist. All row mutation
// goes through this package; every mutating operation is a single statement
// or transaction, so no partial-row write is ever observable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
)

// timeFormat is a fixed-width UTC timestamp layout. Fixed width keeps
// lexicographic ordering equal to chronological ordering, which the batch
// cursor relies on.
const timeFormat = "2006-01-02 15:04:05.000000000"

// UpsertOutcome tags the result of one UpsertRow call.
type UpsertOutcome string

const (
	// Inserted: the key was absent and a new pending row was created.
	Inserted UpsertOutcome = "inserted"
	// UpdatedText: the key existed untranslated and its source text or
	// plugin key drifted, so the row was updated in place.
	UpdatedText UpsertOutcome = "updated_text"
	// Unchanged: the key existed untranslated with identical source text.
	Unchanged UpsertOutcome = "unchanged"
	// ProtectedSkip: the key already carries a translation; the row was not
	// touched.
	ProtectedSkip UpsertOutcome = "protected_skip"
)

// Cursor is a position in the deterministic (created_at, key) fetch order.
// The zero value means "from the beginning".
type Cursor struct {
	CreatedAt time.Time
	Key       string
}

// IsZero reports whether the cursor is at the beginning.
func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.Key == ""
}

// Store provides schema lifecycle and atomic row access for group tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the group registry exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("make db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS group_registry (
		group_key    TEXT PRIMARY KEY,
		table_name   TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		description  TEXT,
		created_at   TEXT NOT NULL,
		metadata     TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create group_registry: %w", err)
	}
	return nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// TableName converts a group key to its backing table name:
// "linchpin-suite" → "linchpin_suite". The transform is deterministic so a
// group always maps to the same table.
func TableName(groupKey string) (string, error) {
	name := strings.ReplaceAll(groupKey, "-", "_")
	name = strings.ReplaceAll(name, ".", "_")
	if !tableNamePattern.MatchString(name) {
		return "", &loctool.SchemaError{
			Message: fmt.Sprintf("group key %q does not map to a valid table name", groupKey),
		}
	}
	return name, nil
}

// EnsureGroup registers a group and creates its backing table on first
// call; subsequent calls are no-ops returning the existing table name.
// Returns SchemaError if the derived table name is already claimed by a
// different group key.
func (s *Store) EnsureGroup(ctx context.Context, groupKey, displayName, description string) (string, error) {
	tableName, err := TableName(groupKey)
	if err != nil {
		return "", err
	}

	if displayName == "" {
		displayName = defaultDisplayName(groupKey)
	}

	// Collision check: the table name must not belong to another group.
	var owner string
	row := s.db.QueryRowContext(ctx,
		`SELECT group_key FROM group_registry WHERE table_name = ?`, tableName)
	switch err := row.Scan(&owner); {
	case err == sql.ErrNoRows:
		// Not registered yet.
	case err != nil:
		return "", fmt.Errorf("check registry: %w", err)
	case owner != groupKey:
		return "", &loctool.SchemaError{
			Message: fmt.Sprintf("table %q already registered for group %q", tableName, owner),
		}
	default:
		return tableName, nil
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_registry (group_key, table_name, display_name, description, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			groupKey, tableName, displayName, description, s.now().Format(timeFormat)); err != nil {
			return fmt.Errorf("register group: %w", err)
		}

		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key                TEXT PRIMARY KEY,
			original_text      TEXT NOT NULL,
			translated_text    TEXT,
			status             TEXT NOT NULL DEFAULT 'pending',
			translation_method TEXT,
			plugin_key         TEXT,
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL,
			metadata           TEXT
		)`, tableName)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", tableName, err)
		}

		for _, col := range []string{"status", "plugin_key", "updated_at"} {
			idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`,
				tableName, col, tableName, col)
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("create index on %s(%s): %w", tableName, col, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return tableName, nil
}

// GetGroup returns the registry entry for a group key.
func (s *Store) GetGroup(ctx context.Context, groupKey string) (loctool.GroupInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT group_key, table_name, display_name, COALESCE(description, ''), created_at
		 FROM group_registry WHERE group_key = ?`, groupKey)

	var g loctool.GroupInfo
	var created string
	if err := row.Scan(&g.GroupKey, &g.TableName, &g.DisplayName, &g.Description, &created); err != nil {
		if err == sql.ErrNoRows {
			return loctool.GroupInfo{}, &loctool.NotFoundError{Table: "group_registry", Key: groupKey}
		}
		return loctool.GroupInfo{}, fmt.Errorf("get group %q: %w", groupKey, err)
	}
	g.CreatedAt, _ = time.Parse(timeFormat, created)
	return g, nil
}

// ListGroups returns all registered groups ordered by display name.
func (s *Store) ListGroups(ctx context.Context) ([]loctool.GroupInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_key, table_name, display_name, COALESCE(description, ''), created_at
		 FROM group_registry ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []loctool.GroupInfo
	for rows.Next() {
		var g loctool.GroupInfo
		var created string
		if err := rows.Scan(&g.GroupKey, &g.TableName, &g.DisplayName, &g.Description, &created); err != nil {
			return nil, err
		}
		g.CreatedAt, _ = time.Parse(timeFormat, created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpsertRow is the atomic import primitive. It inserts a new pending row,
// updates an untranslated row whose source text drifted, or skips a row
// that already carries a translation (the protection policy).
func (s *Store) UpsertRow(ctx context.Context, table, key, originalText, pluginKey string) (UpsertOutcome, error) {
	var outcome UpsertOutcome

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		q, args, err := sq.Select("original_text", "translated_text", "plugin_key").
			From(table).Where(sq.Eq{"key": key}).ToSql()
		if err != nil {
			return err
		}

		var existingText string
		var translated, existingPlugin sql.NullString
		row := tx.QueryRowContext(ctx, q, args...)
		switch err := row.Scan(&existingText, &translated, &existingPlugin); {
		case err == sql.ErrNoRows:
			now := s.now().Format(timeFormat)
			ins, args, err := sq.Insert(table).
				Columns("key", "original_text", "plugin_key", "status", "created_at", "updated_at").
				Values(key, originalText, nullable(pluginKey), string(loctool.StatusPending), now, now).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
				return fmt.Errorf("insert %q: %w", key, err)
			}
			outcome = Inserted
			return nil

		case err != nil:
			return fmt.Errorf("lookup %q: %w", key, err)
		}

		if translated.Valid && strings.TrimSpace(translated.String) != "" {
			// Existing translation work is never overwritten by re-import.
			outcome = ProtectedSkip
			return nil
		}

		if existingText == originalText && (pluginKey == "" || existingPlugin.String == pluginKey) {
			outcome = Unchanged
			return nil
		}

		upd := sq.Update(table).
			Set("original_text", originalText).
			Set("updated_at", s.now().Format(timeFormat)).
			Where(sq.Eq{"key": key})
		if pluginKey != "" {
			upd = upd.Set("plugin_key", pluginKey)
		}
		uq, uargs, err := upd.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, uq, uargs...); err != nil {
			return fmt.Errorf("update %q: %w", key, err)
		}
		outcome = UpdatedText
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// FetchBatch returns up to limit rows whose status is in statuses, ordered
// by (created_at, key) ascending.
func (s *Store) FetchBatch(ctx context.Context, table string, statuses []loctool.Status, limit int) ([]loctool.Row, error) {
	return s.FetchBatchAfter(ctx, table, statuses, Cursor{}, limit)
}

// FetchBatchAfter is FetchBatch resuming strictly after the cursor
// position. The engine advances the cursor past batches that ended in
// error so one stuck batch never blocks the rest of the run.
func (s *Store) FetchBatchAfter(ctx context.Context, table string, statuses []loctool.Status, after Cursor, limit int) ([]loctool.Row, error) {
	set := make([]string, len(statuses))
	for i, st := range statuses {
		set[i] = string(st)
	}

	b := sq.Select(rowColumns...).From(table).
		Where(sq.Eq{"status": set}).
		OrderBy("created_at ASC", "key ASC")
	if !after.IsZero() {
		cur := after.CreatedAt.UTC().Format(timeFormat)
		b = b.Where(sq.Or{
			sq.Gt{"created_at": cur},
			sq.And{sq.Eq{"created_at": cur}, sq.Gt{"key": after.Key}},
		})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, q, args)
}

// MarkTranslated records a completed translation: sets the text, the
// provider method and status=translated. Empty translations are rejected
// so the translated status always implies non-empty text.
func (s *Store) MarkTranslated(ctx context.Context, table, key, translatedText, method string) error {
	if strings.TrimSpace(translatedText) == "" {
		return fmt.Errorf("mark translated %q: empty translation", key)
	}

	q, args, err := sq.Update(table).
		Set("translated_text", translatedText).
		Set("translation_method", method).
		Set("status", string(loctool.StatusTranslated)).
		Set("updated_at", s.now().Format(timeFormat)).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark translated %q: %w", key, err)
	}
	return s.requireRow(res, table, key)
}

// MarkError records a failed translation attempt: sets status=error and
// stores the failure detail in metadata so it survives process restarts.
// Any stale partial translation is cleared.
func (s *Store) MarkError(ctx context.Context, table, key, detail string) error {
	q, args, err := sq.Update(table).
		Set("translated_text", nil).
		Set("status", string(loctool.StatusError)).
		Set("metadata", detail).
		Set("updated_at", s.now().Format(timeFormat)).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark error %q: %w", key, err)
	}
	return s.requireRow(res, table, key)
}

// Statistics returns translation progress counts for a group table.
func (s *Store) Statistics(ctx context.Context, table string) (loctool.Stats, error) {
	q := fmt.Sprintf(`SELECT
		COUNT(*),
		SUM(CASE WHEN status = 'translated' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END)
		FROM %s`, table)

	var stats loctool.Stats
	var translated, pending, errCount sql.NullInt64
	row := s.db.QueryRowContext(ctx, q)
	if err := row.Scan(&stats.Total, &translated, &pending, &errCount); err != nil {
		return loctool.Stats{}, fmt.Errorf("statistics for %s: %w", table, err)
	}
	stats.Translated = int(translated.Int64)
	stats.Pending = int(pending.Int64)
	stats.Errors = int(errCount.Int64)
	if stats.Total > 0 {
		stats.Percentage = float64(stats.Translated) / float64(stats.Total) * 100
	}
	return stats, nil
}

// TranslatedRows returns all rows with status=translated ordered by key,
// for export.
func (s *Store) TranslatedRows(ctx context.Context, table string) ([]loctool.Row, error) {
	q, args, err := sq.Select(rowColumns...).From(table).
		Where(sq.Eq{"status": string(loctool.StatusTranslated)}).
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryRows(ctx, q, args)
}

var rowColumns = []string{
	"key", "original_text", "translated_text", "status",
	"translation_method", "plugin_key", "created_at", "updated_at", "metadata",
}

func (s *Store) queryRows(ctx context.Context, query string, args []interface{}) ([]loctool.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loctool.Row
	for rows.Next() {
		var r loctool.Row
		var translated, method, plugin, metadata sql.NullString
		var status, created, updated string
		if err := rows.Scan(&r.Key, &r.OriginalText, &translated, &status,
			&method, &plugin, &created, &updated, &metadata); err != nil {
			return nil, err
		}
		r.TranslatedText = translated.String
		r.Status = loctool.Status(status)
		r.Method = method.String
		r.PluginKey = plugin.String
		r.Metadata = metadata.String
		r.CreatedAt, _ = time.Parse(timeFormat, created)
		r.UpdatedAt, _ = time.Parse(timeFormat, updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) requireRow(res sql.Result, table, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &loctool.NotFoundError{Table: table, Key: key}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func defaultDisplayName(groupKey string) string {
	name := strings.ReplaceAll(groupKey, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
