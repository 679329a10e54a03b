package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwygoda/thumbcap/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id         TEXT PRIMARY KEY,
    form       TEXT NOT NULL,
    quality    TEXT,
    attempts   INTEGER NOT NULL DEFAULT 0,
    title      TEXT,
    channel    TEXT,
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_entries_form ON entries(form);
CREATE INDEX IF NOT EXISTS idx_entries_channel ON entries(channel);
`

// Repository implements domain.IndexStore using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the index database at dbPath.
func New(dbPath string) (*Repository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// InsertIfAbsent creates an entry unless the id is already indexed.
// Returns true if a row was inserted; a duplicate id is a silent no-op and
// never rewrites the existing form.
func (r *Repository) InsertIfAbsent(ctx context.Context, id string, form domain.Form) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (id, form, attempts, indexed_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, form, time.Now(),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const entryColumns = `id, form, COALESCE(quality, ''), attempts, COALESCE(title, ''), COALESCE(channel, ''), indexed_at`

// Get retrieves an entry by id.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id,
	)
	return scanEntry(row)
}

// Undownloaded returns entries with no quality recorded and fewer than
// maxAttempts attempts, oldest first.
func (r *Repository) Undownloaded(ctx context.Context, maxAttempts int) ([]domain.Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE quality IS NULL AND attempts < ?
		 ORDER BY indexed_at ASC, id ASC`,
		maxAttempts,
	)
}

// RecordAttempt increments the attempt counter. The counter only ever
// grows, success or failure.
func (r *Repository) RecordAttempt(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entries SET attempts = attempts + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// RecordQuality sets the achieved quality level. Unknown ids are a no-op.
func (r *Repository) RecordQuality(ctx context.Context, id string, q domain.Quality) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE entries SET quality = ? WHERE id = ?`, q, id,
	)
	return err
}

// ScrapeCandidates returns downloaded entries that are not fully scraped.
func (r *Repository) ScrapeCandidates(ctx context.Context) ([]domain.Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE quality IS NOT NULL AND (title IS NULL OR channel IS NULL)
		 ORDER BY indexed_at ASC, id ASC`,
	)
}

// RecordMetadata sets title and channel together. Unknown ids are a no-op.
func (r *Repository) RecordMetadata(ctx context.Context, id, title, channel string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE entries SET title = ?, channel = ? WHERE id = ?`, title, channel, id,
	)
	return err
}

// Filtered returns downloaded, scraped entries matching the filter.
func (r *Repository) Filtered(ctx context.Context, f domain.Filter) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
	 WHERE quality IS NOT NULL AND title IS NOT NULL AND channel IS NOT NULL`
	var args []any
	if f.Form != "" {
		query += ` AND form = ?`
		args = append(args, f.Form)
	}
	if len(f.Channels) > 0 {
		query += ` AND channel IN (?` + strings.Repeat(", ?", len(f.Channels)-1) + `)`
		for _, ch := range f.Channels {
			args = append(args, ch)
		}
	}
	query += ` ORDER BY channel ASC, title ASC`
	return r.queryEntries(ctx, query, args...)
}

// ChannelCounts aggregates scraped entries by channel, most entries first,
// ties broken by channel name.
func (r *Repository) ChannelCounts(ctx context.Context, form domain.Form) ([]domain.ChannelCount, error) {
	query := `SELECT channel, COUNT(*) FROM entries
	 WHERE quality IS NOT NULL AND title IS NOT NULL AND channel IS NOT NULL`
	var args []any
	if form != "" {
		query += ` AND form = ?`
		args = append(args, form)
	}
	query += ` GROUP BY channel ORDER BY COUNT(*) DESC, channel ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.ChannelCount
	for rows.Next() {
		var c domain.ChannelCount
		if err := rows.Scan(&c.Channel, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// FormCounts returns indexed and downloaded entry counts per form.
func (r *Repository) FormCounts(ctx context.Context) (map[domain.Form]domain.FormStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT form, COUNT(*), COUNT(quality) FROM entries GROUP BY form`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.Form]domain.FormStats{
		domain.FormLong:  {},
		domain.FormShort: {},
	}
	for rows.Next() {
		var form string
		var stats domain.FormStats
		if err := rows.Scan(&form, &stats.Indexed, &stats.Downloaded); err != nil {
			return nil, err
		}
		counts[domain.Form(form)] = stats
	}
	return counts, rows.Err()
}

// Delete removes an entry. Deleting an unknown id is an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// MergeCounts reports, per form, how many secondary entries a merge would
// insert.
type MergeCounts struct {
	Long  int
	Short int
}

// NewFrom lists entries present in the database at secondaryPath but absent
// here. Used by absorb for both the dry-run report and the file-copy list.
func (r *Repository) NewFrom(ctx context.Context, secondaryPath string) ([]domain.Entry, error) {
	conn, err := r.attach(ctx, secondaryPath)
	if err != nil {
		return nil, err
	}
	defer r.detach(conn)

	rows, err := conn.QueryContext(ctx,
		`SELECT s.id, s.form, COALESCE(s.quality, ''), s.attempts,
		        COALESCE(s.title, ''), COALESCE(s.channel, ''), s.indexed_at
		 FROM secondary.entries s
		 WHERE s.id NOT IN (SELECT id FROM main.entries)
		 ORDER BY s.indexed_at ASC, s.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// AbsorbFrom copies every secondary entry whose id is absent here, full
// record, in one transaction. Existing entries are never touched; ids are
// the sole key for "already present".
func (r *Repository) AbsorbFrom(ctx context.Context, secondaryPath string) (MergeCounts, error) {
	conn, err := r.attach(ctx, secondaryPath)
	if err != nil {
		return MergeCounts{}, err
	}
	defer r.detach(conn)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return MergeCounts{}, err
	}

	var counts MergeCounts
	for _, part := range []struct {
		form domain.Form
		dst  *int
	}{
		{domain.FormLong, &counts.Long},
		{domain.FormShort, &counts.Short},
	} {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO main.entries (id, form, quality, attempts, title, channel, indexed_at)
			 SELECT s.id, s.form, s.quality, s.attempts, s.title, s.channel, s.indexed_at
			 FROM secondary.entries s
			 WHERE s.form = ? AND s.id NOT IN (SELECT id FROM main.entries)`,
			part.form,
		)
		if err != nil {
			tx.Rollback()
			return MergeCounts{}, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return MergeCounts{}, err
		}
		*part.dst = int(n)
	}

	if err := tx.Commit(); err != nil {
		return MergeCounts{}, err
	}
	return counts, nil
}

// attach pins a single connection and attaches the secondary database on
// it. ATTACH must happen outside a transaction and on the same connection
// every later statement uses.
func (r *Repository) attach(ctx context.Context, secondaryPath string) (*sql.Conn, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS secondary`, secondaryPath); err != nil {
		conn.Close()
		return nil, fmt.Errorf("attach secondary index: %w", err)
	}
	return conn, nil
}

func (r *Repository) detach(conn *sql.Conn) {
	conn.ExecContext(context.Background(), `DETACH DATABASE secondary`)
	conn.Close()
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.Entry, error) {
	var e domain.Entry
	var form, quality string
	err := row.Scan(&e.ID, &form, &quality, &e.Attempts, &e.Title, &e.Channel, &e.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Form = domain.Form(form)
	e.Quality = domain.Quality(quality)
	return &e, nil
}
