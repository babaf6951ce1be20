package refdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"cratedig/internal/textutil"
)

// Recording is one curated reference entry describing a known circulating
// recording.
type Recording struct {
	ID              int64
	Title           string
	Aliases         []string
	RecordingDate   string
	City            string
	Venue           string
	SourceType      string
	DurationSeconds int
	VarianceNote    string
	Notes           string
}

// Match pairs a reference recording with its title similarity to the query.
type Match struct {
	Recording  Recording
	Similarity float64
	ViaAlias   string // alias that matched, empty when the canonical title did
}

// Store provides read access to the reference database. Writes only happen
// through Import, which the lookup path never calls.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    aliases TEXT NOT NULL DEFAULT '[]',
    recording_date TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    venue TEXT NOT NULL DEFAULT '',
    source_type TEXT NOT NULL DEFAULT '',
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    variance_note TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_recordings_title ON recordings(title);
`

// Open connects to the reference database at path. The file must already
// exist; a missing reference database is a configuration problem, not an
// empty result set.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("refdb: path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("refdb: stat %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("refdb: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("refdb: apply pragma %q: %w", pragma, execErr)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Create initializes a new reference database file with the recordings
// schema. Used by the import command and test fixtures.
func Create(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("refdb: open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("refdb: apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert adds one recording and returns its id.
func (s *Store) Insert(ctx context.Context, rec Recording) (int64, error) {
	aliases, err := json.Marshal(rec.Aliases)
	if err != nil {
		return 0, fmt.Errorf("refdb: marshal aliases: %w", err)
	}
	if rec.Aliases == nil {
		aliases = []byte("[]")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (
            title, aliases, recording_date, city, venue,
            source_type, duration_seconds, variance_note, notes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, string(aliases), rec.RecordingDate, rec.City, rec.Venue,
		rec.SourceType, rec.DurationSeconds, rec.VarianceNote, rec.Notes)
	if err != nil {
		return 0, fmt.Errorf("refdb: insert recording: %w", err)
	}
	return res.LastInsertId()
}

// Count returns the number of reference recordings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM recordings").Scan(&count); err != nil {
		return 0, fmt.Errorf("refdb: count recordings: %w", err)
	}
	return count, nil
}

// SearchByTitle returns reference recordings whose canonical title or any
// alias is at least threshold similar to the query, best match first. Ties
// break on ascending id so result order is stable across runs.
func (s *Store) SearchByTitle(ctx context.Context, query string, threshold float64, maxResults int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, aliases, recording_date, city, venue,
                source_type, duration_seconds, variance_note, notes
         FROM recordings`)
	if err != nil {
		return nil, fmt.Errorf("refdb: query recordings: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}

		best := textutil.TitleSimilarity(query, rec.Title)
		viaAlias := ""
		for _, alias := range rec.Aliases {
			if sim := textutil.TitleSimilarity(query, alias); sim > best {
				best = sim
				viaAlias = alias
			}
		}
		if best >= threshold {
			matches = append(matches, Match{Recording: rec, Similarity: best, ViaAlias: viaAlias})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refdb: scan recordings: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Recording.ID < matches[j].Recording.ID
	})

	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

// SearchByDateVenue returns reference recordings whose recording date matches
// exactly and whose venue matches after diacritic folding. Used to corroborate
// tag evidence that carries a date but a mangled title.
func (s *Store) SearchByDateVenue(ctx context.Context, date, venue string) ([]Match, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, aliases, recording_date, city, venue,
                source_type, duration_seconds, variance_note, notes
         FROM recordings WHERE recording_date = ? ORDER BY id`, date)
	if err != nil {
		return nil, fmt.Errorf("refdb: query recordings by date: %w", err)
	}
	defer rows.Close()

	wantVenue := textutil.Fold(venue)
	var matches []Match
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		if wantVenue != "" && textutil.Fold(rec.Venue) != wantVenue {
			continue
		}
		matches = append(matches, Match{Recording: rec, Similarity: 1.0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refdb: scan recordings: %w", err)
	}
	return matches, nil
}

func scanRecording(rows *sql.Rows) (Recording, error) {
	var rec Recording
	var aliases string
	if err := rows.Scan(&rec.ID, &rec.Title, &aliases, &rec.RecordingDate,
		&rec.City, &rec.Venue, &rec.SourceType, &rec.DurationSeconds,
		&rec.VarianceNote, &rec.Notes); err != nil {
		return Recording{}, fmt.Errorf("refdb: scan recording: %w", err)
	}
	if aliases != "" {
		if err := json.Unmarshal([]byte(aliases), &rec.Aliases); err != nil {
			return Recording{}, fmt.Errorf("refdb: parse aliases for id %d: %w", rec.ID, err)
		}
	}
	return rec, nil
}
