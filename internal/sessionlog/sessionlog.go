// Package sessionlog implements the session log (C10): an append-only,
// single-writer JSON-lines record of every dispatch, plus a pure-Go SQLite
// index over it for cheap aggregate counters. The JSONL file is the source
// of truth; the SQLite file is a queryable projection updated on every
// Record. The index also stores each entry's command name, which the JSONL
// record does not carry, so it cannot be rebuilt from the JSONL file alone.
package sessionlog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"uwizard/internal/dispatch"
	"uwizard/internal/logging"
)

// Entry is the fixed schema of one session log record. Field names are the
// wire/storage shape and must not change without a migration.
type Entry struct {
	TimestampUTC string          `json:"timestamp_utc"`
	Caller       string          `json:"caller"`
	InputHash    string          `json:"input_hash"`
	Route        dispatch.Route  `json:"route"`
	Status       dispatch.Status `json:"status"`
	ElapsedMs    int64           `json:"elapsed_ms"`
	Failover     string          `json:"failover,omitempty"`
	Redactions   []string        `json:"redactions,omitempty"`
}

// HashInput produces the input_hash field: a SHA-256 digest of the raw
// command text. The log never stores the text itself, only its digest,
// unless a redactor has separately approved a field for storage.
func HashInput(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Counters is summary()'s aggregate shape.
type Counters struct {
	Total         int64
	ByCommand     map[string]int64
	ByRoute       map[string]int64
	FailoverCount int64
}

// Redactor scrubs a piece of would-be-logged text before it is persisted.
// Registered redactors run in order; each returns the text with its matches
// replaced by "[redacted]".
type Redactor interface {
	Redact(s string) (out string, hit bool)
}

// SubstringRedactor replaces every case-sensitive occurrence of a literal
// substring, e.g. the admin token itself.
type SubstringRedactor struct {
	Name    string
	Literal string
}

func (r SubstringRedactor) Redact(s string) (string, bool) {
	if r.Literal == "" || !strings.Contains(s, r.Literal) {
		return s, false
	}
	return strings.ReplaceAll(s, r.Literal, "[redacted]"), true
}

// RegexRedactor replaces every regex match, e.g. a bearer-token pattern.
type RegexRedactor struct {
	Name    string
	Pattern *regexp.Regexp
}

func (r RegexRedactor) Redact(s string) (string, bool) {
	if !r.Pattern.MatchString(s) {
		return s, false
	}
	return r.Pattern.ReplaceAllString(s, "[redacted]"), true
}

// DefaultRedactors returns the standard redaction list: bearer tokens and,
// when non-empty, the literal admin token.
func DefaultRedactors(adminToken string) []Redactor {
	redactors := []Redactor{
		RegexRedactor{Name: "bearer_token", Pattern: regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]+`)},
	}
	if adminToken != "" {
		redactors = append(redactors, SubstringRedactor{Name: "admin_token", Literal: adminToken})
	}
	return redactors
}

// Log is the session log (C10): single-writer JSONL append point, backed by
// a SQLite index for aggregate queries.
type Log struct {
	path string

	mu sync.Mutex
	f  *os.File

	redactors []Redactor

	db *sql.DB
}

// Open opens (creating if needed) the JSONL file at path and the SQLite
// index alongside it. The SQLite file lives next to the JSONL file with a
// ".sqlite" suffix.
func Open(path string, redactors []Redactor) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sessionlog: create state dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("sessionlog: open %s: %w", path, err)
	}

	dbPath := path + ".sqlite"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sessionlog: open index %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaDDL); err != nil {
		f.Close()
		db.Close()
		return nil, fmt.Errorf("sessionlog: create index schema: %w", err)
	}

	return &Log{path: path, f: f, redactors: redactors, db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_utc TEXT NOT NULL,
	caller TEXT NOT NULL,
	command TEXT NOT NULL,
	route TEXT NOT NULL,
	status TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	failover TEXT NOT NULL DEFAULT ''
);
`

// Record appends one entry to the JSONL file and updates the SQLite index.
// The JSONL append is the atomic, single-writer point of record; the index
// update is best-effort and never blocks a caller on its own failure — if
// it fails the summary will simply be stale until the next successful
// write, while the JSONL ground truth remains intact.
func (l *Log) Record(entry Entry, command string) error {
	entry.Redactions = nil
	for _, r := range l.redactors {
		if redacted, hit := r.Redact(entry.Caller); hit {
			entry.Caller = redacted
			entry.Redactions = append(entry.Redactions, redactorName(r))
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("sessionlog: marshal entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("sessionlog: append: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sessionlog: sync: %w", err)
	}

	log := logging.Get(logging.CategorySessionLog)
	if _, err := l.db.Exec(
		`INSERT INTO entries (timestamp_utc, caller, command, route, status, elapsed_ms, failover) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.TimestampUTC, entry.Caller, command, string(entry.Route), string(entry.Status), entry.ElapsedMs, entry.Failover,
	); err != nil {
		log.Warn("session log index update failed (jsonl append still succeeded): %v", err)
	}

	return nil
}

func redactorName(r Redactor) string {
	switch v := r.(type) {
	case SubstringRedactor:
		return v.Name
	case RegexRedactor:
		return v.Name
	default:
		return "unknown"
	}
}

// Summary computes the aggregate counters from the SQLite index.
func (l *Log) Summary() (Counters, error) {
	counters := Counters{ByCommand: make(map[string]int64), ByRoute: make(map[string]int64)}

	row := l.db.QueryRow(`SELECT COUNT(*) FROM entries`)
	if err := row.Scan(&counters.Total); err != nil {
		return Counters{}, fmt.Errorf("sessionlog: summary total: %w", err)
	}

	rows, err := l.db.Query(`SELECT command, COUNT(*) FROM entries GROUP BY command`)
	if err != nil {
		return Counters{}, fmt.Errorf("sessionlog: summary by command: %w", err)
	}
	for rows.Next() {
		var cmd string
		var n int64
		if err := rows.Scan(&cmd, &n); err != nil {
			rows.Close()
			return Counters{}, fmt.Errorf("sessionlog: scan command row: %w", err)
		}
		counters.ByCommand[cmd] = n
	}
	rows.Close()

	rows, err = l.db.Query(`SELECT route, COUNT(*) FROM entries GROUP BY route`)
	if err != nil {
		return Counters{}, fmt.Errorf("sessionlog: summary by route: %w", err)
	}
	for rows.Next() {
		var route string
		var n int64
		if err := rows.Scan(&route, &n); err != nil {
			rows.Close()
			return Counters{}, fmt.Errorf("sessionlog: scan route row: %w", err)
		}
		counters.ByRoute[route] = n
	}
	rows.Close()

	row = l.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE failover != ''`)
	if err := row.Scan(&counters.FailoverCount); err != nil {
		return Counters{}, fmt.Errorf("sessionlog: summary failover count: %w", err)
	}

	return counters, nil
}

// Close releases the JSONL file handle and the SQLite connection.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dbErr := l.db.Close()
	fErr := l.f.Close()
	if fErr != nil {
		return fErr
	}
	return dbErr
}

// NewEntry builds an Entry with TimestampUTC set to now, ready for Record.
func NewEntry(caller string, rawInput string, route dispatch.Route, status dispatch.Status, elapsed time.Duration, failover string) Entry {
	return Entry{
		TimestampUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Caller:       caller,
		InputHash:    HashInput(rawInput),
		Route:        route,
		Status:       status,
		ElapsedMs:    elapsed.Milliseconds(),
		Failover:     failover,
	}
}
