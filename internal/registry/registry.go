package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Registry manages port allocations and per-service port ranges in SQLite.
// Every public operation takes the internal mutex, runs a single statement
// or transaction, and releases it — nothing holds a transaction across
// multiple logical steps. Cross-process safety is SQLite's own write
// serialization.
type Registry struct {
	mu sync.Mutex
	db *sql.DB
}

// defaultRanges is seeded into port_ranges when the schema is first created.
// Ranges start at each service's conventional port so the first allocation
// lands on the port developers expect.
var defaultRanges = []PortRange{
	{Service: "postgres", Start: 5432, End: 5499},
	{Service: "postgresql", Start: 5432, End: 5499},
	{Service: "mysql", Start: 3306, End: 3399},
	{Service: "mariadb", Start: 3306, End: 3399},
	{Service: "redis", Start: 6379, End: 6449},
	{Service: "mongodb", Start: 27017, End: 27099},
	{Service: "mongo", Start: 27017, End: 27099},
	{Service: "elasticsearch", Start: 9200, End: 9299},
	{Service: "meilisearch", Start: 7700, End: 7799},
	{Service: "rabbitmq", Start: 5672, End: 5699},
	{Service: "kafka", Start: 9092, End: 9099},
	{Service: "default", Start: 10000, End: 19999},
}

// fallbackRange is returned by GetRange when even the "default" row is
// missing from port_ranges. GetRange must never fail.
var fallbackRange = PortRange{Service: "default", Start: 10000, End: 19999}

// DefaultPath returns the default registry database location
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".portman", "registry.db"), nil
}

// New creates or opens the registry at the default location
func New() (*Registry, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open creates or opens a registry database at the given path
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &Registry{db: db}

	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

// Close closes the database connection
func (r *Registry) Close() error {
	return r.db.Close()
}

// initSchema creates the versioned schema and seeds default port ranges.
// Seeding happens only on first creation; configured ranges are never
// overwritten on reopen.
func (r *Registry) initSchema() error {
	var name string
	err := r.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&name)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version VALUES (1);

	CREATE TABLE allocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		context_hash TEXT NOT NULL,
		context_path TEXT NOT NULL,
		context_label TEXT,
		service TEXT NOT NULL,
		port INTEGER NOT NULL UNIQUE,
		container_port INTEGER,
		env_var TEXT,
		source TEXT,
		created_at TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL,
		UNIQUE(context_hash, service)
	);

	CREATE INDEX idx_allocations_context ON allocations(context_hash);
	CREATE INDEX idx_allocations_port ON allocations(port);
	CREATE INDEX idx_allocations_last_accessed ON allocations(last_accessed_at);

	CREATE TABLE port_ranges (
		service TEXT PRIMARY KEY,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL
	);
	`

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	for _, pr := range defaultRanges {
		if _, err := tx.Exec(
			"INSERT INTO port_ranges (service, range_start, range_end) VALUES (?, ?, ?)",
			pr.Service, pr.Start, pr.End,
		); err != nil {
			return fmt.Errorf("failed to seed range for %s: %w", pr.Service, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	return nil
}

// CreateAllocation inserts a new allocation with both timestamps set to now.
// Returns a ConflictError if the port is already claimed or the context
// already has an allocation for the service.
func (r *Registry) CreateAllocation(a Allocation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.Exec(`
		INSERT INTO allocations (
			context_hash, context_path, context_label, service, port,
			container_port, env_var, source, created_at, last_accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ContextHash, a.ContextPath, a.ContextLabel, a.Service, a.Port,
		nullableInt(a.ContainerPort), nullableString(a.EnvVar), nullableString(a.Source),
		now, now)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, &ConflictError{
				ContextHash: a.ContextHash,
				Service:     a.Service,
				Port:        a.Port,
			}
		}
		return 0, fmt.Errorf("failed to insert allocation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get allocation id: %w", err)
	}

	return int(id), nil
}

// GetAllocation returns the allocation for a context and service, or nil if
// none exists
func (r *Registry) GetAllocation(contextHash, service string) (*Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(selectAllocation+`
		WHERE context_hash = ? AND service = ?
	`, contextHash, service)

	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}

	return a, nil
}

// ListByContext returns all allocations for a context, ordered by service
func (r *Registry) ListByContext(contextHash string) ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(selectAllocation+`
		WHERE context_hash = ?
		ORDER BY service
	`, contextHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAllocations(rows)
}

// ListAll returns every allocation, ordered by context label then service
func (r *Registry) ListAll() ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(selectAllocation + `
		ORDER BY context_label, service
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAllocations(rows)
}

// AllAllocatedPorts returns the set of every allocated port
func (r *Registry) AllAllocatedPorts() (map[int]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query("SELECT port FROM allocations")
	if err != nil {
		return nil, fmt.Errorf("failed to query ports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ports := make(map[int]bool)
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, err
		}
		ports[port] = true
	}

	return ports, rows.Err()
}

// Touch updates an allocation's last_accessed_at timestamp to now
func (r *Registry) Touch(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.Exec(
		"UPDATE allocations SET last_accessed_at = ? WHERE id = ?",
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch allocation: %w", err)
	}
	return nil
}

// DeleteByID deletes an allocation by its identifier
func (r *Registry) DeleteByID(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec("DELETE FROM allocations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	return nil
}

// DeleteByContext deletes all allocations for a context and returns the
// number removed
func (r *Registry) DeleteByContext(contextHash string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec("DELETE FROM allocations WHERE context_hash = ?", contextHash)
	if err != nil {
		return 0, fmt.Errorf("failed to delete allocations: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

// DeleteByService deletes the allocation for one service in a context.
// Returns true if a record was deleted.
func (r *Registry) DeleteByService(contextHash, service string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(
		"DELETE FROM allocations WHERE context_hash = ? AND service = ?",
		contextHash, service,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete allocation: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListStale returns allocations not accessed within the given duration,
// oldest first
func (r *Registry) ListStale(threshold time.Duration) ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-threshold).Format(time.RFC3339)

	rows, err := r.db.Query(selectAllocation+`
		WHERE last_accessed_at < ?
		ORDER BY last_accessed_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAllocations(rows)
}

// GetRange returns the configured port range for a service. Falls back to
// the "default" range if the service has none, and to a hardcoded
// 10000-19999 window if even that row is missing. Never fails on a missing
// range.
func (r *Registry) GetRange(service string) (PortRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pr, err := r.queryRange(service)
	if err == nil {
		return pr, nil
	}
	if err != sql.ErrNoRows {
		return PortRange{}, fmt.Errorf("failed to get range: %w", err)
	}

	pr, err = r.queryRange("default")
	if err == nil {
		return pr, nil
	}
	if err != sql.ErrNoRows {
		return PortRange{}, fmt.Errorf("failed to get default range: %w", err)
	}

	return fallbackRange, nil
}

func (r *Registry) queryRange(service string) (PortRange, error) {
	var pr PortRange
	err := r.db.QueryRow(
		"SELECT service, range_start, range_end FROM port_ranges WHERE service = ?",
		service,
	).Scan(&pr.Service, &pr.Start, &pr.End)
	return pr, err
}

// SetRange creates or overwrites the port range for a service.
// Returns an InvalidRangeError if start is not below end.
func (r *Registry) SetRange(service string, start, end int) error {
	if start >= end {
		return &InvalidRangeError{Service: service, Start: start, End: end}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO port_ranges (service, range_start, range_end)
		VALUES (?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			range_start = excluded.range_start,
			range_end = excluded.range_end
	`, service, start, end)
	if err != nil {
		return fmt.Errorf("failed to set range: %w", err)
	}

	return nil
}

// ListRanges returns all configured port ranges, ordered by service name
func (r *Registry) ListRanges() ([]PortRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		"SELECT service, range_start, range_end FROM port_ranges ORDER BY service",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ranges []PortRange
	for rows.Next() {
		var pr PortRange
		if err := rows.Scan(&pr.Service, &pr.Start, &pr.End); err != nil {
			return nil, err
		}
		ranges = append(ranges, pr)
	}

	return ranges, rows.Err()
}

const selectAllocation = `
	SELECT id, context_hash, context_path, COALESCE(context_label, ''), service, port,
	       COALESCE(container_port, 0), COALESCE(env_var, ''), COALESCE(source, ''),
	       created_at, last_accessed_at
	FROM allocations
`

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row rowScanner) (*Allocation, error) {
	var a Allocation
	var createdAt, lastAccessed string

	err := row.Scan(
		&a.ID, &a.ContextHash, &a.ContextPath, &a.ContextLabel, &a.Service, &a.Port,
		&a.ContainerPort, &a.EnvVar, &a.Source,
		&createdAt, &lastAccessed,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.LastAccessed, _ = time.Parse(time.RFC3339, lastAccessed)

	return &a, nil
}

func collectAllocations(rows *sql.Rows) ([]Allocation, error) {
	var allocations []Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *a)
	}
	return allocations, rows.Err()
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
