package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/leadbox/leadbox/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// sqliteLower folds case over all of Unicode. SQLite's LOWER only folds ASCII.
const sqliteLower = "unicode_lower"

func init() {
	err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
	if err != nil {
		panic(fmt.Sprintf("register sqlite function %s: %v", sqliteLower, err))
	}
}

// Config selects the database backing the lead store.
type Config struct {
	// Driver is one of sqlite, postgres or mysql. Empty means sqlite.
	Driver string
	// DSN is a file path for sqlite (empty for in-memory) or a connection
	// string for postgres and mysql.
	DSN string
}

// Store persists leads in a single relational table.
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore opens a SQLite-backed store at path. Pass empty string for in-memory.
func NewStore(path string) (*Store, error) {
	return Open(Config{Driver: DriverSQLite, DSN: path})
}

// Open connects to the configured database and applies migrations.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		dsn, derr := sqliteDSN(cfg.DSN)
		if derr != nil {
			return nil, derr
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		}
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", cfg.DSN)
	case DriverMySQL:
		dsn, derr := mysqlDSN(cfg.DSN)
		if derr != nil {
			return nil, derr
		}
		db, err = sqlx.Connect("mysql", dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (available: sqlite, postgres, mysql)", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open lead database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate lead database: %w", err)
	}
	return s, nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return ":memory:", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Driver returns the database driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Leads
// ---------------------------------------------------------------------------

const leadColumns = "id, name, phone, message, status, created_at"

// CreateLead inserts a new lead. Status is forced to new; ID and CreatedAt are
// populated after a successful insert.
func (s *Store) CreateLead(ctx context.Context, lead *model.Lead) error {
	lead.Status = model.StatusNew
	lead.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	const q = `INSERT INTO leads (name, phone, message, status, created_at) VALUES (?, ?, ?, ?, ?)`
	args := []interface{}{lead.Name, lead.Phone, lead.Message, lead.Status, lead.CreatedAt}

	if s.driver == DriverPostgres {
		if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q+" RETURNING id"), args...).Scan(&lead.ID); err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get lead id: %w", err)
	}
	lead.ID = id
	return nil
}

// GetLead returns a lead by ID.
func (s *Store) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	var lead model.Lead
	q := s.db.Rebind("SELECT " + leadColumns + " FROM leads WHERE id = ?")
	if err := s.db.GetContext(ctx, &lead, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return &lead, nil
}

// ListLeads returns leads newest first, optionally filtered by a
// case-insensitive substring over name, phone and message.
func (s *Store) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	q := "SELECT " + leadColumns + " FROM leads"
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		lower := "LOWER"
		if s.driver == DriverSQLite {
			lower = sqliteLower
		}
		q += " WHERE " + lower + "(name) LIKE ? ESCAPE '!'" +
			" OR " + lower + "(phone) LIKE ? ESCAPE '!'" +
			" OR " + lower + "(message) LIKE ? ESCAPE '!'"
		args = append(args, pattern, pattern, pattern)
	}
	q += " ORDER BY created_at DESC, id DESC"

	leads := []model.Lead{}
	if err := s.db.SelectContext(ctx, &leads, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// CountLeads returns the number of leads with the given status, or all leads
// when status is empty.
func (s *Store) CountLeads(ctx context.Context, status model.Status) (int, error) {
	q := "SELECT COUNT(*) FROM leads"
	var args []interface{}
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}

	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(q), args...); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

// LeadStats returns total, new and contacted counts in a single query.
func (s *Store) LeadStats(ctx context.Context) (model.LeadStats, error) {
	const q = `SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN status = 'new' THEN 1 ELSE 0 END), 0) AS new_count,
		COALESCE(SUM(CASE WHEN status = 'contacted' THEN 1 ELSE 0 END), 0) AS contacted_count
		FROM leads`

	var stats model.LeadStats
	if err := s.db.GetContext(ctx, &stats, q); err != nil {
		return model.LeadStats{}, fmt.Errorf("lead stats: %w", err)
	}
	return stats, nil
}

// UpdateLeadStatus moves a lead to the given status. Setting the current
// status again is a no-op; moving backwards returns ErrInvalidTransition.
func (s *Store) UpdateLeadStatus(ctx context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	current, err := s.GetLead(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	if !model.CanTransition(current.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	q := s.db.Rebind("UPDATE leads SET status = ? WHERE id = ? AND status = ?")
	if _, err := s.db.ExecContext(ctx, q, status, id, current.Status); err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return nil
}

// DeleteLead removes a lead by ID.
func (s *Store) DeleteLead(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM leads WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards using '!' as the escape character, which
// needs no special quoting in any supported dialect.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
