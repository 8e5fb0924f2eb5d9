package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Repository implements ports.TradeRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/journal.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger, now: time.Now}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trade_records (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		trade_date TEXT NOT NULL, -- YYYY-MM-DD
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		projected_entry REAL NOT NULL,
		projected_sl REAL DEFAULT NULL,
		projected_tp REAL DEFAULT NULL,
		quantity REAL DEFAULT NULL,
		actual_entry REAL DEFAULT NULL,
		actual_exit REAL DEFAULT NULL,
		tp_status TEXT NOT NULL DEFAULT 'unknown',
		actual_pl REAL DEFAULT NULL,
		max_possible_pl REAL DEFAULT NULL,
		efficiency REAL DEFAULT NULL,
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'manual',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trade_records_account_date ON trade_records (account_id, trade_date);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

const selectColumns = `
	SELECT id, account_id, trade_date, symbol, direction,
	       projected_entry, projected_sl, projected_tp, quantity,
	       actual_entry, actual_exit, tp_status, actual_pl, max_possible_pl, efficiency,
	       notes, source, created_at, updated_at, deleted_at
	FROM trade_records`

// Create saves a new trade. CreatedAt/UpdatedAt are set when zero.
func (r *Repository) Create(ctx context.Context, t *domain.TradeRecord) error {
	const query = `
	INSERT INTO trade_records (id, account_id, trade_date, symbol, direction,
	                           projected_entry, projected_sl, projected_tp, quantity,
	                           actual_entry, actual_exit, tp_status, actual_pl, max_possible_pl, efficiency,
	                           notes, source, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.AccountID, t.Date.Format(domain.DateLayout), t.Symbol, string(t.Direction),
		t.ProjectedEntry, nullFloat(t.ProjectedSL), nullFloat(t.ProjectedTP), nullFloat(t.Quantity),
		nullFloat(t.ActualEntry), nullFloat(t.ActualExit), string(t.DidHitTP),
		nullFloat(t.ActualPL), nullFloat(t.MaxPossiblePL), nullFloat(t.Efficiency),
		t.Notes, string(t.Source), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("trade %s: %w", t.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert trade %s for symbol %s: %w: %w", t.ID, t.Symbol, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": t.ID, "symbol": t.Symbol})
	return nil
}

// Update modifies an existing, non-deleted trade based on its ID.
func (r *Repository) Update(ctx context.Context, t *domain.TradeRecord) error {
	const query = `
	UPDATE trade_records
	SET trade_date = ?, symbol = ?, direction = ?, projected_entry = ?, projected_sl = ?,
	    projected_tp = ?, quantity = ?, actual_entry = ?, actual_exit = ?, tp_status = ?,
	    actual_pl = ?, max_possible_pl = ?, efficiency = ?, notes = ?, updated_at = ?
	WHERE id = ? AND deleted_at IS NULL`

	t.UpdatedAt = r.now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		t.Date.Format(domain.DateLayout), t.Symbol, string(t.Direction), t.ProjectedEntry, nullFloat(t.ProjectedSL),
		nullFloat(t.ProjectedTP), nullFloat(t.Quantity), nullFloat(t.ActualEntry), nullFloat(t.ActualExit), string(t.DidHitTP),
		nullFloat(t.ActualPL), nullFloat(t.MaxPossiblePL), nullFloat(t.Efficiency), t.Notes, t.UpdatedAt,
		t.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w: %w", t.ID, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update trade %s: %w", t.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for update: %w", t.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": t.ID, "closed": t.IsClosed()})
	return nil
}

// FindByID retrieves a trade by ID, including soft-deleted trades.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", map[string]interface{}{"tradeID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return t, nil
}

// FindByAccount retrieves non-deleted trades, newest first. An empty
// accountID returns the trades of every account.
func (r *Repository) FindByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error) {
	query := selectColumns + ` WHERE deleted_at IS NULL`
	args := []interface{}{}
	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY trade_date DESC, created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for account %q: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.TradeRecord, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindByAccount: %w", err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// SoftDelete marks a trade deleted; the row is retained.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE trade_records SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade soft-deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.TradeRecord struct.
func scanTrade(s scanner) (*domain.TradeRecord, error) {
	t := &domain.TradeRecord{}
	var (
		date, direction, tpStatus, source        string
		sl, tp, qty, entry, exit, pl, maxPL, eff sql.NullFloat64
		deletedAt                                sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.AccountID, &date, &t.Symbol, &direction,
		&t.ProjectedEntry, &sl, &tp, &qty,
		&entry, &exit, &tpStatus, &pl, &maxPL, &eff,
		&t.Notes, &source, &t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	t.Date, err = time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("corrupt trade_date %q for trade %s: %w", date, t.ID, err)
	}
	t.Direction = domain.Direction(direction)
	t.DidHitTP = domain.TPStatus(tpStatus)
	t.Source = domain.TradeSource(source)
	t.ProjectedSL = floatPtr(sl)
	t.ProjectedTP = floatPtr(tp)
	t.Quantity = floatPtr(qty)
	t.ActualEntry = floatPtr(entry)
	t.ActualExit = floatPtr(exit)
	t.ActualPL = floatPtr(pl)
	t.MaxPossiblePL = floatPtr(maxPL)
	t.Efficiency = floatPtr(eff)
	if deletedAt.Valid {
		d := deletedAt.Time
		t.DeletedAt = &d
	}
	return t, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
