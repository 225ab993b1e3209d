/*
Package sqlite provides a SQLite-backed implementation of budget.Store.

PURPOSE:
  Persists budgets, their categories and each category's periods. The engine
  produces whole new categories, so a category write replaces its period
  rows inside one transaction.

KEY TABLES:
  budgets:    Budget header (span, currency)
  categories: One row per category; recurrence kept as factory JSON;
              version column for optimistic concurrency
  periods:    One row per period, keyed by (budget, category, index)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which SQLite
  needs anyway for one writer. SaveCategory compares the stored version with
  the caller's inside the write transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/budgets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - budget/store.go: Interface definition
  - budget/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/generic"
)

// Store implements budget.Store using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.BudgetFactory
}

var _ budget.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// has a single writer regardless.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.NewBudgetFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		begin_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		budget_id TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		recurrence_json TEXT NOT NULL,
		rollover_loss TEXT NOT NULL DEFAULT 'none',
		rollover_surplus TEXT NOT NULL DEFAULT 'none',
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (budget_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_categories_budget_position
		ON categories(budget_id, position);

	CREATE TABLE IF NOT EXISTS periods (
		budget_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		begin_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		nominal INTEGER NOT NULL,
		actual INTEGER NOT NULL DEFAULT 0,
		truncate TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (budget_id, category_id, idx),
		FOREIGN KEY (budget_id, category_id)
			REFERENCES categories(budget_id, id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// BUDGETS
// =============================================================================

// SaveBudget inserts or replaces a budget and all of its categories.
func (s *Store) SaveBudget(ctx context.Context, b budget.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (id, name, begin_date, end_date, currency, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				begin_date = excluded.begin_date,
				end_date = excluded.end_date,
				currency = excluded.currency,
				updated_at = excluded.updated_at
		`, b.ID, b.Name, b.Dates.Begin.String(), b.Dates.End.String(), string(b.Currency), now, now)
		if err != nil {
			return fmt.Errorf("failed to save budget: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE budget_id = ?", b.ID); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		for i, c := range b.Categories {
			if err := s.writeCategory(ctx, tx, b.ID, c, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBudget returns a budget with its categories and periods.
func (s *Store) GetBudget(ctx context.Context, id string) (*budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadBudget(ctx, s.db, id)
}

// ListBudgets returns all budgets.
func (s *Store) ListBudgets(ctx context.Context) ([]budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := queryStrings(ctx, s.db, "SELECT id FROM budgets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	budgets := make([]budget.Budget, 0, len(ids))
	for _, id := range ids {
		b, err := s.loadBudget(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, nil
}

// DeleteBudget removes a budget; categories and periods cascade.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrBudgetNotFound
	}
	return nil
}

func (s *Store) loadBudget(ctx context.Context, db execer, id string) (*budget.Budget, error) {
	var (
		b                            budget.Budget
		beginDate, endDate, currency string
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, name, begin_date, end_date, currency FROM budgets WHERE id = ?", id,
	).Scan(&b.ID, &b.Name, &beginDate, &endDate, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budget.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	if b.Dates, err = parseRange(beginDate, endDate); err != nil {
		return nil, err
	}
	b.Currency = generic.Currency(currency)

	if b.Categories, err = s.loadCategories(ctx, db, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SaveCategory writes one category if the stored version is expectedVersion.
func (s *Store) SaveCategory(ctx context.Context, budgetID string, c budget.Category, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM budgets WHERE id = ?", budgetID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check budget: %w", err)
		}
		if exists == 0 {
			return budget.ErrBudgetNotFound
		}

		current, position := 0, -1
		err := tx.QueryRowContext(ctx,
			"SELECT version, position FROM categories WHERE budget_id = ? AND id = ?", budgetID, c.ID,
		).Scan(&current, &position)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read category version: %w", err)
		}
		if current != expectedVersion {
			return budget.ErrConcurrentModification
		}

		if position < 0 {
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(position) + 1, 0) FROM categories WHERE budget_id = ?", budgetID,
			).Scan(&position); err != nil {
				return fmt.Errorf("failed to allocate category position: %w", err)
			}
		}
		return s.writeCategory(ctx, tx, budgetID, c, position)
	})
}

// DeleteCategory removes a category and its periods.
func (s *Store) DeleteCategory(ctx context.Context, budgetID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE budget_id = ? AND id = ?", budgetID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrCategoryNotFound
	}
	return nil
}

func (s *Store) writeCategory(ctx context.Context, tx *sql.Tx, budgetID string, c budget.Category, position int) error {
	if c.Recurrence == nil {
		return fmt.Errorf("category %s: %w", c.ID, budget.ErrNoRecurrence)
	}
	recurrenceJSON, err := json.Marshal(s.factory.RecurrenceToJSON(c.Recurrence))
	if err != nil {
		return fmt.Errorf("failed to encode recurrence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO categories
		(budget_id, id, position, name, type, recurrence_json, rollover_loss, rollover_surplus, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(budget_id, id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			recurrence_json = excluded.recurrence_json,
			rollover_loss = excluded.rollover_loss,
			rollover_surplus = excluded.rollover_surplus,
			version = excluded.version,
			updated_at = excluded.updated_at
	`,
		budgetID, c.ID, position, c.Name, string(c.Type), string(recurrenceJSON),
		string(c.Rollover.Loss), string(c.Rollover.Surplus), c.Version,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM periods WHERE budget_id = ? AND category_id = ?", budgetID, c.ID); err != nil {
		return fmt.Errorf("failed to clear periods: %w", err)
	}
	for i, p := range c.Periods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO periods (budget_id, category_id, idx, begin_date, end_date, nominal, actual, truncate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, budgetID, c.ID, i, p.Dates.Begin.String(), p.Dates.End.String(),
			p.Nominal.Amount, p.Actual.Amount, string(p.Truncate))
		if err != nil {
			return fmt.Errorf("failed to save period %d: %w", i, err)
		}
	}
	return nil
}

type categoryRow struct {
	category       budget.Category
	recurrenceJSON string
}

func (s *Store) loadCategories(ctx context.Context, db execer, budgetID string) ([]budget.Category, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, type, recurrence_json, rollover_loss, rollover_surplus, version
		FROM categories
		WHERE budget_id = ?
		ORDER BY position ASC
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}

	// Drain before querying periods: the store runs on a single connection.
	var loaded []categoryRow
	for rows.Next() {
		var (
			row           categoryRow
			categoryType  string
			loss, surplus string
		)
		if err := rows.Scan(&row.category.ID, &row.category.Name, &categoryType,
			&row.recurrenceJSON, &loss, &surplus, &row.category.Version); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		row.category.Type = budget.CategoryType(categoryType)
		row.category.Rollover = budget.Rollover{Loss: budget.RolloverPolicy(loss), Surplus: budget.RolloverPolicy(surplus)}
		loaded = append(loaded, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var categories []budget.Category
	for _, row := range loaded {
		c := row.category

		var rj factory.RecurrenceJSON
		if err := json.Unmarshal([]byte(row.recurrenceJSON), &rj); err != nil {
			return nil, fmt.Errorf("failed to decode recurrence of category %s: %w", c.ID, err)
		}
		if c.Recurrence, err = s.factory.RecurrenceFromJSON(rj); err != nil {
			return nil, fmt.Errorf("stored recurrence of category %s: %w", c.ID, err)
		}

		if c.Periods, err = s.loadPeriods(ctx, db, budgetID, c.ID, c.Currency()); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (s *Store) loadPeriods(ctx context.Context, db execer, budgetID, categoryID string, currency generic.Currency) ([]budget.Period, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT begin_date, end_date, nominal, actual, truncate
		FROM periods
		WHERE budget_id = ? AND category_id = ?
		ORDER BY idx ASC
	`, budgetID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []budget.Period
	for rows.Next() {
		var (
			beginDate, endDate, truncate string
			nominal, actual              int64
		)
		if err := rows.Scan(&beginDate, &endDate, &nominal, &actual, &truncate); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		dates, err := parseRange(beginDate, endDate)
		if err != nil {
			return nil, err
		}
		periods = append(periods, budget.Period{
			Dates:    dates,
			Nominal:  generic.NewMoney(nominal, currency),
			Actual:   generic.NewMoney(actual, currency),
			Truncate: budget.TruncateMode(truncate),
		})
	}
	return periods, rows.Err()
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM periods;
		DELETE FROM categories;
		DELETE FROM budgets;
	`)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func queryStrings(ctx context.Context, db execer, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func parseRange(begin, end string) (generic.DateRange, error) {
	b, err := generic.ParseDate(begin)
	if err != nil {
		return generic.DateRange{}, fmt.Errorf("stored date: %w", err)
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.DateRange{}, fmt.Errorf("stored date: %w", err)
	}
	return generic.NewDateRange(b, e), nil
}
