package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"haushalt/internal/budget"
	"haushalt/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// SQLiteRepository stores one budget profile document per user. The
// ledger lives in a JSON column, so a profile save stays a single-row,
// single-statement update; SaveProfile merges only the fields the update
// actually carries.
type SQLiteRepository struct {
	db *sql.DB
}

var _ budget.ProfileStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := applySchema(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// applySchema brings the database up to the current embedded schema. The
// migration driver gets its own connection, closed when it is done, so its
// bookkeeping traffic never shares the repository's pool.
func applySchema(dbPath string) error {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded schema: %w", err)
	}

	mdb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer mdb.Close()

	driver, err := sqlite.WithInstance(mdb, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("prepare migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) LoadProfile(ctx context.Context, userID string) (*core.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT monthly_budget, savings_goal, remaining_budget, last_reset_month, configured, ledger, revision
		FROM profiles WHERE user_id = ?`, userID)

	var (
		monthlyBudget, savingsGoal, remaining sql.NullFloat64
		lastResetMonth                        sql.NullInt64
		configured                            bool
		ledgerJSON                            string
		revision                              int64
	)
	err := row.Scan(&monthlyBudget, &savingsGoal, &remaining, &lastResetMonth, &configured, &ledgerJSON, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budget.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	prof := &core.Profile{Configured: configured, Revision: revision}
	if monthlyBudget.Valid {
		prof.MonthlyBudget = &monthlyBudget.Float64
	}
	if savingsGoal.Valid {
		prof.SavingsGoal = &savingsGoal.Float64
	}
	if remaining.Valid {
		prof.RemainingBudget = &remaining.Float64
	}
	if lastResetMonth.Valid {
		month := int(lastResetMonth.Int64)
		prof.LastResetMonth = &month
	}
	if err := json.Unmarshal([]byte(ledgerJSON), &prof.Ledger); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	return prof, nil
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, userID string) (*core.Profile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id) VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	slog.InfoContext(ctx, "Profile document created", "user_id", userID)
	return r.LoadProfile(ctx, userID)
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, userID string, update core.ProfileUpdate) error {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)

	if update.MonthlyBudget != nil {
		sets = append(sets, "monthly_budget = ?")
		args = append(args, *update.MonthlyBudget)
	}
	if update.SavingsGoal != nil {
		sets = append(sets, "savings_goal = ?")
		args = append(args, *update.SavingsGoal)
	}
	if update.RemainingBudget != nil {
		sets = append(sets, "remaining_budget = ?")
		args = append(args, *update.RemainingBudget)
	}
	if update.LastResetMonth != nil {
		sets = append(sets, "last_reset_month = ?")
		args = append(args, *update.LastResetMonth)
	}
	if update.Configured != nil {
		sets = append(sets, "configured = ?")
		args = append(args, *update.Configured)
	}
	if update.ReplaceLedger {
		ledger := update.Ledger
		if ledger == nil {
			ledger = []core.Expense{}
		}
		encoded, err := json.Marshal(ledger)
		if err != nil {
			return fmt.Errorf("encode ledger: %w", err)
		}
		sets = append(sets, "ledger = ?")
		args = append(args, string(encoded))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "revision = revision + 1", "updated_at = CURRENT_TIMESTAMP")

	where := " WHERE user_id = ?"
	args = append(args, userID)
	if update.ExpectedRevision != nil {
		// Conditional write: the update lands only if no other writer
		// saved the document since it was loaded.
		where += " AND revision = ?"
		args = append(args, *update.ExpectedRevision)
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if update.ExpectedRevision != nil {
			var exists int
			err := r.db.QueryRowContext(ctx,
				"SELECT 1 FROM profiles WHERE user_id = ?", userID).Scan(&exists)
			if err == nil {
				return budget.ErrStaleProfile
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("check profile: %w", err)
			}
		}
		return budget.ErrProfileNotFound
	}

	return nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return ids, nil
}

// AuditEntry is one row of the charge audit trail written by the audit
// worker from AMQP events.
type AuditEntry struct {
	ID         int64
	UserID     string
	Kind       string // "expense" or "recurring_charge"
	Name       string
	Amount     float64
	Category   string
	OccurredAt time.Time
	RecordedAt time.Time
}

func (r *SQLiteRepository) AppendAuditEntry(ctx context.Context, e AuditEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (user_id, kind, name, amount, category, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Kind, e.Name, e.Amount, e.Category, e.OccurredAt)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Audit entry recorded",
		"id", id,
		"user_id", e.UserID,
		"kind", e.Kind,
		"amount", e.Amount)

	return id, nil
}

func (r *SQLiteRepository) ListAuditEntries(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, name, amount, category, occurred_at, recorded_at
		FROM audit_entries WHERE user_id = ?
		ORDER BY occurred_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Name, &e.Amount, &e.Category, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
