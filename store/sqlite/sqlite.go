/*
Package sqlite provides a SQLite-backed implementation of the collaborator
interfaces of the compensation service.

PURPOSE:
  Persists the catalogs the engine reads (activity tiers, KPI
  definitions), the worker profiles, and the launch history the daily
  claim limiter counts. In production the same patterns apply to
  PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  compensation.TierCatalog:    GetTiers
  compensation.KPICatalog:     GetKPIs
  compensation.ClaimCounter:   GetClaimCount
  compensation.LaunchRecorder: RecordLaunch

APPEND-ONLY LAUNCHES:
  Launches are never updated or deleted (except by Reset). The claim
  count is derived from them, so a day's count can only grow.

KEY TABLES:
  activity_tiers:   One row per (activity, level); thresholds unique per activity
  kpi_definitions:  One row per (name, function, shift)
  users:            Worker profiles
  launches:         Immutable calculation history

MONEY:
  Decimals are stored as TEXT (decimal.Decimal.String) and parsed back
  with shopspring/decimal. Nothing goes through REAL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block
  each other and a single writer runs at a time.

USAGE:
  store, err := sqlite.New("./data/variable-pay.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := compensation.NewService(store, perTaskRate, loc)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - compensation/service.go: Interface definitions
  - store/memory: In-memory implementation for tests and the CLI
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
)

// Store implements the collaborator interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
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

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Activity tiers
	CREATE TABLE IF NOT EXISTS activity_tiers (
		activity_name TEXT NOT NULL,
		level_label TEXT NOT NULL,
		min_productivity TEXT NOT NULL,
		unit_value TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (activity_name, level_label)
	);

	-- Tiers of one activity are totally ordered by threshold
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tiers_activity_threshold
		ON activity_tiers(activity_name, min_productivity);

	-- KPI definitions
	CREATE TABLE IF NOT EXISTS kpi_definitions (
		name TEXT NOT NULL,
		function_name TEXT NOT NULL,
		shift TEXT NOT NULL,
		bonus_weight TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (name, function_name, shift)
	);

	CREATE INDEX IF NOT EXISTS idx_kpis_function_shift
		ON kpi_definitions(function_name, shift);

	-- Users (worker profiles)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		function_name TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		basis TEXT NOT NULL DEFAULT 'activity',
		operator_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Launches (append-only calculation history)
	CREATE TABLE IF NOT EXISTS launches (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		function_name TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		basis TEXT NOT NULL,
		claimed_kpis_json TEXT NOT NULL,
		achieved_kpis_json TEXT NOT NULL,
		kpi_bearing BOOLEAN NOT NULL DEFAULT FALSE,
		net_activity_value TEXT NOT NULL,
		kpi_bonus_total TEXT NOT NULL,
		valid_task_count INTEGER NOT NULL DEFAULT 0,
		valid_task_value TEXT NOT NULL,
		manual_extra TEXT NOT NULL,
		total_compensation TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Claim counting (hot path of every KPI-bearing calculation)
	CREATE INDEX IF NOT EXISTS idx_launches_user_day
		ON launches(user_id, day, kpi_bearing);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a database transaction. Callers hold s.mu.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// TIER CATALOG (compensation.TierCatalog interface)
// =============================================================================

// GetTiers returns the tiers of an activity ordered by threshold. Unknown
// activities yield an empty slice.
func (s *Store) GetTiers(ctx context.Context, activityName string) ([]compensation.ActivityTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTiers(ctx, `
		SELECT activity_name, level_label, min_productivity, unit_value, unit
		FROM activity_tiers
		WHERE activity_name = ?
	`, activityName)
}

// ListTiers returns every tier, grouped by activity name and ordered by
// threshold within each activity.
func (s *Store) ListTiers(ctx context.Context) ([]compensation.ActivityTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTiers(ctx, `
		SELECT activity_name, level_label, min_productivity, unit_value, unit
		FROM activity_tiers
	`)
}

func (s *Store) queryTiers(ctx context.Context, query string, args ...any) ([]compensation.ActivityTier, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiers: %w", err)
	}
	defer rows.Close()

	tiers := []compensation.ActivityTier{}
	for rows.Next() {
		var (
			t               compensation.ActivityTier
			minProductivity string
			unitValue       string
		)
		if err := rows.Scan(&t.ActivityName, &t.LevelLabel, &minProductivity, &unitValue, &t.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan tier: %w", err)
		}
		if t.MinProductivity, err = parseDecimal("min_productivity", minProductivity); err != nil {
			return nil, err
		}
		if t.UnitValue, err = parseDecimal("unit_value", unitValue); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].ActivityName != tiers[j].ActivityName {
			return tiers[i].ActivityName < tiers[j].ActivityName
		}
		return tiers[i].MinProductivity.LessThan(tiers[j].MinProductivity)
	})
	return tiers, nil
}

// SaveTier inserts or updates a tier, keyed by activity and level label.
// A threshold already used by another level of the activity is rejected.
func (s *Store) SaveTier(ctx context.Context, tier compensation.ActivityTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveTier(ctx, s.db, tier)
}

// ReplaceActivityTiers swaps the whole tier set of one activity atomically.
func (s *Store) ReplaceActivityTiers(ctx context.Context, activityName string, tiers []compensation.ActivityTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM activity_tiers WHERE activity_name = ?", activityName); err != nil {
			return fmt.Errorf("failed to delete tiers: %w", err)
		}
		for _, t := range tiers {
			t.ActivityName = activityName
			if err := saveTier(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveTier(ctx context.Context, db execer, tier compensation.ActivityTier) error {
	query := `
		INSERT INTO activity_tiers (activity_name, level_label, min_productivity, unit_value, unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(activity_name, level_label) DO UPDATE SET
			min_productivity = excluded.min_productivity,
			unit_value = excluded.unit_value,
			unit = excluded.unit,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		tier.ActivityName, tier.LevelLabel,
		tier.MinProductivity.String(), tier.UnitValue.String(), tier.Unit,
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &generic.InvalidInputError{
				Field:  "min_productivity",
				Value:  tier.MinProductivity.String(),
				Reason: fmt.Sprintf("another level of %q already uses this threshold", tier.ActivityName),
			}
		}
		return fmt.Errorf("failed to save tier: %w", err)
	}
	return nil
}

// DeleteTiers removes every tier of an activity.
func (s *Store) DeleteTiers(ctx context.Context, activityName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM activity_tiers WHERE activity_name = ?", activityName)
	if err != nil {
		return fmt.Errorf("failed to delete tiers: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "activity tiers", Key: activityName}
	}
	return nil
}

// =============================================================================
// KPI CATALOG (compensation.KPICatalog interface)
// =============================================================================

// GetKPIs returns the definitions of functionName that apply on shift,
// including the general ones.
func (s *Store) GetKPIs(ctx context.Context, functionName string, shift compensation.Shift) ([]compensation.KPIDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryKPIs(ctx, `
		SELECT name, function_name, shift, bonus_weight
		FROM kpi_definitions
		WHERE function_name = ? AND shift IN (?, ?)
		ORDER BY name, shift
	`, functionName, string(shift), string(compensation.ShiftGeneral))
}

// ListKPIs returns every KPI definition.
func (s *Store) ListKPIs(ctx context.Context) ([]compensation.KPIDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryKPIs(ctx, `
		SELECT name, function_name, shift, bonus_weight
		FROM kpi_definitions
		ORDER BY function_name, name, shift
	`)
}

func (s *Store) queryKPIs(ctx context.Context, query string, args ...any) ([]compensation.KPIDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query KPIs: %w", err)
	}
	defer rows.Close()

	defs := []compensation.KPIDefinition{}
	for rows.Next() {
		var (
			def    compensation.KPIDefinition
			shift  string
			weight string
		)
		if err := rows.Scan(&def.Name, &def.FunctionName, &shift, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan KPI: %w", err)
		}
		def.Shift = compensation.Shift(shift)
		if def.BonusWeight, err = parseDecimal("bonus_weight", weight); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// SaveKPI inserts or updates a definition, keyed by name, function and shift.
func (s *Store) SaveKPI(ctx context.Context, def compensation.KPIDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveKPI(ctx, s.db, def)
}

func saveKPI(ctx context.Context, db execer, def compensation.KPIDefinition) error {
	query := `
		INSERT INTO kpi_definitions (name, function_name, shift, bonus_weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, function_name, shift) DO UPDATE SET
			bonus_weight = excluded.bonus_weight,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		def.Name, def.FunctionName, string(def.Shift), def.BonusWeight.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save KPI: %w", err)
	}
	return nil
}

// DeleteKPI removes one definition.
func (s *Store) DeleteKPI(ctx context.Context, name, functionName string, shift compensation.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kpi_definitions WHERE name = ? AND function_name = ? AND shift = ?",
		name, functionName, string(shift),
	)
	if err != nil {
		return fmt.Errorf("failed to delete KPI: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "KPI definition", Key: name}
	}
	return nil
}

// ReplaceCatalog swaps the whole tier and KPI catalog atomically. Users
// and launches are kept.
func (s *Store) ReplaceCatalog(ctx context.Context, tiers []compensation.ActivityTier, kpis []compensation.KPIDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"activity_tiers", "kpi_definitions"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		for _, t := range tiers {
			if err := saveTier(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, k := range kpis {
			if err := saveKPI(ctx, tx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// USER STORE
// =============================================================================

// SaveUser inserts or updates a worker profile.
func (s *Store) SaveUser(ctx context.Context, u compensation.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, function_name, shift, basis, operator_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			function_name = excluded.function_name,
			shift = excluded.shift,
			basis = excluded.basis,
			operator_name = excluded.operator_name
	`

	basis := u.Basis
	if basis == "" {
		basis = compensation.BasisActivity
	}
	_, err := s.db.ExecContext(ctx, query,
		string(u.ID), u.Name, u.FunctionName, string(u.Shift), string(basis), u.OperatorName,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID. Returns nil, nil when absent.
func (s *Store) GetUser(ctx context.Context, id generic.UserID) (*compensation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u            compensation.User
		userID       string
		shift, basis string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, function_name, shift, basis, operator_name FROM users WHERE id = ?",
		string(id),
	).Scan(&userID, &u.Name, &u.FunctionName, &shift, &basis, &u.OperatorName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.ID = generic.UserID(userID)
	u.Shift = compensation.Shift(shift)
	u.Basis = compensation.PayBasis(basis)
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]compensation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, function_name, shift, basis, operator_name FROM users ORDER BY name, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []compensation.User{}
	for rows.Next() {
		var (
			u            compensation.User
			userID       string
			shift, basis string
		)
		if err := rows.Scan(&userID, &u.Name, &u.FunctionName, &shift, &basis, &u.OperatorName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.ID = generic.UserID(userID)
		u.Shift = compensation.Shift(shift)
		u.Basis = compensation.PayBasis(basis)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// LAUNCH STORE (compensation.ClaimCounter, compensation.LaunchRecorder)
// =============================================================================

// GetClaimCount counts the KPI-bearing launches of a user on a day.
func (s *Store) GetClaimCount(ctx context.Context, userID generic.UserID, day generic.TimePoint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM launches WHERE user_id = ? AND day = ? AND kpi_bearing = TRUE",
		string(userID), day.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// RecordLaunch appends a launch.
func (s *Store) RecordLaunch(ctx context.Context, l compensation.Launch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claimedJSON, err := json.Marshal(nonNil(l.ClaimedKPIs))
	if err != nil {
		return fmt.Errorf("failed to encode claimed KPIs: %w", err)
	}
	achievedJSON, err := json.Marshal(nonNil(l.AchievedKPIs))
	if err != nil {
		return fmt.Errorf("failed to encode achieved KPIs: %w", err)
	}

	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO launches
		(id, user_id, day, function_name, shift, basis, claimed_kpis_json, achieved_kpis_json,
		 kpi_bearing, net_activity_value, kpi_bonus_total, valid_task_count, valid_task_value,
		 manual_extra, total_compensation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		l.ID, string(l.UserID), l.Date.String(), l.FunctionName, string(l.Shift), string(l.Basis),
		string(claimedJSON), string(achievedJSON),
		l.IsKPIBearing(),
		l.NetActivityValue.String(), l.KPIBonusTotal.String(),
		l.ValidTaskCount, l.ValidTaskValue.String(),
		l.ManualExtra.String(), l.TotalCompensation.String(),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record launch: %w", err)
	}
	return nil
}

// Launches returns the launches of a user within period, oldest first.
func (s *Store) Launches(ctx context.Context, userID generic.UserID, period generic.Period) ([]compensation.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, day, function_name, shift, basis, claimed_kpis_json, achieved_kpis_json,
		       net_activity_value, kpi_bonus_total, valid_task_count, valid_task_value,
		       manual_extra, total_compensation, created_at
		FROM launches
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(userID), period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer rows.Close()

	launches := []compensation.Launch{}
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		launches = append(launches, l)
	}
	return launches, rows.Err()
}

func scanLaunch(rows *sql.Rows) (compensation.Launch, error) {
	var (
		l                         compensation.Launch
		userID, day, shift, basis string
		claimedJSON, achievedJSON string
		net, bonus, taskValue     string
		extra, total, createdAt   string
	)

	err := rows.Scan(
		&l.ID, &userID, &day, &l.FunctionName, &shift, &basis, &claimedJSON, &achievedJSON,
		&net, &bonus, &l.ValidTaskCount, &taskValue, &extra, &total, &createdAt,
	)
	if err != nil {
		return l, fmt.Errorf("failed to scan launch: %w", err)
	}

	l.UserID = generic.UserID(userID)
	if l.Date, err = generic.ParseDay(day); err != nil {
		return l, fmt.Errorf("launch %s: %w", l.ID, err)
	}
	l.Shift = compensation.Shift(shift)
	l.Basis = compensation.PayBasis(basis)
	if err := json.Unmarshal([]byte(claimedJSON), &l.ClaimedKPIs); err != nil {
		return l, fmt.Errorf("launch %s: failed to decode claimed KPIs: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(achievedJSON), &l.AchievedKPIs); err != nil {
		return l, fmt.Errorf("launch %s: failed to decode achieved KPIs: %w", l.ID, err)
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"net_activity_value", net, &l.NetActivityValue},
		{"kpi_bonus_total", bonus, &l.KPIBonusTotal},
		{"valid_task_value", taskValue, &l.ValidTaskValue},
		{"manual_extra", extra, &l.ManualExtra},
		{"total_compensation", total, &l.TotalCompensation},
	} {
		if *f.dst, err = parseDecimal(f.name, f.raw); err != nil {
			return l, err
		}
	}

	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return l, fmt.Errorf("launch %s: invalid created_at %q: %w", l.ID, createdAt, err)
	}
	return l, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"launches", "users", "kpi_definitions", "activity_tiers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", column, value, err)
	}
	return d, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
