package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertStateSQL = `INSERT INTO monitor_states (
        target_key,
        last_price_gbp,
        last_checked_utc
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (target_key) DO UPDATE
    SET
        last_price_gbp   = EXCLUDED.last_price_gbp,
        last_checked_utc = EXCLUDED.last_checked_utc;`

	loadStateSQL = `SELECT
        target_key,
        last_price_gbp,
        last_checked_utc
    FROM monitor_states
    WHERE target_key = $1;`

	insertCheckSQL = `INSERT INTO price_checks (
        target_key,
        checked_at,
        chosen_price_gbp,
        source,
        amounts_found,
        url
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	listChecksBetweenSQL = `SELECT
        checked_at,
        chosen_price_gbp,
        source,
        amounts_found,
        url
    FROM price_checks
    WHERE target_key = $1
      AND checked_at >= $2
      AND checked_at < $3
    ORDER BY checked_at;`

	listRecentChecksSQL = `SELECT
        checked_at,
        chosen_price_gbp,
        source,
        amounts_found,
        url
    FROM price_checks
    WHERE target_key = $1
    ORDER BY checked_at DESC
    LIMIT $2;`

	insertAlertSQL = `INSERT INTO alerts (
        target_key,
        check_ts,
        kind,
        message
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, target_key, check_ts, kind, message, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        target_key,
        check_ts,
        kind,
        message,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// StateStore persists per-target monitor state. LoadState returns (nil, nil)
// when no prior state exists for the key.
type StateStore interface {
	LoadState(ctx context.Context, targetKey string) (*MonitorState, error)
	SaveState(ctx context.Context, state MonitorState) error
}

// HistorySink records one append-only entry per check and serves reads for
// the show/export commands.
type HistorySink interface {
	AppendHistory(ctx context.Context, targetKey string, rec HistoryRecord) error
	ListRecentHistory(ctx context.Context, targetKey string, limit int) ([]HistoryRecord, error)
	ListHistoryBetween(ctx context.Context, targetKey string, from, to time.Time) ([]HistoryRecord, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates Postgres-backed access to states, checks, and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// LoadState fetches the persisted state for a target key.
func (s *Store) LoadState(ctx context.Context, targetKey string) (*MonitorState, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var (
		state    MonitorState
		priceStr string
	)
	row := pool.QueryRow(ctx, loadStateSQL, targetKey)
	if scanErr := row.Scan(&state.TargetKey, &priceStr, &state.LastChecked); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", scanErr)
	}

	state.LastPrice, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse last price: %w", err)
	}
	return &state, nil
}

// SaveState persists or updates a target's state.
func (s *Store) SaveState(ctx context.Context, state MonitorState) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertStateSQL,
		state.TargetKey,
		state.LastPrice.StringFixed(2),
		state.LastChecked,
	)
	if execErr != nil {
		return fmt.Errorf("upsert state: %w", execErr)
	}
	return nil
}

// AppendHistory inserts one check record.
func (s *Store) AppendHistory(ctx context.Context, targetKey string, rec HistoryRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var price interface{}
	if rec.Price != nil {
		price = rec.Price.StringFixed(2)
	}

	_, execErr := pool.Exec(ctx, insertCheckSQL,
		targetKey,
		rec.Timestamp,
		price,
		rec.Source,
		FormatAmounts(rec.Amounts),
		rec.URL,
	)
	if execErr != nil {
		return fmt.Errorf("append history: %w", execErr)
	}
	return nil
}

// ListRecentHistory lists the most recent checks ordered newest first.
func (s *Store) ListRecentHistory(ctx context.Context, targetKey string, limit int) ([]HistoryRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentChecksSQL, targetKey, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent checks: %w", queryErr)
	}
	defer rows.Close()

	return collectHistoryRows(rows, limit)
}

// ListHistoryBetween lists checks within a time window, oldest first.
func (s *Store) ListHistoryBetween(ctx context.Context, targetKey string, from, to time.Time) ([]HistoryRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listChecksBetweenSQL, targetKey, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list checks between: %w", queryErr)
	}
	defer rows.Close()

	return collectHistoryRows(rows, 0)
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.TargetKey,
		alert.CheckTS,
		alert.Kind,
		alert.Message,
	)

	var rec AlertRecord
	if scanErr := row.Scan(
		&rec.ID,
		&rec.TargetKey,
		&rec.CheckTS,
		&rec.Kind,
		&rec.Message,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.TargetKey,
			&rec.CheckTS,
			&rec.Kind,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectHistoryRows(rows pgx.Rows, sizeHint int) ([]HistoryRecord, error) {
	records := make([]HistoryRecord, 0, sizeHint)
	for rows.Next() {
		var (
			rec      HistoryRecord
			priceStr *string
			amounts  string
		)
		if err := rows.Scan(
			&rec.Timestamp,
			&priceStr,
			&rec.Source,
			&amounts,
			&rec.URL,
		); err != nil {
			return nil, err
		}

		if priceStr != nil {
			price, convErr := decimal.NewFromString(*priceStr)
			if convErr != nil {
				return nil, fmt.Errorf("parse chosen price: %w", convErr)
			}
			rec.Price = &price
		}
		rec.Amounts = ParseAmounts(amounts)
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

var (
	_ StateStore     = (*Store)(nil)
	_ HistorySink    = (*Store)(nil)
	_ AlertStore     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
