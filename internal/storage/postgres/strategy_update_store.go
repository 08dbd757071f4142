package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"roulette-tracker/internal/domain"
	"roulette-tracker/internal/storage"
)

// StrategyUpdateStore implements storage.StrategyUpdateStore using PostgreSQL.
type StrategyUpdateStore struct {
	pool *Pool
}

// NewStrategyUpdateStore creates a new StrategyUpdateStore.
func NewStrategyUpdateStore(pool *Pool) *StrategyUpdateStore {
	return &StrategyUpdateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyUpdateStore = (*StrategyUpdateStore)(nil)

const updateColumns = `
	update_id, table_id, table_name, step, number,
	previous_state, state, trigger_number, previous_trigger_number,
	wins, losses, outcome, suggested_numbers, timestamp_ms`

// Insert adds a new update. Returns ErrDuplicateKey if update_id or (table_id, step) exists.
func (s *StrategyUpdateStore) Insert(ctx context.Context, u *domain.StrategyUpdate) (err error) {
	if u == nil || u.UpdateID == "" || u.TableID == "" || !u.State.Valid() {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_strategy_update", start, err) }(time.Now())

	suggested := u.SuggestedNumbers
	if suggested == nil {
		suggested = []int{}
	}

	query := `
		INSERT INTO strategy_updates (` + updateColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
	`

	_, err = s.pool.Exec(ctx, query,
		u.UpdateID, u.TableID, u.TableName, u.Step, u.Number,
		string(u.PreviousState), string(u.State), u.TriggerNumber, u.PreviousTriggerNumber,
		u.Wins, u.Losses, string(u.Outcome), suggested, u.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy update: %w", err)
	}
	return nil
}

// GetLatest retrieves the update with the highest step for a table.
func (s *StrategyUpdateStore) GetLatest(ctx context.Context, tableID string) (*domain.StrategyUpdate, error) {
	query := `
		SELECT ` + updateColumns + `
		FROM strategy_updates
		WHERE table_id = $1
		ORDER BY step DESC
		LIMIT 1
	`

	u, err := scanUpdate(s.pool.QueryRow(ctx, query, tableID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest strategy update: %w", err)
	}
	return u, nil
}

// GetByTable retrieves all updates of a table, ordered by step ASC.
func (s *StrategyUpdateStore) GetByTable(ctx context.Context, tableID string) ([]*domain.StrategyUpdate, error) {
	query := `
		SELECT ` + updateColumns + `
		FROM strategy_updates
		WHERE table_id = $1
		ORDER BY step ASC
	`

	rows, err := s.pool.Query(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("get strategy updates by table: %w", err)
	}
	defer rows.Close()

	var updates []*domain.StrategyUpdate
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy update row: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy update rows: %w", err)
	}
	return updates, nil
}

// scanUpdate scans a single row into a StrategyUpdate.
func scanUpdate(row pgx.Row) (*domain.StrategyUpdate, error) {
	var u domain.StrategyUpdate
	var prevState, state, outcome string

	err := row.Scan(
		&u.UpdateID, &u.TableID, &u.TableName, &u.Step, &u.Number,
		&prevState, &state, &u.TriggerNumber, &u.PreviousTriggerNumber,
		&u.Wins, &u.Losses, &outcome, &u.SuggestedNumbers, &u.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	u.PreviousState = domain.StrategyState(prevState)
	u.State = domain.StrategyState(state)
	u.Outcome = domain.Outcome(outcome)
	return &u, nil
}
