package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tilekeep/pkg/integration"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// SQLStore is the database/sql-backed implementation of Store. It is safe
// for concurrent use by multiple WorldRooms; no room holds a connection
// across an entire tick, only for the duration of a lookup or SaveAll.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore opens a connection pool for driver ("sqlite3" or "postgres")
// against dsn, enables SQLite's WAL journal when applicable, and runs the
// idempotent schema pass.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logrus.WithError(err).Warn("persistence: failed to set WAL mode")
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			logrus.WithError(err).Warn("persistence: failed to enable foreign keys")
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: failed to initialize schema: %w", err)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// GetWorld loads a world save row. It returns ErrNotFound if worldID has no
// matching row. Lookups are not retried: a missing row is an expected
// outcome, not a transient failure.
func (s *SQLStore) GetWorld(ctx context.Context, worldID string) (*WorldSaveRow, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "GetWorld", "worldId": worldID})

	var row WorldSaveRow
	var createdAt, updatedAt string
	var worldData string

	query := s.db.Rebind(`SELECT id, owner_account_id, name, seed, world_data, created_at, updated_at
		FROM world_saves WHERE id = ?`)
	err := s.db.QueryRowxContext(ctx, query, worldID).Scan(
		&row.ID, &row.OwnerAccountID, &row.Name, &row.Seed, &worldData, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.WithError(err).Error("failed to load world")
		return nil, fmt.Errorf("persistence: GetWorld failed: %w", err)
	}

	row.WorldData = []byte(worldData)
	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &row, nil
}

// GetCharacter loads the character bound to (accountID, worldID). It
// returns ErrNotFound if no such character exists yet.
func (s *SQLStore) GetCharacter(ctx context.Context, accountID, worldID string) (*CharacterRow, error) {
	var row CharacterRow
	var createdAt, updatedAt string

	query := s.db.Rebind(`SELECT id, account_id, world_id, name, x, y, created_at, updated_at
		FROM characters WHERE account_id = ? AND world_id = ?`)
	err := s.db.QueryRowxContext(ctx, query, accountID, worldID).Scan(
		&row.ID, &row.AccountID, &row.WorldID, &row.Name, &row.X, &row.Y, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: GetCharacter failed: %w", err)
	}

	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &row, nil
}

// CreateCharacter inserts a new character at the given spawn coordinates.
func (s *SQLStore) CreateCharacter(ctx context.Context, accountID, worldID, name string, spawnX, spawnY int) (*CharacterRow, error) {
	now := time.Now().UTC()
	row := &CharacterRow{
		ID:        uuid.New().String(),
		AccountID: accountID,
		WorldID:   worldID,
		Name:      name,
		X:         spawnX,
		Y:         spawnY,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := integration.ExecuteNetworkOperation(ctx, func(ctx context.Context) error {
		query := s.db.Rebind(`INSERT INTO characters (id, account_id, world_id, name, x, y, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err := s.db.ExecContext(ctx, query,
			row.ID, row.AccountID, row.WorldID, row.Name, row.X, row.Y,
			row.CreatedAt.Format(time.RFC3339), row.UpdatedAt.Format(time.RFC3339))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: CreateCharacter failed: %w", err)
	}

	return row, nil
}

// SaveAll persists worldData and every character position in positions
// within a single transaction: either everything commits, or nothing does.
func (s *SQLStore) SaveAll(ctx context.Context, worldID string, worldData []byte, positions []CharacterPosition) error {
	logger := logrus.WithFields(logrus.Fields{
		"function": "SaveAll",
		"worldId":  worldID,
		"players":  len(positions),
	})

	return integration.ExecuteNetworkOperation(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("persistence: failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		now := time.Now().UTC().Format(time.RFC3339)

		if worldData != nil {
			worldQuery := s.db.Rebind(`UPDATE world_saves SET world_data = ?, updated_at = ? WHERE id = ?`)
			if _, err := tx.ExecContext(ctx, worldQuery, string(worldData), now, worldID); err != nil {
				return fmt.Errorf("persistence: failed to save world data: %w", err)
			}
		}

		posQuery := s.db.Rebind(`UPDATE characters SET x = ?, y = ?, updated_at = ? WHERE id = ?`)
		for _, pos := range positions {
			if _, err := tx.ExecContext(ctx, posQuery, pos.X, pos.Y, now, pos.CharacterID); err != nil {
				return fmt.Errorf("persistence: failed to save character %s: %w", pos.CharacterID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("persistence: failed to commit save: %w", err)
		}

		logger.Debug("save committed")
		return nil
	})
}
