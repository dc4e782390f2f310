// Package registry persists capability descriptors in SQLite and republishes
// the full set to the routing engine after every change.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"toolroute/internal/domain"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no capability is stored under the given id.
var ErrNotFound = errors.New("capability not found")

// Store keeps capability descriptors in a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Event is one entry of the registry change log.
type Event struct {
	ID        int64
	Action    string
	ServerID  string
	CreatedAt time.Time
}

// OpenStore opens (or creates) the registry database at dbPath and applies
// pending migrations.
func OpenStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Put inserts or replaces the descriptor stored under d.ServerID.
func (s *Store) Put(ctx context.Context, d domain.CapabilityDescriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode capability %s: %w", d.ServerID, err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO capabilities (server_id, display_name, category, descriptor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(server_id) DO UPDATE SET
		   display_name = excluded.display_name,
		   category     = excluded.category,
		   descriptor   = excluded.descriptor,
		   updated_at   = excluded.updated_at`,
		d.ServerID, d.DisplayName, string(d.Category), string(payload), now, now,
	)
	if err != nil {
		return fmt.Errorf("store capability %s: %w", d.ServerID, err)
	}
	s.logEvent(ctx, "put", d.ServerID)
	return nil
}

// Get returns the descriptor stored under serverID.
func (s *Store) Get(ctx context.Context, serverID string) (domain.CapabilityDescriptor, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT descriptor FROM capabilities WHERE server_id = ?`, serverID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CapabilityDescriptor{}, fmt.Errorf("%s: %w", serverID, ErrNotFound)
	}
	if err != nil {
		return domain.CapabilityDescriptor{}, err
	}
	return decode(payload)
}

// Delete removes the descriptor stored under serverID.
func (s *Store) Delete(ctx context.Context, serverID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM capabilities WHERE server_id = ?`, serverID)
	if err != nil {
		return fmt.Errorf("delete capability %s: %w", serverID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", serverID, ErrNotFound)
	}
	s.logEvent(ctx, "delete", serverID)
	return nil
}

// List returns every stored descriptor in registration order.
func (s *Store) List(ctx context.Context) ([]domain.CapabilityDescriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT descriptor FROM capabilities ORDER BY created_at, server_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CapabilityDescriptor
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		d, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Events returns the most recent change-log entries, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, server_id, created_at FROM registry_events
		 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Action, &e.ServerID, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) logEvent(ctx context.Context, action, serverID string) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_events (action, server_id, created_at) VALUES (?, ?, ?)`,
		action, serverID, time.Now(),
	); err != nil {
		s.logger.Warn("registry event not recorded", "action", action, "server_id", serverID, "err", err)
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decode(payload string) (domain.CapabilityDescriptor, error) {
	var d domain.CapabilityDescriptor
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return domain.CapabilityDescriptor{}, fmt.Errorf("decode capability: %w", err)
	}
	return d, nil
}
