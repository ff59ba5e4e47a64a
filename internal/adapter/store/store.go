package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/weatherflow2mqtt/internal/core/domain"
	"github.com/berfenger/weatherflow2mqtt/internal/core/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const entryColumns = "id, title, host, name, source, data, created_at"

var ErrDuplicateHost = port.ErrDuplicateHost

// Store persists configuration entries in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a second connection would see a different :memory: database
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			host TEXT NOT NULL UNIQUE,
			name TEXT,
			source TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new entry built from a create_entry flow result.
func (s *Store) Create(ctx context.Context, title, source string, data domain.EntryData) (domain.ConfigEntry, error) {
	entry := domain.ConfigEntry{
		Id:        uuid.New().String(),
		Title:     title,
		Host:      data.Host,
		Name:      data.Name,
		Source:    source,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(entry.Data)
	if err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("encode entry data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ConfigEntry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE host = ?`, entry.Host).Scan(&count); err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("check host: %w", err)
	}
	if count > 0 {
		return domain.ConfigEntry{}, ErrDuplicateHost
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Id, entry.Title, entry.Host, entry.Name, entry.Source, string(raw), entry.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ConfigEntry{}, err
	}

	s.logger.Info("entry created", zap.String("id", entry.Id), zap.String("host", entry.Host))
	return entry, nil
}

func (s *Store) List(ctx context.Context) ([]domain.ConfigEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ConfigEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Hosts lists every configured host.
func (s *Store) Hosts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT host FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// Delete removes an entry. Deleting an unknown id reports false.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.Info("entry deleted", zap.String("id", id))
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.ConfigEntry, error) {
	var (
		entry   domain.ConfigEntry
		name    sql.NullString
		raw     string
		created string
	)
	if err := row.Scan(&entry.Id, &entry.Title, &entry.Host, &name, &entry.Source, &raw, &created); err != nil {
		return domain.ConfigEntry{}, err
	}
	entry.Name = name.String
	if err := json.Unmarshal([]byte(raw), &entry.Data); err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("decode entry data: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.ConfigEntry{}, fmt.Errorf("decode entry time: %w", err)
	}
	entry.CreatedAt = t
	return entry, nil
}
