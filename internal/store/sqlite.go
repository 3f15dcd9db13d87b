package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

func sqliteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id          TEXT PRIMARY KEY,
			admin_id    TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL,
			row_version INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_admin ON clients(admin_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			rental_id   TEXT NOT NULL DEFAULT '',
			client_id   TEXT NOT NULL DEFAULT '',
			data        TEXT NOT NULL,
			uploaded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_client ON documents(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_rental ON documents(rental_id)`,
	}
}

// SQLiteStore is the single-machine driver. It shares the table layout and
// the versioned update loop of the Postgres driver.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range append(pragmas, sqliteMigrations()...) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM clients ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		c, err := decodeClient([]byte(raw))
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM clients WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeClient([]byte(raw))
}

// checkRentals rejects rental ids of c that another client already owns.
func (s *SQLiteStore) checkRentals(ctx context.Context, c *domain.Client) error {
	if err := repeatedRentalID(c); err != nil {
		return err
	}
	if len(c.Rentals) == 0 {
		return nil
	}
	ids := rentalIDs(c)
	args := make([]any, 0, len(ids)+1)
	args = append(args, c.ID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	var taken string
	err := s.db.QueryRowContext(ctx,
		`SELECT json_extract(r.value, '$.id') FROM clients c, json_each(c.data, '$.rentals') r
		 WHERE c.id <> ? AND json_extract(r.value, '$.id') IN (`+placeholders+`) LIMIT 1`,
		args...,
	).Scan(&taken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rental id check failed: %w", err)
	}
	return rentalTaken(taken)
}

func (s *SQLiteStore) CreateClient(ctx context.Context, c *domain.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.checkRentals(ctx, c); err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO clients (id, admin_id, data, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.AdminID, string(raw), c.CreatedAt.String(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: client %q", ErrExists, c.ID)
	}
	if err != nil {
		return fmt.Errorf("client insert failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateClient(ctx context.Context, id string, mutate func(*domain.Client) error) (*domain.Client, error) {
	load := func(ctx context.Context) (*domain.Client, int64, error) {
		var raw string
		var version int64
		err := s.db.QueryRowContext(ctx, "SELECT data, row_version FROM clients WHERE id = ?", id).Scan(&raw, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.ErrClientNotFound
		}
		if err != nil {
			return nil, 0, err
		}
		c, err := decodeClient([]byte(raw))
		return c, version, err
	}
	save := func(ctx context.Context, c *domain.Client, expected int64) (bool, error) {
		if err := s.checkRentals(ctx, c); err != nil {
			return false, err
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return false, err
		}
		res, err := s.db.ExecContext(ctx,
			"UPDATE clients SET data = ?, admin_id = ?, row_version = row_version + 1 WHERE id = ? AND row_version = ?",
			string(raw), c.AdminID, id, expected,
		)
		if err != nil {
			return false, fmt.Errorf("client update failed: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		return n == 1, nil
	}
	return updateWithRetry(ctx, id, load, save, mutate)
}

func (s *SQLiteStore) UpdateRental(ctx context.Context, rentalID string, mutate func(*domain.Client, *domain.Rental) error) (*domain.Client, error) {
	var clientID string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id FROM clients c, json_each(c.data, '$.rentals') r
		WHERE json_extract(r.value, '$.id') = ?
		LIMIT 1`, rentalID).Scan(&clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRentalNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.UpdateClient(ctx, clientID, rentalMutation(rentalID, mutate))
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, "SELECT data FROM clients WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrClientNotFound
	}
	if err != nil {
		return err
	}
	var c domain.Client
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return fmt.Errorf("store: decoding client: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE client_id = ?", id); err != nil {
		return fmt.Errorf("document cascade failed: %w", err)
	}
	for _, rid := range rentalIDs(&c) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE rental_id = ?", rid); err != nil {
			return fmt.Errorf("document cascade failed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM documents ORDER BY uploaded_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (id, rental_id, client_id, data, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.RentalID, doc.ClientID, string(raw), doc.UploadedAt.String(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: document %q", ErrExists, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("document insert failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) (*domain.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return nil, err
	}
	return decodeDocument([]byte(raw))
}
