package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

// PostgresMigrations returns the schema statements, applied in order at open.
func PostgresMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id          TEXT PRIMARY KEY,
			admin_id    TEXT NOT NULL DEFAULT '',
			data        JSONB NOT NULL,
			row_version BIGINT NOT NULL DEFAULT 1,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_admin ON clients(admin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_rentals ON clients USING GIN ((data->'rentals') jsonb_path_ops)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			rental_id   TEXT NOT NULL DEFAULT '',
			client_id   TEXT NOT NULL DEFAULT '',
			data        JSONB NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_client ON documents(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_rental ON documents(rental_id)`,
	}
}

// PostgresStore keeps one row per client with the client document in JSONB
// and a row_version for optimistic locking.
type PostgresStore struct {
	Db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	for _, stmt := range PostgresMigrations() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	return &PostgresStore{Db: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.Db.Close()
	return nil
}

func decodeClient(raw []byte) (*domain.Client, error) {
	var c domain.Client
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("store: decoding client: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("store: client %q: %w", c.ID, err)
	}
	return &c, nil
}

func decodeDocument(raw []byte) (*domain.Document, error) {
	var d domain.Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("store: decoding document: %w", err)
	}
	return &d, nil
}

// ListClients returns every client in creation order.
func (s *PostgresStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.Db.Query(ctx, "SELECT data FROM clients ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		c, err := decodeClient(raw)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// GetClient retrieves a single client by ID.
func (s *PostgresStore) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var raw []byte
	err := s.Db.QueryRow(ctx, "SELECT data FROM clients WHERE id = $1", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	return decodeClient(raw)
}

// checkRentals rejects rental ids of c that another client already owns.
func (s *PostgresStore) checkRentals(ctx context.Context, c *domain.Client) error {
	if err := repeatedRentalID(c); err != nil {
		return err
	}
	if len(c.Rentals) == 0 {
		return nil
	}
	var taken string
	err := s.Db.QueryRow(ctx,
		`SELECT r->>'id' FROM clients, jsonb_array_elements(data->'rentals') r
		 WHERE clients.id <> $1 AND r->>'id' = ANY($2) LIMIT 1`,
		c.ID, rentalIDs(c),
	).Scan(&taken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rental id check failed: %w", err)
	}
	return rentalTaken(taken)
}

func (s *PostgresStore) CreateClient(ctx context.Context, c *domain.Client) error {
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
	_, err = s.Db.Exec(ctx,
		"INSERT INTO clients (id, admin_id, data, created_at) VALUES ($1, $2, $3, $4)",
		c.ID, c.AdminID, raw, c.CreatedAt.Time,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: client %q", ErrExists, c.ID)
		}
		return fmt.Errorf("client insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, id string, mutate func(*domain.Client) error) (*domain.Client, error) {
	load := func(ctx context.Context) (*domain.Client, int64, error) {
		var raw []byte
		var version int64
		err := s.Db.QueryRow(ctx, "SELECT data, row_version FROM clients WHERE id = $1", id).Scan(&raw, &version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, 0, domain.ErrClientNotFound
			}
			return nil, 0, err
		}
		c, err := decodeClient(raw)
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
		tag, err := s.Db.Exec(ctx,
			"UPDATE clients SET data = $1, admin_id = $2, row_version = row_version + 1 WHERE id = $3 AND row_version = $4",
			raw, c.AdminID, id, expected,
		)
		if err != nil {
			return false, fmt.Errorf("client update failed: %w", err)
		}
		return tag.RowsAffected() == 1, nil
	}
	return updateWithRetry(ctx, id, load, save, mutate)
}

func (s *PostgresStore) UpdateRental(ctx context.Context, rentalID string, mutate func(*domain.Client, *domain.Rental) error) (*domain.Client, error) {
	needle, err := json.Marshal([]map[string]string{{"id": rentalID}})
	if err != nil {
		return nil, err
	}
	var clientID string
	err = s.Db.QueryRow(ctx, "SELECT id FROM clients WHERE data->'rentals' @> $1::jsonb LIMIT 1", string(needle)).Scan(&clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRentalNotFound
		}
		return nil, err
	}
	return s.UpdateClient(ctx, clientID, rentalMutation(rentalID, mutate))
}

// DeleteClient removes the client and its documents in one transaction.
func (s *PostgresStore) DeleteClient(ctx context.Context, id string) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, "DELETE FROM clients WHERE id = $1 RETURNING data", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		return err
	}
	var c domain.Client
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("store: decoding client: %w", err)
	}

	_, err = tx.Exec(ctx,
		"DELETE FROM documents WHERE client_id = $1 OR rental_id = ANY($2)",
		id, rentalIDs(&c),
	)
	if err != nil {
		return fmt.Errorf("document cascade failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.Db.Query(ctx, "SELECT data FROM documents ORDER BY uploaded_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.Db.Exec(ctx,
		"INSERT INTO documents (id, rental_id, client_id, data, uploaded_at) VALUES ($1, $2, $3, $4, $5)",
		doc.ID, doc.RentalID, doc.ClientID, raw, doc.UploadedAt.Time,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: document %q", ErrExists, doc.ID)
		}
		return fmt.Errorf("document insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) (*domain.Document, error) {
	var raw []byte
	err := s.Db.QueryRow(ctx, "DELETE FROM documents WHERE id = $1 RETURNING data", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return decodeDocument(raw)
}
