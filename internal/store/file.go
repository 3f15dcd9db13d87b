package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

// Collections of the JSON document this service does not own. They are
// written back untouched.
var passthroughCollections = []string{"payments", "deposits", "users", "admins"}

// FileStore keeps the whole database as one JSON document. Reads are served
// from memory; every mutation rewrites the file atomically while holding the
// single writer lock.
type FileStore struct {
	path string

	mu        sync.RWMutex
	clients   []domain.Client
	documents []domain.Document
	rest      map[string]json.RawMessage
}

// OpenFileStore loads path. A missing file is an empty database; a file that
// exists but cannot be read or parsed is an error.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, rest: map[string]json.RawMessage{}}
	for _, name := range passthroughCollections {
		s.rest[name] = json.RawMessage("[]")
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	if err := s.decode(raw); err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) decode(raw []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}
	if v, ok := top["clients"]; ok {
		if err := json.Unmarshal(v, &s.clients); err != nil {
			return fmt.Errorf("decoding clients: %w", err)
		}
		delete(top, "clients")
	}
	if v, ok := top["documents"]; ok {
		if err := json.Unmarshal(v, &s.documents); err != nil {
			return fmt.Errorf("decoding documents: %w", err)
		}
		delete(top, "documents")
	}
	for k, v := range top {
		s.rest[k] = v
	}

	for i := range s.clients {
		if err := s.clients[i].Validate(); err != nil {
			return fmt.Errorf("client %q: %w", s.clients[i].ID, err)
		}
	}
	for i := range s.documents {
		if err := s.documents[i].Validate(); err != nil {
			return fmt.Errorf("document %q: %w", s.documents[i].ID, err)
		}
	}
	return nil
}

// persist must be called with mu held for writing.
func (s *FileStore) persist(clients []domain.Client, documents []domain.Document) error {
	top := make(map[string]any, len(s.rest)+2)
	for k, v := range s.rest {
		top[k] = v
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	if documents == nil {
		documents = []domain.Document{}
	}
	top["clients"] = clients
	top["documents"] = documents

	raw, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store: writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replacing %s: %w", s.path, err)
	}

	s.clients = clients
	s.documents = documents
	return nil
}

func (s *FileStore) indexOf(id string) int {
	return slices.IndexFunc(s.clients, func(c domain.Client) bool { return c.ID == id })
}

func (s *FileStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Client, len(s.clients))
	for i, c := range s.clients {
		out[i] = c.Clone()
	}
	return out, nil
}

func (s *FileStore) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrClientNotFound
	}
	c := s.clients[i].Clone()
	return &c, nil
}

func (s *FileStore) CreateClient(ctx context.Context, c *domain.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(c.ID) >= 0 {
		return fmt.Errorf("%w: client %q", ErrExists, c.ID)
	}
	if err := s.checkRentals(c, -1); err != nil {
		return err
	}
	clients := append(slices.Clone(s.clients), c.Clone())
	return s.persist(clients, s.documents)
}

func (s *FileStore) UpdateClient(ctx context.Context, id string, mutate func(*domain.Client) error) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrClientNotFound
	}
	return s.update(i, mutate)
}

func (s *FileStore) UpdateRental(ctx context.Context, rentalID string, mutate func(*domain.Client, *domain.Rental) error) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.clients, func(c domain.Client) bool { return c.FindRental(rentalID) != nil })
	if i < 0 {
		return nil, domain.ErrRentalNotFound
	}
	return s.update(i, rentalMutation(rentalID, mutate))
}

// update must be called with mu held for writing.
func (s *FileStore) update(i int, mutate func(*domain.Client) error) (*domain.Client, error) {
	next := s.clients[i].Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkRentals(&next, i); err != nil {
		return nil, err
	}
	clients := slices.Clone(s.clients)
	clients[i] = next
	if err := s.persist(clients, s.documents); err != nil {
		return nil, err
	}
	out := next.Clone()
	return &out, nil
}

// checkRentals rejects rental ids of c already owned by a client other than
// the one at index self. Must be called with mu held.
func (s *FileStore) checkRentals(c *domain.Client, self int) error {
	if err := repeatedRentalID(c); err != nil {
		return err
	}
	for i := range s.clients {
		if i == self {
			continue
		}
		for _, r := range c.Rentals {
			if s.clients[i].FindRental(r.ID) != nil {
				return rentalTaken(r.ID)
			}
		}
	}
	return nil
}

func (s *FileStore) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrClientNotFound
	}
	rentals := rentalIDs(&s.clients[i])
	documents := slices.DeleteFunc(slices.Clone(s.documents), func(d domain.Document) bool {
		return d.ClientID == id || (d.RentalID != "" && slices.Contains(rentals, d.RentalID))
	})
	clients := slices.Delete(slices.Clone(s.clients), i, i+1)
	return s.persist(clients, documents)
}

func (s *FileStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.documents), nil
}

func (s *FileStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.documents, func(d domain.Document) bool { return d.ID == doc.ID }) {
		return fmt.Errorf("%w: document %q", ErrExists, doc.ID)
	}
	return s.persist(s.clients, append(slices.Clone(s.documents), *doc))
}

func (s *FileStore) DeleteDocument(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.documents, func(d domain.Document) bool { return d.ID == id })
	if i < 0 {
		return nil, domain.ErrDocumentNotFound
	}
	doc := s.documents[i]
	if err := s.persist(s.clients, slices.Delete(slices.Clone(s.documents), i, i+1)); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *FileStore) Close() error { return nil }
