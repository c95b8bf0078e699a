// Package snapshot keeps a local SQLite copy of every registered raw model
// so composr can start from its last known state when the remote is down.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/composr/db"
	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
)

// Entry is one stored raw model.
type Entry struct {
	Collection string
	ID         string
	Domain     string
	MD5        string
	Raw        manager.Raw
	UpdatedAt  time.Time
}

// Store reads and writes the snapshots table.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// New creates a Store over a migrated database.
func New(conn *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{
		db:     conn,
		logger: logger.OrNop(log).With(logger.FieldComponent, "snapshot"),
		now:    time.Now,
	}
}

const upsertSQL = `INSERT INTO snapshots (collection, id, domain, md5, raw_json, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
    domain = excluded.domain,
    md5 = excluded.md5,
    raw_json = excluded.raw_json,
    updated_at = excluded.updated_at`

// Put upserts item under collection.
func (s *Store) Put(ctx context.Context, collection string, item manager.Item) error {
	data, err := json.Marshal(item.RawModel())
	if err != nil {
		return errors.Wrapf(err, "encode snapshot of %s", item.ID())
	}

	_, err = s.db.ExecContext(ctx, upsertSQL,
		collection,
		item.ID(),
		identifier.ExtractDomain(item.ID()),
		item.MD5(),
		string(data),
		s.now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "put snapshot %s/%s", collection, item.ID())
	}
	return nil
}

// Delete removes (collection, id). Deleting a missing row is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE collection = ? AND id = ?", collection, id); err != nil {
		return errors.Wrapf(err, "delete snapshot %s/%s", collection, id)
	}
	return nil
}

// Get returns the entry for (collection, id).
func (s *Store) Get(ctx context.Context, collection, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT collection, id, domain, md5, raw_json, updated_at FROM snapshots WHERE collection = ? AND id = ?",
		collection, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("snapshot %s/%s", collection, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot %s/%s", collection, id)
	}
	return e, nil
}

// List returns every entry of collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT collection, id, domain, md5, raw_json, updated_at FROM snapshots WHERE collection = ? ORDER BY id",
		collection)
	if err != nil {
		return nil, errors.Wrapf(err, "list snapshots of %s", collection)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "scan snapshot of %s", collection)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate snapshots of %s", collection)
	}
	return out, nil
}

// Raws returns the raw models of collection, ordered by id.
func (s *Store) Raws(ctx context.Context, collection string) ([]manager.Raw, error) {
	entries, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	raws := make([]manager.Raw, len(entries))
	for i, e := range entries {
		raws[i] = e.Raw
	}
	return raws, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e   Entry
		raw string
	)
	if err := row.Scan(&e.Collection, &e.ID, &e.Domain, &e.MD5, &raw, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &e.Raw); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %s", e.ID)
	}
	return &e, nil
}

// Hook returns a PostAdd hook that snapshots every registered item of
// collection. A row whose md5 already matches is left alone. Snapshot
// failures are logged and do not fail registration.
func Hook[T manager.Item](s *Store, collection string) manager.Hook[T] {
	return func(ctx context.Context, domain string, item T) error {
		if e, err := s.Get(ctx, collection, item.ID()); err == nil && e.MD5 == item.MD5() {
			return nil
		}
		if err := s.Put(ctx, collection, item); err != nil {
			s.logFailure("snapshot write failed", collection, domain, item.ID(), err)
		}
		return nil
	}
}

// RemoveHook returns a PostRemove hook that drops the snapshot row of every
// unregistered item of collection, so a later Restore does not bring it
// back.
func RemoveHook(s *Store, collection string) manager.RemoveHook {
	return func(ctx context.Context, domain, id string) error {
		if err := s.Delete(ctx, collection, id); err != nil {
			s.logFailure("snapshot delete failed", collection, domain, id, err)
		}
		return nil
	}
}

func (s *Store) logFailure(msg, collection, domain, id string, err error) {
	fields := []any{
		logger.FieldCollection, collection,
		logger.FieldDomain, domain,
		logger.FieldItemID, id,
		logger.FieldError, err.Error(),
	}
	// expected while the Core shuts down
	if db.IsDatabaseClosed(err) {
		s.logger.Debugw(msg+", database closed", fields...)
		return
	}
	s.logger.Warnw(msg, fields...)
}
