package store

import (
	"context"
	"fmt"

	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/ir"
	"github.com/roach88/viewq/internal/query"
)

// MutationRecord is one applied mutation and the snapshot it produced.
type MutationRecord struct {
	ID           string // ir.MutationID(name, params, seq)
	PassID       string
	Seq          int64
	Name         string
	Params       ir.Object
	SnapshotHash string
	Snapshot     ir.Object
}

// RemoteRecord is one non-empty query forwarded by a remote pass.
type RemoteRecord struct {
	PassID       string
	Seq          int64
	SnapshotHash string // snapshot the pass resolved against
	QueryHash    string // computed on write when empty
	Query        query.Query
	Roots        query.Query
}

// WriteMutation inserts a mutation and its snapshot in one transaction.
// The snapshot row is content-addressed and shared between mutations that
// leave identical stores. Duplicate mutation ids are silently ignored.
func (s *Store) WriteMutation(ctx context.Context, rec MutationRecord) error {
	paramsJSON, err := marshalObject(rec.Params)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}
	snapJSON, err := marshalObject(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}
	hash := rec.SnapshotHash
	if hash == "" {
		if hash, err = ir.SnapshotHash(rec.Snapshot); err != nil {
			return fmt.Errorf("write mutation: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write mutation: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (hash, data)
		VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, snapJSON); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mutations
		(id, pass_id, seq, name, params, snapshot_hash, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.PassID,
		rec.Seq,
		rec.Name,
		paramsJSON,
		hash,
		ir.EngineVersion,
		ir.SchemaVersion,
	); err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write mutation: commit: %w", err)
	}
	return nil
}

// WriteRemote inserts a forwarded query. Duplicate pass ids are silently
// ignored.
func (s *Store) WriteRemote(ctx context.Context, rec RemoteRecord) error {
	queryJSON, err := marshalQuery(rec.Query)
	if err != nil {
		return fmt.Errorf("write remote query: %w", err)
	}
	rootsJSON, err := marshalQuery(rec.Roots)
	if err != nil {
		return fmt.Errorf("write remote query: %w", err)
	}
	queryHash := rec.QueryHash
	if queryHash == "" {
		if queryHash, err = ir.QueryHash(rec.Query.ToAny()); err != nil {
			return fmt.Errorf("write remote query: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO remote_queries
		(pass_id, seq, snapshot_hash, query_hash, query, roots)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pass_id) DO NOTHING
	`,
		rec.PassID,
		rec.Seq,
		rec.SnapshotHash,
		queryHash,
		queryJSON,
		rootsJSON,
	)
	if err != nil {
		return fmt.Errorf("write remote query: %w", err)
	}
	return nil
}

// Track appends an analytics event, making the journal an analytics.Sink.
func (s *Store) Track(ctx context.Context, e analytics.Event) error {
	payload, err := marshalEvent(e)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_type, navigation_point, payload)
		VALUES (?, ?, ?)
	`, e.EventType, e.NavigationPoint, payload)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
