package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/viewq/internal/ir"
)

// ReplayState is what a resumed session needs from the journal.
type ReplayState struct {
	Snapshot     ir.Object // store left by the last mutation
	SnapshotHash string
	LastMutation string // name of the last mutation
	LastSeq      int64  // resume the logical clock after this
	Mutations    int
}

// LatestSnapshot returns the state left by the highest-seq mutation.
// The boolean is false for a journal with no mutations.
func (s *Store) LatestSnapshot(ctx context.Context) (ReplayState, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.pass_id, m.seq, m.name, m.params, m.snapshot_hash, sn.data
		FROM mutations m
		JOIN snapshots sn ON sn.hash = m.snapshot_hash
		ORDER BY m.seq DESC, m.id COLLATE BINARY DESC
		LIMIT 1
	`)
	rec, err := scanMutation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ReplayState{}, false, nil
	}
	if err != nil {
		return ReplayState{}, false, fmt.Errorf("latest snapshot: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&count); err != nil {
		return ReplayState{}, false, fmt.Errorf("count mutations: %w", err)
	}
	lastSeq, err := s.LastSeq(ctx)
	if err != nil {
		return ReplayState{}, false, err
	}

	return ReplayState{
		Snapshot:     rec.Snapshot,
		SnapshotHash: rec.SnapshotHash,
		LastMutation: rec.Name,
		LastSeq:      lastSeq,
		Mutations:    count,
	}, true, nil
}

// VerifySnapshots recomputes the hash of every stored snapshot and returns
// the hashes whose content no longer matches.
func (s *Store) VerifySnapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, data FROM snapshots ORDER BY hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	mismatched := []string{}
	for rows.Next() {
		var hash, data string
		if err := rows.Scan(&hash, &data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		obj, err := unmarshalObject(data)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", hash, err)
		}
		got, err := ir.SnapshotHash(obj)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", hash, err)
		}
		if got != hash {
			mismatched = append(mismatched, hash)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return mismatched, nil
}
