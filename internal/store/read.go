package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/viewq/internal/analytics"
)

// ReadMutations returns every journaled mutation with its snapshot.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal holds no mutations.
func (s *Store) ReadMutations(ctx context.Context) ([]MutationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.pass_id, m.seq, m.name, m.params, m.snapshot_hash, sn.data
		FROM mutations m
		JOIN snapshots sn ON sn.hash = m.snapshot_hash
		ORDER BY m.seq ASC, m.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	mutations := []MutationRecord{}
	for rows.Next() {
		rec, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return mutations, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMutation(row rowScanner) (MutationRecord, error) {
	var (
		rec        MutationRecord
		paramsJSON string
		snapJSON   string
	)
	if err := row.Scan(&rec.ID, &rec.PassID, &rec.Seq, &rec.Name, &paramsJSON, &rec.SnapshotHash, &snapJSON); err != nil {
		return MutationRecord{}, fmt.Errorf("scan mutation: %w", err)
	}

	var err error
	if rec.Params, err = unmarshalObject(paramsJSON); err != nil {
		return MutationRecord{}, fmt.Errorf("mutation %s: %w", rec.ID, err)
	}
	if rec.Snapshot, err = unmarshalObject(snapJSON); err != nil {
		return MutationRecord{}, fmt.Errorf("mutation %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ReadRemoteQueries returns every journaled forwarded query, ordered by
// seq ASC, pass_id ASC COLLATE BINARY.
func (s *Store) ReadRemoteQueries(ctx context.Context) ([]RemoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pass_id, seq, snapshot_hash, query_hash, query, roots
		FROM remote_queries
		ORDER BY seq ASC, pass_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query remote queries: %w", err)
	}
	defer rows.Close()

	records := []RemoteRecord{}
	for rows.Next() {
		var (
			rec       RemoteRecord
			queryJSON string
			rootsJSON string
		)
		if err := rows.Scan(&rec.PassID, &rec.Seq, &rec.SnapshotHash, &rec.QueryHash, &queryJSON, &rootsJSON); err != nil {
			return nil, fmt.Errorf("scan remote query: %w", err)
		}
		if rec.Query, err = unmarshalQuery(queryJSON); err != nil {
			return nil, fmt.Errorf("remote query %s: %w", rec.PassID, err)
		}
		if rec.Roots, err = unmarshalQuery(rootsJSON); err != nil {
			return nil, fmt.Errorf("remote query %s: %w", rec.PassID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate remote queries: %w", err)
	}
	return records, nil
}

// ReadEvents returns every journaled analytics event in emission order.
func (s *Store) ReadEvents(ctx context.Context) ([]analytics.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []analytics.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest seq recorded by any mutation or forwarded
// query, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM mutations
			UNION ALL
			SELECT seq FROM remote_queries
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
