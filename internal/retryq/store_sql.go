package retryq

import (
	"database/sql"
	"encoding/json"
)

// SQLStore persists the pending request list in the pending_requests table.
// Save replaces the whole snapshot so the on-disk order always mirrors the
// in-memory enqueue order.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Load() ([]PendingRequest, error) {
	rows, err := s.db.Query(`SELECT id,method,target,headers_json,body,enqueued_at,retry_count,max_retries
		FROM pending_requests ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PendingRequest
	for rows.Next() {
		var req PendingRequest
		var hjson string
		var body []byte
		if err := rows.Scan(&req.ID, &req.Method, &req.Target, &hjson, &body, &req.EnqueuedAt, &req.RetryCount, &req.MaxRetries); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hjson), &req.Headers); err != nil {
			req.Headers = nil
		}
		req.Body = body
		items = append(items, req)
	}
	return items, rows.Err()
}

func (s *SQLStore) Save(items []PendingRequest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM pending_requests`); err != nil {
		return err
	}
	for i, req := range items {
		hj, err := json.Marshal(req.Headers)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO pending_requests (id,method,target,headers_json,body,enqueued_at,retry_count,max_retries,seq)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			req.ID, req.Method, req.Target, string(hj), req.Body, req.EnqueuedAt, req.RetryCount, req.MaxRetries, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}
