package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccessRequestStore = (*AccessRequestStore)(nil)

// AccessRequestStore implements driven.AccessRequestStore using PostgreSQL
type AccessRequestStore struct {
	db *DB
}

// NewAccessRequestStore creates a new AccessRequestStore
func NewAccessRequestStore(db *DB) *AccessRequestStore {
	return &AccessRequestStore{db: db}
}

// Save creates a new access request
func (s *AccessRequestStore) Save(ctx context.Context, req *domain.AccessRequest) error {
	query := `
		INSERT INTO access_requests (id, agency_id, client_email, token, platforms, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		req.ID,
		req.AgencyID,
		req.ClientEmail,
		req.Token,
		pq.Array(platformStrings(req.Platforms)),
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves an access request by ID
func (s *AccessRequestStore) Get(ctx context.Context, id string) (*domain.AccessRequest, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

// GetByToken retrieves an access request by its client-facing token
func (s *AccessRequestStore) GetByToken(ctx context.Context, token string) (*domain.AccessRequest, error) {
	return s.get(ctx, `WHERE token = $1`, token)
}

func (s *AccessRequestStore) get(ctx context.Context, where string, arg any) (*domain.AccessRequest, error) {
	query := `
		SELECT id, agency_id, client_email, token, platforms, status, created_at, updated_at
		FROM access_requests
	` + where

	var req domain.AccessRequest
	var platforms pq.StringArray

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&req.ID,
		&req.AgencyID,
		&req.ClientEmail,
		&req.Token,
		&platforms,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	req.Platforms = platformIDs(platforms)
	return &req, nil
}

// UpdateStatus overwrites the derived request status
func (s *AccessRequestStore) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	query := `UPDATE access_requests SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(status), time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func platformStrings(platforms []domain.PlatformID) []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}

func platformIDs(values []string) []domain.PlatformID {
	out := make([]domain.PlatformID, len(values))
	for i, v := range values {
		out[i] = domain.PlatformID(v)
	}
	return out
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
