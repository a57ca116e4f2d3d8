package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VerificationStore = (*VerificationStore)(nil)

// VerificationStore implements driven.VerificationStore using PostgreSQL.
// The UNIQUE (access_request_id, platform_id) constraint makes Upsert the
// convergence point for concurrent initiates of the same check.
type VerificationStore struct {
	db *DB
}

// NewVerificationStore creates a new VerificationStore
func NewVerificationStore(db *DB) *VerificationStore {
	return &VerificationStore{db: db}
}

const verificationColumns = `
	id, access_request_id, platform_id, agency_connection_id, client_email,
	required_access_level, status, attempts, last_attempt_at, verified_at,
	verified_permissions, error_message, created_at, updated_at
`

// Upsert inserts a fresh record or, when the (request, platform) pair already
// exists, resets it to pending and bumps attempts. The stored row is returned
// so callers see the surviving ID and attempt count.
func (s *VerificationStore) Upsert(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	query := `
		INSERT INTO verification_records (
			id, access_request_id, platform_id, agency_connection_id, client_email,
			required_access_level, status, attempts, last_attempt_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 1, $7, $8, $9)
		ON CONFLICT (access_request_id, platform_id) DO UPDATE SET
			agency_connection_id = EXCLUDED.agency_connection_id,
			client_email = EXCLUDED.client_email,
			required_access_level = EXCLUDED.required_access_level,
			status = 'pending',
			attempts = verification_records.attempts + 1,
			last_attempt_at = EXCLUDED.last_attempt_at,
			error_message = '',
			updated_at = EXCLUDED.updated_at
		RETURNING ` + verificationColumns

	return s.scan(s.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.AccessRequestID,
		string(rec.Platform),
		rec.AgencyConnectionID,
		rec.ClientEmail,
		rec.RequiredAccessLevel,
		rec.LastAttemptAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	))
}

// Get retrieves a record by ID
func (s *VerificationStore) Get(ctx context.Context, id string) (*domain.VerificationRecord, error) {
	query := `SELECT ` + verificationColumns + ` FROM verification_records WHERE id = $1`
	return s.scan(s.db.QueryRowContext(ctx, query, id))
}

// GetByRequestPlatform retrieves the record for one (request, platform) pair
func (s *VerificationStore) GetByRequestPlatform(ctx context.Context, accessRequestID string, platform domain.PlatformID) (*domain.VerificationRecord, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verification_records
		WHERE access_request_id = $1 AND platform_id = $2
	`
	return s.scan(s.db.QueryRowContext(ctx, query, accessRequestID, string(platform)))
}

// ListByRequest retrieves every record under an access request
func (s *VerificationStore) ListByRequest(ctx context.Context, accessRequestID string) ([]*domain.VerificationRecord, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verification_records
		WHERE access_request_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, accessRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.VerificationRecord
	for rows.Next() {
		rec, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Update overwrites a record's mutable verification state
func (s *VerificationStore) Update(ctx context.Context, rec *domain.VerificationRecord) error {
	permissions, err := marshalPermissions(rec.VerifiedPermissions)
	if err != nil {
		return err
	}

	query := `
		UPDATE verification_records SET
			status = $2,
			attempts = $3,
			last_attempt_at = $4,
			verified_at = $5,
			verified_permissions = $6,
			error_message = $7,
			updated_at = $8
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Status),
		rec.Attempts,
		rec.LastAttemptAt,
		NullTime(rec.VerifiedAt),
		permissions,
		rec.ErrorMessage,
		rec.UpdatedAt,
	)
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

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func (s *VerificationStore) scan(row *sql.Row) (*domain.VerificationRecord, error) {
	rec, err := s.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (s *VerificationStore) scanRow(sc scanner) (*domain.VerificationRecord, error) {
	var rec domain.VerificationRecord
	var verifiedAt sql.NullTime
	var permissions []byte

	err := sc.Scan(
		&rec.ID,
		&rec.AccessRequestID,
		&rec.Platform,
		&rec.AgencyConnectionID,
		&rec.ClientEmail,
		&rec.RequiredAccessLevel,
		&rec.Status,
		&rec.Attempts,
		&rec.LastAttemptAt,
		&verifiedAt,
		&permissions,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.VerifiedAt = TimePtr(verifiedAt)
	if len(permissions) > 0 {
		rec.VerifiedPermissions = &domain.AccessGrant{}
		if err := json.Unmarshal(permissions, rec.VerifiedPermissions); err != nil {
			return nil, fmt.Errorf("unmarshal verified permissions: %w", err)
		}
	}
	return &rec, nil
}

func marshalPermissions(grant *domain.AccessGrant) ([]byte, error) {
	if grant == nil {
		return nil, nil
	}
	data, err := json.Marshal(grant)
	if err != nil {
		return nil, fmt.Errorf("marshal verified permissions: %w", err)
	}
	return data, nil
}
