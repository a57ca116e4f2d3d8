package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore implements driven.ConnectionStore using PostgreSQL.
// Credential material never lands here; rows carry only the vault secret name.
type ConnectionStore struct {
	db *DB
}

// NewConnectionStore creates a new ConnectionStore
func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

const agencyConnectionColumns = `
	id, agency_id, platform_id, platform_group, mode, secret_ref, status,
	connected_by_email, token_type, scopes, expires_at, metadata, created_at, updated_at
`

// SaveAgencyConnection creates an agency connection row
func (s *ConnectionStore) SaveAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error {
	metadata, err := marshalMetadata(conn.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agency_connections (` + agencyConnectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = s.db.ExecContext(ctx, query,
		conn.ID,
		conn.AgencyID,
		string(conn.Platform),
		string(conn.Group),
		string(conn.Mode),
		conn.SecretRef,
		string(conn.Status),
		conn.ConnectedByEmail,
		conn.TokenType,
		pq.Array(conn.Scopes),
		NullTime(conn.ExpiresAt),
		metadata,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// GetAgencyConnection retrieves an agency connection by ID
func (s *ConnectionStore) GetAgencyConnection(ctx context.Context, id string) (*domain.AgencyConnection, error) {
	query := `SELECT ` + agencyConnectionColumns + ` FROM agency_connections WHERE id = $1`
	return s.scanAgencyConnection(s.db.QueryRowContext(ctx, query, id))
}

// GetActiveAgencyConnection finds the agency's active OAuth connection for a
// platform group. Newest wins when historical rows exist for the same group.
func (s *ConnectionStore) GetActiveAgencyConnection(ctx context.Context, agencyID string, group domain.PlatformGroup) (*domain.AgencyConnection, error) {
	query := `
		SELECT ` + agencyConnectionColumns + `
		FROM agency_connections
		WHERE agency_id = $1 AND platform_group = $2 AND status = 'active' AND mode = 'oauth'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanAgencyConnection(s.db.QueryRowContext(ctx, query, agencyID, string(group)))
}

// UpdateAgencyConnection overwrites a connection row
func (s *ConnectionStore) UpdateAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error {
	metadata, err := marshalMetadata(conn.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE agency_connections SET
			platform_id = $2,
			platform_group = $3,
			mode = $4,
			secret_ref = $5,
			status = $6,
			connected_by_email = $7,
			token_type = $8,
			scopes = $9,
			expires_at = $10,
			metadata = $11,
			updated_at = $12
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		conn.ID,
		string(conn.Platform),
		string(conn.Group),
		string(conn.Mode),
		conn.SecretRef,
		string(conn.Status),
		conn.ConnectedByEmail,
		conn.TokenType,
		pq.Array(conn.Scopes),
		NullTime(conn.ExpiresAt),
		metadata,
		conn.UpdatedAt,
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

func (s *ConnectionStore) scanAgencyConnection(row *sql.Row) (*domain.AgencyConnection, error) {
	var conn domain.AgencyConnection
	var scopes pq.StringArray
	var expiresAt sql.NullTime
	var metadata []byte

	err := row.Scan(
		&conn.ID,
		&conn.AgencyID,
		&conn.Platform,
		&conn.Group,
		&conn.Mode,
		&conn.SecretRef,
		&conn.Status,
		&conn.ConnectedByEmail,
		&conn.TokenType,
		&scopes,
		&expiresAt,
		&metadata,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	conn.Scopes = scopes
	conn.ExpiresAt = TimePtr(expiresAt)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &conn.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal connection metadata: %w", err)
		}
	}
	return &conn, nil
}

// SaveClientAuthorization creates a client authorization row
func (s *ConnectionStore) SaveClientAuthorization(ctx context.Context, auth *domain.ClientAuthorization) error {
	metadata, err := marshalMetadata(auth.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO client_authorizations (id, access_request_id, client_email, platform_id, mode, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		auth.ID,
		auth.AccessRequestID,
		auth.ClientEmail,
		string(auth.Platform),
		string(auth.Mode),
		string(auth.Status),
		metadata,
		auth.CreatedAt,
		auth.UpdatedAt,
	)
	return err
}

// ListClientAuthorizations lists the client grants under an access request
func (s *ConnectionStore) ListClientAuthorizations(ctx context.Context, accessRequestID string) ([]*domain.ClientAuthorization, error) {
	query := `
		SELECT id, access_request_id, client_email, platform_id, mode, status, metadata, created_at, updated_at
		FROM client_authorizations
		WHERE access_request_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, accessRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auths []*domain.ClientAuthorization
	for rows.Next() {
		var auth domain.ClientAuthorization
		var metadata []byte

		err := rows.Scan(
			&auth.ID,
			&auth.AccessRequestID,
			&auth.ClientEmail,
			&auth.Platform,
			&auth.Mode,
			&auth.Status,
			&metadata,
			&auth.CreatedAt,
			&auth.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &auth.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal authorization metadata: %w", err)
			}
		}
		auths = append(auths, &auth)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return auths, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}
