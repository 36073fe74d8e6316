package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"didledger/internal/credential/models"
	"didledger/internal/platform/postgres"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/sentinel"
)

const recordColumns = `credential_id, status, issuer, issued_at, updated_at`

// PostgresStore persists records in the credential_statuses table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *models.Record) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO credential_statuses (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		record.CredentialID.String(), record.Status.String(), record.Issuer.String(),
		record.IssuedAt, record.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create credential status: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Record, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM credential_statuses WHERE credential_id = $1`, credentialID.String())
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential status: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, ids []id.CredentialID) (map[id.CredentialID]models.Record, error) {
	out := make(map[id.CredentialID]models.Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, credentialID := range ids {
		keys[i] = credentialID.String()
	}
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+recordColumns+` FROM credential_statuses WHERE credential_id = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find credential statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential status: %w", err)
		}
		out[record.CredentialID] = *record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find credential statuses: %w", err)
	}
	return out, nil
}

// Execute locks the row with FOR UPDATE, validates, mutates and writes back.
func (s *PostgresStore) Execute(ctx context.Context, credentialID id.CredentialID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	conn := postgres.Conn(ctx, s.db)
	row := conn.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM credential_statuses WHERE credential_id = $1 FOR UPDATE`, credentialID.String())
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock credential status: %w", err)
	}
	if err := validate(record); err != nil {
		return nil, err
	}
	mutate(record)
	_, err = conn.ExecContext(ctx,
		`UPDATE credential_statuses SET status = $2, updated_at = $3 WHERE credential_id = $1`,
		record.CredentialID.String(), record.Status.String(), record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update credential status: %w", err)
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		record                       models.Record
		credentialID, status, issuer string
	)
	if err := row.Scan(&credentialID, &status, &issuer, &record.IssuedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	record.CredentialID = id.CredentialID(credentialID)
	record.Status = models.Status(status)
	record.Issuer = id.Identity(issuer)
	record.IssuedAt = record.IssuedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}
