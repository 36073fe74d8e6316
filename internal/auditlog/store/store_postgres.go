package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"didledger/internal/auditlog/models"
	"didledger/internal/platform/postgres"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/sentinel"
)

const entryColumns = `sequence, event_type, subject_id, actor, source, occurred_at, prev_hash, hash`

// PostgresStore persists audit entries in the audit_entries table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry models.Entry) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO audit_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		int64(entry.Sequence), string(entry.EventType), entry.SubjectID, string(entry.Actor),
		string(entry.Source), entry.Timestamp, entry.PrevHash, entry.Hash,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sequence uint64) (models.Entry, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE sequence = $1`, int64(sequence))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, sentinel.ErrNotFound
		}
		return models.Entry{}, fmt.Errorf("get audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return uint64(count), nil
}

func (s *PostgresStore) Last(ctx context.Context) (models.Entry, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries ORDER BY sequence DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, sentinel.ErrNotFound
		}
		return models.Entry{}, fmt.Errorf("get last audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) List(ctx context.Context, from uint64, limit int) ([]models.Entry, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE sequence >= $1 ORDER BY sequence LIMIT $2`,
		int64(from), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.Entry, error) {
	var (
		sequence         int64
		eventType        string
		subject          string
		actor, source    string
		occurredAt       time.Time
		prevHash, digest string
	)
	if err := row.Scan(&sequence, &eventType, &subject, &actor, &source, &occurredAt, &prevHash, &digest); err != nil {
		return models.Entry{}, err
	}
	return models.Entry{
		Sequence:  uint64(sequence),
		EventType: models.EventType(eventType),
		SubjectID: subject,
		Actor:     id.Identity(actor),
		Source:    id.Identity(source),
		Timestamp: occurredAt.UTC(),
		PrevHash:  prevHash,
		Hash:      digest,
	}, nil
}
