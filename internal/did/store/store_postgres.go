package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"didledger/internal/did/models"
	"didledger/internal/platform/postgres"
	id "didledger/pkg/domain"
	"didledger/pkg/platform/sentinel"
)

const documentColumns = `did, controller, public_key, key_type, is_active, created_at, updated_at`

// PostgresStore persists documents in the did_documents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO did_documents (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.DID.String(), doc.Controller.String(), doc.PublicKey, doc.KeyType,
		doc.IsActive, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create did document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByDID(ctx context.Context, did id.DID) (*models.Document, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM did_documents WHERE did = $1`, did.String())
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find did document: %w", err)
	}
	return doc, nil
}

// Execute locks the row with FOR UPDATE, validates, mutates and writes back.
// It must run inside a ledger transaction for the lock to span the update.
func (s *PostgresStore) Execute(ctx context.Context, did id.DID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	conn := postgres.Conn(ctx, s.db)
	row := conn.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM did_documents WHERE did = $1 FOR UPDATE`, did.String())
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock did document: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)
	_, err = conn.ExecContext(ctx,
		`UPDATE did_documents SET public_key = $2, key_type = $3, is_active = $4, updated_at = $5 WHERE did = $1`,
		doc.DID.String(), doc.PublicKey, doc.KeyType, doc.IsActive, doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update did document: %w", err)
	}
	return doc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc             models.Document
		did, controller string
	)
	if err := row.Scan(&did, &controller, &doc.PublicKey, &doc.KeyType, &doc.IsActive, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.DID = id.DID(did)
	doc.Controller = id.Identity(controller)
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}
