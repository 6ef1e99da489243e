package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/crypto"
)

// ErrCorruptFields marks a record whose extracted_fields decrypted fine
// but is not valid JSON. Distinct from not-found: the record exists, its
// payload is damaged.
var ErrCorruptFields = errors.New("extracted fields are not valid JSON")

// FaxMetadata is the optional, unencrypted transmission metadata attached
// to a document.
type FaxMetadata struct {
	ExternalFaxID string
	FromNumber    string
	ToNumber      string
}

// Document is a persisted record with its sensitive fields decrypted.
// When a field could not be decrypted, the matching *Error string is set
// and the field itself is empty; the rest of the record is still usable.
type Document struct {
	ID            int64
	Filename      string
	OCRText       string
	FieldsJSON    string
	OCRTextError  string
	FieldsError   string
	CreatedAt     time.Time
	ExternalFaxID string
	FaxFromNumber string
	FaxToNumber   string
}

// Fields parses the decrypted extracted_fields JSON. A record whose JSON
// does not parse is corrupt, not absent: callers get ErrCorruptFields.
// An absent payload yields (nil, nil).
func (d *Document) Fields() (map[string]any, error) {
	if d.FieldsError != "" {
		return nil, common.NewAppError(common.KindDecryption, d.FieldsError, nil)
	}
	if d.FieldsJSON == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(d.FieldsJSON), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFields, err)
	}
	return m, nil
}

// DocumentRepository persists processed documents. Sensitive columns are
// encrypted on every write and decrypted on every read; plaintext never
// crosses this boundary in stored form.
type DocumentRepository interface {
	Insert(ctx context.Context, filename, ocrText string, fields map[string]any, meta FaxMetadata) (int64, error)
	GetByID(ctx context.Context, id int64) (*Document, error)
	ListAll(ctx context.Context) ([]*Document, error)
	Search(ctx context.Context, keyword string) ([]*Document, error)
}

type documentRepository struct {
	db     *sqlx.DB
	cipher *crypto.Cipher
	logger *slog.Logger
}

func NewDocumentRepository(db *sqlx.DB, cipher *crypto.Cipher, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, cipher: cipher, logger: logger}
}

type documentRow struct {
	ID              int64          `db:"id"`
	Filename        string         `db:"filename"`
	OCRText         sql.NullString `db:"ocr_text"`
	ExtractedFields sql.NullString `db:"extracted_fields"`
	CreatedAt       time.Time      `db:"created_at"`
	ExternalFaxID   sql.NullString `db:"external_fax_id"`
	FaxFromNumber   sql.NullString `db:"fax_from_number"`
	FaxToNumber     sql.NullString `db:"fax_to_number"`
}

const documentColumns = `id, filename, ocr_text, extracted_fields, created_at, external_fax_id, fax_from_number, fax_to_number`

func (r *documentRepository) Insert(ctx context.Context, filename, ocrText string, fields map[string]any, meta FaxMetadata) (int64, error) {
	var fieldsJSON string
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return 0, common.NewAppError(common.KindStore, "marshal extracted fields", err)
		}
		fieldsJSON = string(b)
	}

	encText, err := r.cipher.Encrypt(ocrText)
	if err != nil {
		return 0, common.NewAppError(common.KindStore, "encrypt ocr text", err)
	}
	encFields, err := r.cipher.Encrypt(fieldsJSON)
	if err != nil {
		return 0, common.NewAppError(common.KindStore, "encrypt extracted fields", err)
	}

	args := []any{
		filename,
		nullable(encText),
		nullable(encFields),
		nullable(meta.ExternalFaxID),
		nullable(meta.FromNumber),
		nullable(meta.ToNumber),
	}

	var id int64
	if r.db.DriverName() == "pgx" {
		q := r.db.Rebind(`INSERT INTO documents (filename, ocr_text, extracted_fields, external_fax_id, fax_from_number, fax_to_number)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
		if err := r.db.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, common.NewAppError(common.KindStore, "insert document", err)
		}
	} else {
		q := `INSERT INTO documents (filename, ocr_text, extracted_fields, external_fax_id, fax_from_number, fax_to_number)
			VALUES (?, ?, ?, ?, ?, ?)`
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, common.NewAppError(common.KindStore, "insert document", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, common.NewAppError(common.KindStore, "read inserted id", err)
		}
	}

	r.logger.Info("store.document.inserted", "id", id, "filename", filename, "fax_id", meta.ExternalFaxID)
	return id, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id int64) (*Document, error) {
	var row documentRow
	q := r.db.Rebind(`SELECT ` + documentColumns + ` FROM documents WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.NewAppError(common.KindStore, "get document", err)
	}
	return r.decryptRow(&row), nil
}

func (r *documentRepository) ListAll(ctx context.Context) ([]*Document, error) {
	var rows []documentRow
	q := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, common.NewAppError(common.KindStore, "list documents", err)
	}
	docs := make([]*Document, len(rows))
	for i := range rows {
		docs[i] = r.decryptRow(&rows[i])
	}
	return docs, nil
}

// Search is a linear, case-insensitive substring scan over the decrypted
// ocr_text and extracted_fields JSON of every record. O(N*L) per query;
// acceptable only at small N, and deliberately not an encrypted-search
// scheme.
func (r *documentRepository) Search(ctx context.Context, keyword string) ([]*Document, error) {
	docs, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(keyword)
	var matches []*Document
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.OCRText), needle) ||
			strings.Contains(strings.ToLower(d.FieldsJSON), needle) {
			matches = append(matches, d)
		}
	}
	r.logger.Info("store.document.search", "results", len(matches))
	return matches, nil
}

// decryptRow decrypts both sensitive fields. A failure on one field is
// recorded on the document and must not hide the rest of the record.
func (r *documentRepository) decryptRow(row *documentRow) *Document {
	doc := &Document{
		ID:            row.ID,
		Filename:      row.Filename,
		CreatedAt:     row.CreatedAt,
		ExternalFaxID: row.ExternalFaxID.String,
		FaxFromNumber: row.FaxFromNumber.String,
		FaxToNumber:   row.FaxToNumber.String,
	}

	if row.OCRText.Valid {
		text, err := r.cipher.Decrypt(row.OCRText.String)
		if err != nil {
			r.logger.Error("store.document.decrypt_failed", "id", row.ID, "field", "ocr_text", "error", err)
			doc.OCRTextError = err.Error()
		} else {
			doc.OCRText = text
		}
	}
	if row.ExtractedFields.Valid {
		fields, err := r.cipher.Decrypt(row.ExtractedFields.String)
		if err != nil {
			r.logger.Error("store.document.decrypt_failed", "id", row.ID, "field", "extracted_fields", "error", err)
			doc.FieldsError = err.Error()
		} else {
			doc.FieldsJSON = fields
		}
	}
	return doc
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
