package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/crypto"
)

// base64 of a fixed 32-byte key, stable across test runs.
const testAESKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := common.DatabaseConfig{
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		DialTimeout:  3 * time.Second,
	}
	db, err := Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	c, err := crypto.NewCipher(testAESKey, testLogger())
	require.NoError(t, err)
	return c
}

func TestDocumentInsertAndGet(t *testing.T) {
	db := openTestDB(t)
	cipher := testCipher(t)
	repo := NewDocumentRepository(db, cipher, testLogger())
	ctx := context.Background()

	fields := map[string]any{
		"form_type":         "Provider Fax Form",
		"patient_member_id": "M12345",
	}
	meta := FaxMetadata{ExternalFaxID: "fax-001", FromNumber: "+15550001111", ToNumber: "+15550002222"}

	id, err := repo.Insert(ctx, "provider_form.pdf", "Patient: Jane Doe\nMember ID: M12345", fields, meta)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	doc, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "provider_form.pdf", doc.Filename)
	assert.Equal(t, "Patient: Jane Doe\nMember ID: M12345", doc.OCRText)
	assert.Equal(t, "fax-001", doc.ExternalFaxID)
	assert.Equal(t, "+15550001111", doc.FaxFromNumber)
	assert.Empty(t, doc.OCRTextError)
	assert.Empty(t, doc.FieldsError)

	got, err := doc.Fields()
	require.NoError(t, err)
	assert.Equal(t, "Provider Fax Form", got["form_type"])
	assert.Equal(t, "M12345", got["patient_member_id"])
}

func TestDocumentStoredValuesAreEncrypted(t *testing.T) {
	db := openTestDB(t)
	cipher := testCipher(t)
	repo := NewDocumentRepository(db, cipher, testLogger())
	ctx := context.Background()

	id, err := repo.Insert(ctx, "f.pdf", "secret text", map[string]any{"k": "secret value"}, FaxMetadata{})
	require.NoError(t, err)

	var raw struct {
		OCRText string `db:"ocr_text"`
		Fields  string `db:"extracted_fields"`
	}
	err = db.Get(&raw, `SELECT ocr_text, extracted_fields FROM documents WHERE id = ?`, id)
	require.NoError(t, err)
	assert.NotContains(t, raw.OCRText, "secret text")
	assert.NotContains(t, raw.Fields, "secret value")
}

func TestDocumentGetByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewDocumentRepository(db, testCipher(t), testLogger())

	_, err := repo.GetByID(context.Background(), 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewDocumentRepository(db, testCipher(t), testLogger())
	ctx := context.Background()

	first, err := repo.Insert(ctx, "a.pdf", "a", nil, FaxMetadata{})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, "b.pdf", "b", nil, FaxMetadata{})
	require.NoError(t, err)

	docs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second, docs[0].ID)
	assert.Equal(t, first, docs[1].ID)
}

func TestDocumentSearchCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	repo := NewDocumentRepository(db, testCipher(t), testLogger())
	ctx := context.Background()

	_, err := repo.Insert(ctx, "otc.pdf", "Requested item: LISINOPRIL 10MG tablets", nil, FaxMetadata{})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "other.pdf", "nothing relevant here", map[string]any{"drug": "Metformin"}, FaxMetadata{})
	require.NoError(t, err)

	matches, err := repo.Search(ctx, "lisinopril")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "otc.pdf", matches[0].Filename)

	// keyword inside the extracted-fields JSON counts as a hit too
	matches, err = repo.Search(ctx, "metformin")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "other.pdf", matches[0].Filename)

	matches, err = repo.Search(ctx, "amoxicillin")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDocumentDecryptFailureIsIsolated(t *testing.T) {
	db := openTestDB(t)
	repo := NewDocumentRepository(db, testCipher(t), testLogger())
	ctx := context.Background()

	id, err := repo.Insert(ctx, "damaged.pdf", "readable text", map[string]any{"k": "v"}, FaxMetadata{})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE documents SET extracted_fields = ? WHERE id = ?`, "!!not-a-token!!", id)
	require.NoError(t, err)

	doc, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "readable text", doc.OCRText, "undamaged field must survive")
	assert.Empty(t, doc.OCRTextError)
	assert.NotEmpty(t, doc.FieldsError)

	_, err = doc.Fields()
	require.Error(t, err)
	assert.Equal(t, common.KindDecryption, common.KindOf(err))

	// a damaged record must not break listing either
	docs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDocumentFieldsCorruptJSON(t *testing.T) {
	db := openTestDB(t)
	cipher := testCipher(t)
	repo := NewDocumentRepository(db, cipher, testLogger())
	ctx := context.Background()

	id, err := repo.Insert(ctx, "f.pdf", "text", map[string]any{"k": "v"}, FaxMetadata{})
	require.NoError(t, err)

	// decrypts fine, parses as garbage
	token, err := cipher.Encrypt("{this is not json")
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE documents SET extracted_fields = ? WHERE id = ?`, token, id)
	require.NoError(t, err)

	doc, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, doc.FieldsError)

	_, err = doc.Fields()
	assert.ErrorIs(t, err, ErrCorruptFields)
}

func TestDocumentFieldsAbsent(t *testing.T) {
	db := openTestDB(t)
	repo := NewDocumentRepository(db, testCipher(t), testLogger())
	ctx := context.Background()

	id, err := repo.Insert(ctx, "f.pdf", "text only", nil, FaxMetadata{})
	require.NoError(t, err)

	doc, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	fields, err := doc.Fields()
	require.NoError(t, err)
	assert.Nil(t, fields)
}
