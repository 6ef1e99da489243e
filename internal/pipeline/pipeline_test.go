package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/crypto"
	"github.com/shora051/Digital-Faxing-Simulation/internal/extract"
	"github.com/shora051/Digital-Faxing-Simulation/internal/llm"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

const testAESKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor replays a canned result per options shape.
type fakeExtractor struct {
	direct extract.Result
	text   extract.Result
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, opts extract.Options) (extract.Result, error) {
	if f.err != nil {
		return extract.Result{Status: extract.StatusError}, f.err
	}
	if opts.DocumentDirect {
		return f.direct, nil
	}
	return f.text, nil
}

// fakeFields returns canned fields or an error, recording the request.
type fakeFields struct {
	fields map[string]any
	raw    []byte
	err    error
	last   llm.ExtractRequest
}

func (f *fakeFields) ExtractFields(_ context.Context, req llm.ExtractRequest) (map[string]any, []byte, error) {
	f.last = req
	if f.err != nil {
		return nil, f.raw, f.err
	}
	return f.fields, f.raw, nil
}

func testRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	cfg := common.DatabaseConfig{
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		DialTimeout:  3 * time.Second,
	}
	db, err := repository.Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cipher, err := crypto.NewCipher(testAESKey, testLogger())
	require.NoError(t, err)
	return repository.NewDocumentRepository(db, cipher, testLogger())
}

func writeTempDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fax.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))
	return path
}

func TestProcessProviderFormEndToEnd(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{
		text: extract.Result{
			Text:   "ACME Health\nProvider Fax Form\nMember ID: M12345\nRx: Lisinopril 10mg",
			Status: extract.StatusSuccess,
		},
	}
	fields := &fakeFields{fields: map[string]any{
		"form_type":         "Provider Fax Form",
		"patient_member_id": "M12345",
		"prescription_info": []any{"Drug Name and Strength: Lisinopril 10mg, Directions: Take once daily, Quantity: 30, Number of Refills: 2"},
	}}
	p := New(Options{}, extractor, fields, docs, testLogger())

	res := p.Process(context.Background(), writeTempDoc(t), "provider.pdf", classify.TemplateDefault, repository.FaxMetadata{ExternalFaxID: "fx-1"})
	require.Equal(t, StageDone, res.Status)
	require.Greater(t, res.ID, int64(0))
	assert.Equal(t, string(classify.TemplateProviderFax), res.Template)

	// template was inferred from the content and reached the extractor
	assert.Equal(t, classify.TemplateProviderFax, fields.last.Template)

	doc, err := docs.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	got, err := doc.Fields()
	require.NoError(t, err)
	assert.Equal(t, "Provider Fax Form", got["form_type"])
	assert.Equal(t, "M12345", got["patient_member_id"])
	assert.Contains(t, doc.OCRText, "Lisinopril")

	// and the stored record is searchable
	matches, err := docs.Search(context.Background(), "lisinopril")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, res.ID, matches[0].ID)
}

func TestProcessDocumentDirectStoresSentinel(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{
		direct: extract.Result{Bytes: []byte("%PDF-1.4 body"), IsBinary: true, Status: extract.StatusSuccess},
		text:   extract.Result{Text: "Over-the-Counter Product Order", Status: extract.StatusSuccess},
	}
	fields := &fakeFields{fields: map[string]any{"form_type": "OTC Fax Form"}}
	p := New(Options{DocumentDirect: true}, extractor, fields, docs, testLogger())

	res := p.Process(context.Background(), writeTempDoc(t), "otc.pdf", classify.TemplateDefault, repository.FaxMetadata{})
	require.Equal(t, StageDone, res.Status)

	// quick OCR hint classified the binary document
	assert.Equal(t, classify.TemplateOTCFax, fields.last.Template)
	assert.Equal(t, []byte("%PDF-1.4 body"), fields.last.Document)
	assert.Empty(t, fields.last.Text)

	doc, err := docs.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, SentinelVisionProcessed, doc.OCRText)
}

func TestProcessExtractionFailureAborts(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{err: common.NewAppError(common.KindFileRead, "read fax.pdf", fmt.Errorf("no such file"))}
	fields := &fakeFields{fields: map[string]any{"form_type": "X"}}
	p := New(Options{}, extractor, fields, docs, testLogger())

	res := p.Process(context.Background(), "missing.pdf", "missing.pdf", classify.TemplateDefault, repository.FaxMetadata{})
	assert.Equal(t, StageError, res.Status)
	assert.Equal(t, StageExtractingContent, res.Stage)
	assert.NotEmpty(t, res.Message)

	// nothing was persisted
	all, err := docs.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProcessFieldFailureAborts(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{text: extract.Result{Text: "some text", Status: extract.StatusSuccess}}
	fields := &fakeFields{
		err: common.NewAppError(common.KindInvalidResponse, "response is not a JSON object", nil),
		raw: []byte("not json"),
	}
	p := New(Options{}, extractor, fields, docs, testLogger())

	res := p.Process(context.Background(), writeTempDoc(t), "f.pdf", classify.TemplateDefault, repository.FaxMetadata{})
	assert.Equal(t, StageError, res.Status)
	assert.Equal(t, StageExtractingFields, res.Stage)

	all, err := docs.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

// failingInsertRepo delegates reads to a real store but refuses writes.
type failingInsertRepo struct {
	repository.DocumentRepository
}

func (failingInsertRepo) Insert(context.Context, string, string, map[string]any, repository.FaxMetadata) (int64, error) {
	return 0, common.NewAppError(common.KindStore, "insert document", fmt.Errorf("disk full"))
}

func TestProcessPersistFailureAborts(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{text: extract.Result{Text: "some text", Status: extract.StatusSuccess}}
	fields := &fakeFields{fields: map[string]any{"form_type": "Unknown/Default"}}
	p := New(Options{}, extractor, fields, failingInsertRepo{docs}, testLogger())

	res := p.Process(context.Background(), writeTempDoc(t), "f.pdf", classify.TemplateDefault, repository.FaxMetadata{})
	assert.Equal(t, StageError, res.Status)
	assert.Equal(t, StagePersisting, res.Stage)
	assert.Contains(t, res.Message, "disk full")

	all, err := docs.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProcessDeclaredTemplateWins(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{text: extract.Result{Text: "Provider Fax Form", Status: extract.StatusSuccess}}
	fields := &fakeFields{fields: map[string]any{"form_type": "OTC Fax Form"}}
	p := New(Options{}, extractor, fields, docs, testLogger())

	res := p.Process(context.Background(), writeTempDoc(t), "f.pdf", classify.TemplateOTCFax, repository.FaxMetadata{})
	require.Equal(t, StageDone, res.Status)
	assert.Equal(t, classify.TemplateOTCFax, fields.last.Template)
}

func TestReceiveCleansUpTempFile(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{text: extract.Result{Text: "text", Status: extract.StatusSuccess}}
	fields := &fakeFields{fields: map[string]any{"form_type": "Unknown/Default"}}
	tmpDir := t.TempDir()
	p := New(Options{ReceivedTempDir: tmpDir}, extractor, fields, docs, testLogger())

	res := p.Receive(context.Background(), []byte("%PDF-1.4 incoming"), "incoming.pdf", classify.TemplateDefault, repository.FaxMetadata{FromNumber: "+15550001111"})
	require.Equal(t, StageDone, res.Status)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "received temp file must be removed")

	doc, err := docs.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", doc.FaxFromNumber)
}

func TestReceiveCleansUpTempFileOnFailure(t *testing.T) {
	docs := testRepo(t)
	extractor := &fakeExtractor{err: common.NewAppError(common.KindService, "local ocr failed", fmt.Errorf("tesseract missing"))}
	fields := &fakeFields{fields: map[string]any{"form_type": "X"}}
	tmpDir := t.TempDir()
	p := New(Options{ReceivedTempDir: tmpDir}, extractor, fields, docs, testLogger())

	res := p.Receive(context.Background(), []byte("%PDF-1.4 incoming"), "incoming.pdf", classify.TemplateDefault, repository.FaxMetadata{})
	assert.Equal(t, StageError, res.Status)
	assert.Equal(t, StageExtractingContent, res.Stage)

	// the temp file does not outlive the failed run
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	all, err := docs.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
