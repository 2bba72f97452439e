package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/storage"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type exportFixture struct {
	org      primitive.ObjectID
	exports  *fakeExportStore
	source   *fakeExportSource
	files    storage.IFileStore
	enqueuer *fakeEnqueuer
	cfg      *config.Config
	now      time.Time
	svc      *exportService
}

func newExportFixture(t *testing.T, files storage.IFileStore) *exportFixture {
	t.Helper()
	if files == nil {
		local, err := storage.NewLocalStore(t.TempDir())
		require.NoError(t, err)
		files = local
	}
	f := &exportFixture{
		org:     primitive.NewObjectID(),
		exports: newFakeExportStore(),
		source: &fakeExportSource{records: []store.Record{
			{"name": "Alice", "email": "alice@example.com", "unit": "1A", "rentAmount": 1000.0,
				"propertyId": map[string]interface{}{"name": "Maple Court"}},
			{"name": "Bob", "email": "bob@example.com", "unit": "1B", "rentAmount": 950.5},
		}},
		files:    files,
		enqueuer: &fakeEnqueuer{},
		cfg:      config.Defaults(),
		now:      time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewExportService(f.exports, f.source, f.files, f.enqueuer, f.cfg).(*exportService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *exportFixture) create(t *testing.T, input ExportInput) *models.ExportRequest {
	t.Helper()
	req, err := f.svc.CreateExportRequest(context.Background(), f.org, "user-1", input)
	require.NoError(t, err)
	return req
}

func (f *exportFixture) stored(t *testing.T, id primitive.ObjectID) *models.ExportRequest {
	t.Helper()
	req, err := f.exports.Get(context.Background(), id)
	require.NoError(t, err)
	return req
}

// failingFileStore fails every Save.
type failingFileStore struct {
	storage.IFileStore
	deleted []string
}

func (s *failingFileStore) Save(ctx context.Context, key string, body io.Reader, contentType string) (int64, error) {
	return 0, errBoom
}

func (s *failingFileStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

// presigningFileStore keeps files in memory and hands out links.
type presigningFileStore struct {
	files map[string][]byte
}

func (s *presigningFileStore) Save(ctx context.Context, key string, body io.Reader, contentType string) (int64, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}
	s.files[key] = b
	return int64(len(b)), nil
}

func (s *presigningFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *presigningFileStore) Delete(ctx context.Context, key string) error {
	delete(s.files, key)
	return nil
}

func (s *presigningFileStore) PresignGet(ctx context.Context, key, fileName string, expires time.Duration) (string, error) {
	return "https://files.example.com/" + key + "?expires=" + expires.String(), nil
}

func TestCreateExportRequest_QueuesPendingRequest(t *testing.T) {
	f := newExportFixture(t, nil)

	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})

	assert.Equal(t, models.ExportStatusPending, req.Status)
	assert.Equal(t, "export:"+req.ID.Hex(), req.TaskID)
	assert.Equal(t, []string{req.ID.Hex()}, f.enqueuer.queued)
	stored := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusPending, stored.Status)
	assert.Equal(t, "user-1", stored.RequestedBy)
	assert.Equal(t, req.TaskID, stored.TaskID)
	assert.Equal(t, 0, f.source.calls, "nothing is rendered on the request path")
}

func TestCreateExportRequest_Validation(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	cases := []struct {
		name  string
		input ExportInput
		field string
	}{
		{"missing type", ExportInput{Format: models.ExportFormatCSV}, "type"},
		{"unknown type", ExportInput{Type: "invoices", Format: models.ExportFormatCSV}, "type"},
		{"unknown format", ExportInput{Type: models.ExportTypeTenants, Format: "xlsx"}, "format"},
		{"inverted dates", ExportInput{Type: models.ExportTypePayments, Format: models.ExportFormatCSV,
			Filters: models.ExportFilters{StartDate: &start, EndDate: &end}}, "filters"},
		{"blank field", ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV,
			Options: models.ExportOptions{Fields: []string{"name", " "}}}, "options.fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateExportRequest(ctx, f.org, "user-1", tc.input)
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Empty(t, f.enqueuer.queued)
}

func TestCreateExportRequest_EnqueueFailureFailsRequest(t *testing.T) {
	f := newExportFixture(t, nil)
	f.enqueuer.err = errBoom

	_, err := f.svc.CreateExportRequest(context.Background(), f.org, "user-1",
		ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	var se *apperrors.StorageError
	require.ErrorAs(t, err, &se)

	list, err := f.svc.ListExports(context.Background(), f.org, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ExportStatusFailed, list[0].Status)
}

func TestProcessExport_CSVLifecycle(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})

	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, false))

	done := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, 2, done.Result.RecordCount)
	assert.Equal(t, "/api/export/download/"+req.ID.Hex(), done.Result.FileURL)
	assert.Equal(t, "tenants_export_1710936000000.csv", done.Result.FileName)
	assert.Equal(t, f.now.Add(7*24*time.Hour), done.Result.ExpiresAt)
	assert.Positive(t, done.Result.FileSize)

	dl, err := f.svc.OpenExportDownload(ctx, f.org, req.ID)
	require.NoError(t, err)
	require.NotNil(t, dl.Body)
	defer dl.Body.Close()
	assert.Equal(t, "text/csv", dl.ContentType)
	assert.Equal(t, done.Result.FileName, dl.FileName)

	rows, err := csv.NewReader(dl.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, []string{"Alice", "alice@example.com", "", "Maple Court", "1A", "", "1000", ""}, rows[1])
	assert.Equal(t, "950.5", rows[2][6])

	// Redelivery of a finished job is a no-op.
	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, false))
	assert.Equal(t, 1, f.source.calls)
}

func TestProcessExport_SelectedFieldsWithoutHeaders(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	noHeaders := false
	req := f.create(t, ExportInput{
		Type:    models.ExportTypeTenants,
		Format:  models.ExportFormatCSV,
		Options: models.ExportOptions{Fields: []string{"name", "propertyId.name"}, IncludeHeaders: &noHeaders},
	})
	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, true))

	dl, err := f.svc.OpenExportDownload(ctx, f.org, req.ID)
	require.NoError(t, err)
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "Alice,Maple Court\nBob,\n", string(body))
}

func TestProcessExport_PDF(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeRentCollection, Format: models.ExportFormatPDF})

	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, false))

	done := f.stored(t, req.ID)
	require.Equal(t, models.ExportStatusCompleted, done.Status)
	assert.True(t, strings.HasSuffix(done.Result.FileName, ".pdf"))
	assert.True(t, strings.HasPrefix(done.Result.FileName, "rent_collection_export_"))

	dl, err := f.svc.OpenExportDownload(ctx, f.org, req.ID)
	require.NoError(t, err)
	defer dl.Body.Close()
	head := make([]byte, 5)
	_, err = io.ReadFull(dl.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))
	assert.Equal(t, "application/pdf", dl.ContentType)
}

func TestProcessExport_RenderFailureIsTerminal(t *testing.T) {
	f := newExportFixture(t, nil)
	f.cfg.ExportPdfRowsPerPage = 0
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatPDF})

	err := f.svc.ProcessExport(context.Background(), req.ID, false)
	var re *apperrors.RenderError
	require.ErrorAs(t, err, &re)

	failed := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "Failed to render export", failed.Error.Message)
	assert.Nil(t, failed.Result)
}

func TestProcessExport_FetchFailureRetriesUntilFinalAttempt(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	f.source.err = errBoom
	req := f.create(t, ExportInput{Type: models.ExportTypePayments, Format: models.ExportFormatCSV})

	assert.ErrorIs(t, f.svc.ProcessExport(ctx, req.ID, false), errBoom)
	assert.Equal(t, models.ExportStatusProcessing, f.stored(t, req.ID).Status)

	assert.ErrorIs(t, f.svc.ProcessExport(ctx, req.ID, true), errBoom)
	failed := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusFailed, failed.Status)
	assert.Equal(t, "Failed to fetch records", failed.Error.Message)
	assert.Contains(t, failed.Error.Details, "boom")
}

func TestProcessExport_SaveFailureLeavesNoFile(t *testing.T) {
	files := &failingFileStore{}
	f := newExportFixture(t, files)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})

	assert.ErrorIs(t, f.svc.ProcessExport(ctx, req.ID, true), errBoom)
	failed := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusFailed, failed.Status)
	assert.Equal(t, "Failed to write export file", failed.Error.Message)
	assert.Len(t, files.deleted, 1)
}

// deadlineExportStore refuses writes once ctx is done, like the Mongo driver.
type deadlineExportStore struct {
	*fakeExportStore
	completeErr error
}

func (d *deadlineExportStore) MarkCompleted(ctx context.Context, id primitive.ObjectID, result models.ExportResult, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.completeErr != nil {
		return d.completeErr
	}
	return d.fakeExportStore.MarkCompleted(ctx, id, result, now)
}

func (d *deadlineExportStore) MarkFailed(ctx context.Context, id primitive.ObjectID, exportErr models.ExportError, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.fakeExportStore.MarkFailed(ctx, id, exportErr, now)
}

// blockingSource waits for the task deadline.
type blockingSource struct{}

func (blockingSource) Fetch(ctx context.Context, exportType models.ExportType, orgID primitive.ObjectID, filters models.ExportFilters) ([]store.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *exportFixture) withService(exports store.IExportStore, source store.IExportSource) *exportService {
	svc := NewExportService(exports, source, f.files, f.enqueuer, f.cfg).(*exportService)
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestProcessExport_FinalAttemptTimeoutMarksFailed(t *testing.T) {
	f := newExportFixture(t, nil)
	req := f.create(t, ExportInput{Type: models.ExportTypePayments, Format: models.ExportFormatCSV})
	svc := f.withService(&deadlineExportStore{fakeExportStore: f.exports}, blockingSource{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := svc.ProcessExport(ctx, req.ID, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	failed := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "Failed to fetch records", failed.Error.Message)
	assert.Nil(t, failed.Result)
}

func TestProcessExport_CompletionWriteFailure(t *testing.T) {
	files := &presigningFileStore{files: map[string][]byte{}}
	f := newExportFixture(t, files)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	svc := f.withService(&deadlineExportStore{fakeExportStore: f.exports, completeErr: errBoom}, f.source)

	assert.ErrorIs(t, svc.ProcessExport(ctx, req.ID, false), errBoom)
	assert.Equal(t, models.ExportStatusProcessing, f.stored(t, req.ID).Status, "an earlier attempt leaves it for a retry")
	assert.Empty(t, files.files)

	assert.ErrorIs(t, svc.ProcessExport(ctx, req.ID, true), errBoom)
	failed := f.stored(t, req.ID)
	assert.Equal(t, models.ExportStatusFailed, failed.Status)
	assert.Equal(t, "Failed to record export result", failed.Error.Message)
	assert.Empty(t, files.files)
}

func TestOpenExportDownload_States(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()

	pending := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	_, err := f.svc.OpenExportDownload(ctx, f.org, pending.ID)
	assert.Equal(t, 400, apperrors.HTTPStatus(err), "unfinished exports cannot be downloaded")

	_, err = f.svc.OpenExportDownload(ctx, f.org, primitive.NewObjectID())
	assert.Equal(t, 404, apperrors.HTTPStatus(err))

	require.NoError(t, f.svc.ProcessExport(ctx, pending.ID, false))
	_, err = f.svc.OpenExportDownload(ctx, primitive.NewObjectID(), pending.ID)
	assert.Equal(t, 403, apperrors.HTTPStatus(err), "other organizations are refused")

	dl, err := f.svc.OpenExportDownload(ctx, f.org, pending.ID)
	require.NoError(t, err)
	dl.Body.Close()

	f.now = f.now.Add(8 * 24 * time.Hour)
	_, err = f.svc.OpenExportDownload(ctx, f.org, pending.ID)
	assert.Equal(t, 404, apperrors.HTTPStatus(err), "expired exports are gone")
}

func TestOpenExportDownload_Presigned(t *testing.T) {
	f := newExportFixture(t, &presigningFileStore{files: map[string][]byte{}})
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, false))

	dl, err := f.svc.OpenExportDownload(ctx, f.org, req.ID)
	require.NoError(t, err)
	assert.Nil(t, dl.Body)
	assert.True(t, strings.HasPrefix(dl.RedirectURL, "https://files.example.com/tenants_export_"))
}

func TestGetExportStatus_Authorization(t *testing.T) {
	f := newExportFixture(t, nil)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})

	got, err := f.svc.GetExportStatus(ctx, f.org, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = f.svc.GetExportStatus(ctx, primitive.NewObjectID(), req.ID)
	var ae *apperrors.AuthorizationError
	assert.ErrorAs(t, err, &ae)

	err = f.svc.DeleteExport(ctx, primitive.NewObjectID(), req.ID)
	assert.ErrorAs(t, err, &ae)
}

func TestDeleteExport_RemovesFile(t *testing.T) {
	files := &presigningFileStore{files: map[string][]byte{}}
	f := newExportFixture(t, files)
	ctx := context.Background()
	req := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	require.NoError(t, f.svc.ProcessExport(ctx, req.ID, false))
	require.Len(t, files.files, 1)

	require.NoError(t, f.svc.DeleteExport(ctx, f.org, req.ID))
	assert.Empty(t, files.files)
	_, err := f.exports.Get(ctx, req.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCleanupExpiredExports(t *testing.T) {
	files := &presigningFileStore{files: map[string][]byte{}}
	f := newExportFixture(t, files)
	ctx := context.Background()

	old := f.create(t, ExportInput{Type: models.ExportTypeTenants, Format: models.ExportFormatCSV})
	require.NoError(t, f.svc.ProcessExport(ctx, old.ID, false))

	f.now = f.now.Add(6 * 24 * time.Hour)
	recent := f.create(t, ExportInput{Type: models.ExportTypeProperties, Format: models.ExportFormatCSV})
	require.NoError(t, f.svc.ProcessExport(ctx, recent.ID, false))
	pending := f.create(t, ExportInput{Type: models.ExportTypePayments, Format: models.ExportFormatCSV})

	f.now = f.now.Add(2 * 24 * time.Hour)
	removed, err := f.svc.CleanupExpiredExports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, files.files, 1)

	_, err = f.exports.Get(ctx, old.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, models.ExportStatusCompleted, f.stored(t, recent.ID).Status)
	assert.Equal(t, models.ExportStatusPending, f.stored(t, pending.ID).Status)
}

func TestExportTitle(t *testing.T) {
	assert.Equal(t, "Rent Collection Export", exportTitle(models.ExportTypeRentCollection))
	assert.Equal(t, "Tenants Export", exportTitle(models.ExportTypeTenants))
}
