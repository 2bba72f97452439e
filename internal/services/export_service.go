package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/metrics"
	"github.com/Zaad1704/HNV1-sub001/internal/models"
	"github.com/Zaad1704/HNV1-sub001/internal/render"
	"github.com/Zaad1704/HNV1-sub001/internal/storage"
	"github.com/Zaad1704/HNV1-sub001/internal/store"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IExportService runs the asynchronous export pipeline.
type IExportService interface {
	CreateExportRequest(ctx context.Context, orgID primitive.ObjectID, requestedBy string, input ExportInput) (*models.ExportRequest, error)
	// ProcessExport renders one request. finalAttempt tells it whether an
	// infrastructure failure should fail the request or leave it for a retry.
	ProcessExport(ctx context.Context, requestID primitive.ObjectID, finalAttempt bool) error
	GetExportStatus(ctx context.Context, orgID, requestID primitive.ObjectID) (*models.ExportRequest, error)
	ListExports(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error)
	OpenExportDownload(ctx context.Context, orgID, requestID primitive.ObjectID) (*ExportDownload, error)
	DeleteExport(ctx context.Context, orgID, requestID primitive.ObjectID) error
	CleanupExpiredExports(ctx context.Context) (int, error)
}

// IExportEnqueuer hands a request to the background workers.
type IExportEnqueuer interface {
	EnqueueExport(ctx context.Context, requestID string) (taskID string, err error)
}

// ExportInput is the body of an export request.
type ExportInput struct {
	Type    models.ExportType    `json:"type" validate:"required,oneof=tenants properties payments expenses maintenance rent_collection"`
	Format  models.ExportFormat  `json:"format" validate:"required,oneof=csv pdf"`
	Filters models.ExportFilters `json:"filters"`
	Options models.ExportOptions `json:"options"`
}

// ExportDownload is either an open file or a URL to redirect to.
type ExportDownload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
	RedirectURL string
}

const (
	maxExportFields        = 50
	defaultExportListLimit = 20
	maxExportListLimit     = 100
	downloadLinkTTL        = 15 * time.Minute
	cleanupTimeout         = 5 * time.Second
)

var contentTypes = map[models.ExportFormat]string{
	models.ExportFormatCSV: "text/csv",
	models.ExportFormatPDF: "application/pdf",
}

type exportService struct {
	exports  store.IExportStore
	source   store.IExportSource
	files    storage.IFileStore
	enqueuer IExportEnqueuer
	validate *validator.Validate
	cfg      *config.Config
	now      func() time.Time
}

// NewExportService creates a new ExportService.
func NewExportService(exports store.IExportStore, source store.IExportSource, files storage.IFileStore,
	enqueuer IExportEnqueuer, cfg *config.Config) IExportService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &exportService{
		exports:  exports,
		source:   source,
		files:    files,
		enqueuer: enqueuer,
		validate: v,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *exportService) validateInput(input ExportInput) error {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Tag() {
			case "required":
				return apperrors.Validation(fe.Field(), "is required")
			case "oneof":
				return apperrors.Validation(fe.Field(), "must be one of: %s", fe.Param())
			}
			return apperrors.Validation(fe.Field(), "failed %s check", fe.Tag())
		}
		return apperrors.Validation("", err.Error())
	}
	f := input.Filters
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return apperrors.Validation("filters", "startDate must not be after endDate")
	}
	if len(input.Options.Fields) > maxExportFields {
		return apperrors.Validation("options.fields", "at most %d fields are allowed", maxExportFields)
	}
	for _, field := range input.Options.Fields {
		if strings.TrimSpace(field) == "" {
			return apperrors.Validation("options.fields", "field paths must not be empty")
		}
	}
	return nil
}

// CreateExportRequest persists a pending request and queues it. The returned
// document is still pending; callers poll GetExportStatus.
func (s *exportService) CreateExportRequest(ctx context.Context, orgID primitive.ObjectID, requestedBy string, input ExportInput) (*models.ExportRequest, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	req := &models.ExportRequest{
		Base:           models.NewBase(),
		OrganizationID: orgID,
		RequestedBy:    requestedBy,
		Type:           input.Type,
		Format:         input.Format,
		Filters:        input.Filters,
		Options:        input.Options,
		Status:         models.ExportStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.exports.Create(ctx, req); err != nil {
		return nil, apperrors.Storage("create export request", err)
	}

	taskID, err := s.enqueuer.EnqueueExport(ctx, req.ID.Hex())
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("export_id", req.ID.Hex()).Error("Failed to queue export")
		if markErr := s.exports.MarkFailed(ctx, req.ID, models.ExportError{Message: "Failed to queue export", Details: err.Error()}, s.now()); markErr != nil {
			logger.WithContext(ctx).WithError(markErr).Error("Failed to mark export as failed")
		}
		return nil, apperrors.Storage("queue export", err)
	}
	if err := s.exports.SetTaskID(ctx, req.ID, taskID); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Failed to record export task id")
	}
	req.TaskID = taskID
	return req, nil
}

// ProcessExport moves a request through processing to completed or failed.
// Terminal requests are left alone.
func (s *exportService) ProcessExport(ctx context.Context, requestID primitive.ObjectID, finalAttempt bool) error {
	started := time.Now()
	req, err := s.exports.MarkProcessing(ctx, requestID, s.now())
	if apperrors.IsConflict(err) {
		logger.WithContext(ctx).WithField("export_id", requestID.Hex()).Info("Export already finished, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	log := logger.WithContext(ctx).WithFields(map[string]interface{}{
		"export_id": req.ID.Hex(),
		"type":      req.Type,
		"format":    req.Format,
	})

	records, err := s.source.Fetch(ctx, req.Type, req.OrganizationID, req.Filters)
	if err != nil {
		return s.fail(ctx, req, "Failed to fetch records", err, finalAttempt || apperrors.IsValidation(err))
	}
	if err := s.exports.UpdateProgress(ctx, req.ID, 50, s.now()); err != nil {
		log.WithError(err).Warn("Failed to update export progress")
	}

	var buf bytes.Buffer
	if err := s.renderTo(&buf, req, records); err != nil {
		return s.fail(ctx, req, "Failed to render export", &apperrors.RenderError{Format: string(req.Format), Err: err}, true)
	}

	now := s.now()
	fileName := fmt.Sprintf("%s_export_%d.%s", req.Type, now.UnixMilli(), req.Format)
	size, err := s.files.Save(ctx, fileName, &buf, contentTypes[req.Format])
	if err != nil {
		s.discardFile(ctx, fileName)
		return s.fail(ctx, req, "Failed to write export file", err, finalAttempt)
	}

	result := models.ExportResult{
		FileURL:     "/api/export/download/" + req.ID.Hex(),
		FileName:    fileName,
		FileKey:     fileName,
		FileSize:    size,
		RecordCount: len(records),
		ExpiresAt:   now.Add(s.cfg.ExportTTL),
	}
	if err := s.exports.MarkCompleted(ctx, req.ID, result, s.now()); err != nil {
		// The file is unreferenced either way.
		s.discardFile(ctx, fileName)
		if apperrors.IsConflict(err) {
			log.Warn("Export finished elsewhere, discarding file")
			return nil
		}
		return s.fail(ctx, req, "Failed to record export result", err, finalAttempt)
	}

	metrics.ExportJobsTotal.WithLabelValues(string(req.Type), string(req.Format), string(models.ExportStatusCompleted)).Inc()
	metrics.ExportDuration.WithLabelValues(string(req.Format)).Observe(time.Since(started).Seconds())
	log.WithFields(map[string]interface{}{"records": len(records), "bytes": size}).Info("Export completed")
	return nil
}

func (s *exportService) renderTo(w io.Writer, req *models.ExportRequest, records []store.Record) error {
	columns := render.ColumnsFor(req.Type, req.Options.Fields)
	switch req.Format {
	case models.ExportFormatCSV:
		return render.CSV(w, records, columns, req.Options.HeadersEnabled())
	case models.ExportFormatPDF:
		title := req.Options.Title
		if title == "" {
			title = exportTitle(req.Type)
		}
		return render.PDF(w, records, columns, render.PDFOptions{
			Title:          title,
			RowsPerPage:    s.cfg.ExportPdfRowsPerPage,
			IncludeHeaders: req.Options.HeadersEnabled(),
			GeneratedAt:    s.now(),
		})
	default:
		return fmt.Errorf("unsupported format %q", req.Format)
	}
}

// cleanupContext outlives a cancelled or timed out task context so terminal
// writes still land.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func (s *exportService) discardFile(ctx context.Context, fileName string) {
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := s.files.Delete(ctx, fileName); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("file", fileName).Warn("Failed to remove unreferenced export file")
	}
}

// fail records cause on the request when terminal is set and returns cause
// so the worker can decide whether to retry.
func (s *exportService) fail(ctx context.Context, req *models.ExportRequest, message string, cause error, terminal bool) error {
	log := logger.WithContext(ctx).WithError(cause).WithField("export_id", req.ID.Hex())
	if !terminal {
		log.Warn(message + ", will retry")
		return cause
	}
	log.Error(message)
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := s.exports.MarkFailed(ctx, req.ID, models.ExportError{Message: message, Details: cause.Error()}, s.now()); err != nil && !apperrors.IsConflict(err) {
		log.WithError(err).Error("Failed to mark export as failed")
	}
	metrics.ExportJobsTotal.WithLabelValues(string(req.Type), string(req.Format), string(models.ExportStatusFailed)).Inc()
	return cause
}

func (s *exportService) getOwned(ctx context.Context, orgID, requestID primitive.ObjectID) (*models.ExportRequest, error) {
	req, err := s.exports.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != orgID {
		return nil, &apperrors.AuthorizationError{Message: "export request belongs to another organization"}
	}
	return req, nil
}

func (s *exportService) GetExportStatus(ctx context.Context, orgID, requestID primitive.ObjectID) (*models.ExportRequest, error) {
	return s.getOwned(ctx, orgID, requestID)
}

func (s *exportService) ListExports(ctx context.Context, orgID primitive.ObjectID, limit int) ([]models.ExportRequest, error) {
	if orgID.IsZero() {
		return nil, apperrors.Validation("organizationId", "is required")
	}
	if limit <= 0 {
		limit = defaultExportListLimit
	}
	if limit > maxExportListLimit {
		limit = maxExportListLimit
	}
	return s.exports.List(ctx, orgID, limit)
}

// OpenExportDownload returns the file of a completed request. Missing or
// expired exports are not found; unfinished ones are a validation error.
func (s *exportService) OpenExportDownload(ctx context.Context, orgID, requestID primitive.ObjectID) (*ExportDownload, error) {
	req, err := s.getOwned(ctx, orgID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.ExportStatusCompleted {
		return nil, apperrors.Validation("status", "export is %s, not ready for download", req.Status)
	}
	if req.Result == nil || !s.now().Before(req.Result.ExpiresAt) {
		return nil, apperrors.NotFound("export file", requestID.Hex())
	}

	dl := &ExportDownload{
		FileName:    req.Result.FileName,
		ContentType: contentTypes[req.Format],
		Size:        req.Result.FileSize,
	}
	if p, ok := s.files.(storage.IPresigner); ok {
		url, err := p.PresignGet(ctx, req.Result.FileKey, req.Result.FileName, downloadLinkTTL)
		if err != nil {
			return nil, apperrors.Storage("presign export download", err)
		}
		dl.RedirectURL = url
		return dl, nil
	}
	body, err := s.files.Open(ctx, req.Result.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("export file", requestID.Hex())
	}
	if err != nil {
		return nil, apperrors.Storage("open export file", err)
	}
	dl.Body = body
	return dl, nil
}

func (s *exportService) DeleteExport(ctx context.Context, orgID, requestID primitive.ObjectID) error {
	req, err := s.getOwned(ctx, orgID, requestID)
	if err != nil {
		return err
	}
	return s.remove(ctx, req)
}

func (s *exportService) remove(ctx context.Context, req *models.ExportRequest) error {
	if req.Result != nil && req.Result.FileKey != "" {
		if err := s.files.Delete(ctx, req.Result.FileKey); err != nil {
			return apperrors.Storage("delete export file", err)
		}
	}
	return s.exports.Delete(ctx, req.ID)
}

// CleanupExpiredExports removes requests whose result expired, with their
// files, and returns how many were removed.
func (s *exportService) CleanupExpiredExports(ctx context.Context) (int, error) {
	expired, err := s.exports.ListExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for i := range expired {
		if err := s.remove(ctx, &expired[i]); err != nil && !apperrors.IsNotFound(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.WithContext(ctx).WithField("removed", removed).Info("Expired exports cleaned up")
	}
	return removed, errors.Join(errs...)
}

// exportTitle turns rent_collection into "Rent Collection Export".
func exportTitle(t models.ExportType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " Export"
}
