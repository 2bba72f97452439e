package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/apperrors"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType defines the type of a background task.
const (
	TypeExportProcess = "export:process"
	TypeExportCleanup = "export:cleanup"
	TypePeriodSync    = "collection:period:sync"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"

	exportMaxRetry = 3
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// taskClient is the part of *asynq.Client the enqueuer uses.
type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportTaskPayload identifies the export request to render.
type ExportTaskPayload struct {
	RequestID string `json:"request_id"`
}

// Enqueuer queues export jobs. It implements services.IExportEnqueuer.
type Enqueuer struct {
	client  taskClient
	timeout time.Duration
}

func NewEnqueuer(client taskClient, cfg *config.Config) *Enqueuer {
	return &Enqueuer{client: client, timeout: cfg.ExportTimeout}
}

// EnqueueExport queues requestID once; the request id doubles as the task
// id so a repeated enqueue does not schedule a second render.
func (e *Enqueuer) EnqueueExport(ctx context.Context, requestID string) (string, error) {
	payload, err := json.Marshal(ExportTaskPayload{RequestID: requestID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal export task payload: %w", err)
	}
	taskID := "export:" + requestID
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(TypeExportProcess, payload),
		asynq.TaskID(taskID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(exportMaxRetry),
		asynq.Timeout(e.timeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return taskID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue export task: %w", err)
	}
	return info.ID, nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	exportService     services.IExportService
	collectionService services.IRentCollectionService
}

func NewTaskProcessor(exportService services.IExportService, collectionService services.IRentCollectionService) *TaskProcessor {
	return &TaskProcessor{
		exportService:     exportService,
		collectionService: collectionService,
	}
}

// SetupServer configures an Asynq server and its handlers. The caller starts
// it with srv.Start(mux) and stops it with srv.Shutdown().
func SetupServer(rdb *redis.Client, processor *TaskProcessor, concurrency int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger: logger.L(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
					"task_type": task.Type(),
					"payload":   string(task.Payload()),
					"retried":   retried,
				}).Error("Task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExportProcess, processor.HandleExportProcessTask)
	mux.HandleFunc(TypeExportCleanup, processor.HandleExportCleanupTask)
	mux.HandleFunc(TypePeriodSync, processor.HandlePeriodSyncTask)
	return srv, mux
}

// NewScheduler registers the periodic tasks. The caller runs it with
// scheduler.Start() and stops it with scheduler.Shutdown().
func NewScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logger.L(),
		EnqueueErrorHandler: func(task *asynq.Task, opts []asynq.Option, err error) {
			logger.L().WithError(err).WithField("task_type", task.Type()).Error("Failed to enqueue scheduled task")
		},
	})

	entries := []struct {
		spec     string
		taskType string
	}{
		{cfg.ExportCleanupCron, TypeExportCleanup},
		{cfg.PeriodSyncCron, TypePeriodSync},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := scheduler.Register(e.spec, asynq.NewTask(e.taskType, nil), asynq.Queue(QueueLow), asynq.MaxRetry(1)); err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%q): %w", e.taskType, e.spec, err)
		}
	}
	return scheduler, nil
}

// --- Task Handlers ---

// taskContext tags ctx with the task id so service logs can be correlated.
func taskContext(ctx context.Context) context.Context {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return logger.ContextWithRequestID(ctx, id)
	}
	return ctx
}

// finalAttempt reports whether a failure now exhausts the task's retries.
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// HandleExportProcessTask renders one export request.
func (p *TaskProcessor) HandleExportProcessTask(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx)
	var payload ExportTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal export task payload: %v: %w", err, asynq.SkipRetry)
	}
	requestID, err := primitive.ObjectIDFromHex(payload.RequestID)
	if err != nil {
		return fmt.Errorf("invalid export request id %q: %w", payload.RequestID, asynq.SkipRetry)
	}

	err = p.exportService.ProcessExport(ctx, requestID, finalAttempt(ctx))
	if err == nil {
		return nil
	}
	var renderErr *apperrors.RenderError
	if errors.As(err, &renderErr) || apperrors.IsValidation(err) || apperrors.IsNotFound(err) {
		return fmt.Errorf("export %s: %v: %w", payload.RequestID, err, asynq.SkipRetry)
	}
	return err
}

// HandleExportCleanupTask removes expired exports and their files.
func (p *TaskProcessor) HandleExportCleanupTask(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx)
	removed, err := p.exportService.CleanupExpiredExports(ctx)
	if err != nil {
		return fmt.Errorf("export cleanup removed %d before failing: %w", removed, err)
	}
	logger.WithContext(ctx).WithField("removed", removed).Debug("Export cleanup finished")
	return nil
}

// HandlePeriodSyncTask refreshes the current month's snapshot of every organization.
func (p *TaskProcessor) HandlePeriodSyncTask(ctx context.Context, t *asynq.Task) error {
	ctx = taskContext(ctx)
	synced, err := p.collectionService.SyncCurrentPeriods(ctx)
	if err != nil {
		return fmt.Errorf("period sync finished %d organizations before failing: %w", synced, err)
	}
	logger.WithContext(ctx).WithField("organizations", synced).Info("Collection periods synced")
	return nil
}
