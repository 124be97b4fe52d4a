// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Segmented mode: brand-safety audit of the channel corpus into persistent segments
//   - Topic mode: keyword topic audits over segmented channels
//   - Stats mode: segment statistics refresh and CSV report upload
//   - Materializer mode: queued custom target list exports
//   - Scheduler mode: cron-triggered segmented, topic and stats runs
//   - CTL mode: one custom target list operation per invocation
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/audit/fetcher"
	"github.com/lueurxax/brand-safety-audit/internal/audit/keywords"
	"github.com/lueurxax/brand-safety-audit/internal/audit/scoring"
	"github.com/lueurxax/brand-safety-audit/internal/audit/segmented"
	"github.com/lueurxax/brand-safety-audit/internal/audit/segments"
	"github.com/lueurxax/brand-safety-audit/internal/audit/stats"
	"github.com/lueurxax/brand-safety-audit/internal/audit/topic"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/core/sdb"
	"github.com/lueurxax/brand-safety-audit/internal/core/search"
	"github.com/lueurxax/brand-safety-audit/internal/ctl"
	"github.com/lueurxax/brand-safety-audit/internal/materialize"
	"github.com/lueurxax/brand-safety-audit/internal/objectstore"
	"github.com/lueurxax/brand-safety-audit/internal/platform/config"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
	"github.com/lueurxax/brand-safety-audit/internal/platform/worker"
	db "github.com/lueurxax/brand-safety-audit/internal/storage"
	"github.com/lueurxax/brand-safety-audit/internal/taskqueue"
)

const (
	jobSegmented = "segmented"
	jobTopic     = "topic"
	jobStats     = "stats"

	statsKeyPrefix  = "statistics/segments-"
	statsDateLayout = "20060102"
	contentTypeCSV  = "text/csv"

	logFieldStore    = "store"
	logFieldChannels = "channels"
	logFieldVideos   = "videos"
	logFieldKey      = "key"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
	now      func() time.Time
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
		now:      time.Now,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	checks := []observability.Check{{Name: "postgres", Pinger: a.database}}

	if source, err := a.newPageSource(); err == nil {
		if p, ok := source.(observability.Pinger); ok {
			checks = append(checks, observability.Check{Name: a.cfg.ItemStore, Pinger: p})
		}
	}

	srv := observability.NewServer(a.cfg.HealthPort, a.logger, checks...)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunSegmented audits the next channel batch. With loop set it keeps auditing
// until ctx is canceled.
func (a *App) RunSegmented(ctx context.Context, loop bool) error {
	auditor, err := a.newSegmentedAuditor(ctx)
	if err != nil {
		return err
	}

	if loop {
		return auditor.RunLoop(ctx, a.cfg.AuditLoopInterval)
	}

	report, err := auditor.RunPass(ctx)
	if err != nil {
		return fmt.Errorf("segmented audit pass: %w", err)
	}

	a.logger.Info().
		Int(logFieldChannels, report.Channels).
		Int(logFieldVideos, report.Videos).
		Bool("wrapped", report.WrappedCursor).
		Msg("segmented audit pass finished")

	return nil
}

// RunTopic runs the keyword topic audits once.
func (a *App) RunTopic(ctx context.Context) error {
	auditor, err := a.newTopicAuditor()
	if err != nil {
		return err
	}

	report, err := auditor.Run(ctx)
	if err != nil {
		return fmt.Errorf("topic audit: %w", err)
	}

	a.logger.Info().
		Int("batches", report.Batches).
		Int(logFieldChannels, report.Channels).
		Strs("completed", report.Completed).
		Msg("topic audit finished")

	return nil
}

// RunStats refreshes every segment's statistics and uploads a CSV report.
func (a *App) RunStats(ctx context.Context) error {
	store, err := a.newObjectStore(ctx)
	if err != nil {
		return err
	}

	key, err := a.exportStats(ctx, store)
	if err != nil {
		return err
	}

	a.logger.Info().Str(logFieldKey, key).Msg("segment statistics exported")

	return nil
}

func (a *App) exportStats(ctx context.Context, store ports.ObjectStore) (string, error) {
	rows, err := stats.NewRefresher(a.database, a.logger).RefreshAll(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh statistics: %w", err)
	}

	var buf bytes.Buffer

	if err := stats.WriteCSV(&buf, rows); err != nil {
		return "", fmt.Errorf("write statistics csv: %w", err)
	}

	key := statsKeyPrefix + a.now().UTC().Format(statsDateLayout) + ".csv"

	if err := store.Put(ctx, key, &buf, contentTypeCSV); err != nil {
		return "", fmt.Errorf("upload statistics csv: %w", err)
	}

	return key, nil
}

// RunMaterializer consumes custom target list tasks until ctx is canceled.
func (a *App) RunMaterializer(ctx context.Context) error {
	store, err := a.newObjectStore(ctx)
	if err != nil {
		return err
	}

	queue := a.newTaskQueue()
	defer func() {
		if err := queue.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close task queue")
		}
	}()

	if err := queue.Ping(ctx); err != nil {
		return fmt.Errorf("task queue ping: %w", err)
	}

	f, err := a.newFetcher(a.cfg.AuditVideoBatchSize)
	if err != nil {
		return err
	}

	engine, err := a.newEngine(ctx)
	if err != nil {
		return err
	}

	m := materialize.New(materialize.Deps{
		Segments: a.database,
		Audits:   a.database,
		Objects:  store,
		Queue:    queue,
		Items:    f,
		Scorer:   engine,
	}, materialize.Options{
		MaxItems:     a.cfg.ExportMaxItems,
		MaxRetries:   a.cfg.TaskMaxRetries,
		PollInterval: a.cfg.TaskPollInterval,
	}, a.logger)

	return m.Run(ctx)
}

// RunScheduler triggers the segmented and topic audits on AUDIT_CRON and the
// statistics export on STATS_CRON until ctx is canceled.
func (a *App) RunScheduler(ctx context.Context) error {
	return worker.Cron(ctx, worker.CronConfig{
		Name: "audit scheduler",
		Jobs: []worker.CronJob{
			{Name: jobSegmented, Spec: a.cfg.AuditCron, Run: func(ctx context.Context) error {
				return a.RunSegmented(ctx, false)
			}},
			{Name: jobTopic, Spec: a.cfg.AuditCron, Run: a.RunTopic},
			{Name: jobStats, Spec: a.cfg.StatsCron, Run: a.RunStats},
		},
		OnResult: recordScheduledRun,
		Logger:   a.logger,
	})
}

func recordScheduledRun(job string, err error) {
	status := observability.StatusSuccess

	switch {
	case apperrors.Is(err, apperrors.ErrLockHeld):
		status = observability.StatusSkipped
	case err != nil:
		status = observability.StatusError
	}

	observability.ScheduledRuns.WithLabelValues(job, status).Inc()
}

// NewCTLManager builds the custom target list manager over the configured
// database, object store and task queue. The returned closer releases the
// task queue connection.
func (a *App) NewCTLManager(ctx context.Context) (*ctl.Manager, io.Closer, error) {
	store, err := a.newObjectStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	queue := a.newTaskQueue()

	return ctl.NewManager(ctl.Deps{
		Segments: a.database,
		Audits:   a.database,
		Objects:  store,
		Queue:    queue,
	}, ctl.Options{
		SourceMaxRows: a.cfg.SourceListMaxSize,
		DownloadTTL:   a.cfg.ExportURLTTL,
	}, a.logger), queue, nil
}

func (a *App) newSegmentedAuditor(ctx context.Context) (*segmented.Auditor, error) {
	f, err := a.newFetcher(a.cfg.AuditVideoBatchSize)
	if err != nil {
		return nil, err
	}

	engine, err := a.newEngine(ctx)
	if err != nil {
		return nil, err
	}

	partitioner := segments.NewPartitioner(a.database, a.database, segments.Options{
		NoAuditTitles: a.cfg.NoAuditSegments,
		PassScore:     a.cfg.AuditPassScore,
	}, a.logger)

	return segmented.New(f, engine, partitioner, a.database, segmented.Options{
		ChannelBatchLimit: a.cfg.AuditChannelBatchLimit,
		Workers:           a.cfg.AuditWorkers,
	}, a.logger), nil
}

func (a *App) newTopicAuditor() (*topic.Auditor, error) {
	f, err := a.newFetcher(a.cfg.AuditVideoBatchSize)
	if err != nil {
		return nil, err
	}

	return topic.New(topic.Deps{
		Segments:  a.database,
		Topics:    a.database,
		Trackers:  a.database,
		Locks:     a.database,
		Fetcher:   f,
		Refresher: stats.NewRefresher(a.database, a.logger),
	}, topic.Options{
		MasterBatchSize: a.cfg.TopicMasterBatchSize,
		Workers:         a.cfg.TopicWorkers,
	}, a.logger), nil
}

// newEngine compiles the scoring engine from the current bad-word list.
func (a *App) newEngine(ctx context.Context) (*scoring.Engine, error) {
	words, err := keywords.LoadBadWords(ctx, a.database)
	if err != nil {
		return nil, fmt.Errorf("load bad words: %w", err)
	}

	rollup, err := scoring.ParseRollup(a.cfg.AuditChannelRollup)
	if err != nil {
		return nil, fmt.Errorf("parse channel rollup: %w", err)
	}

	engine, err := scoring.NewEngine(words, scoring.Options{
		Language: a.cfg.AuditLanguage,
		Rollup:   rollup,
	})
	if err != nil {
		return nil, fmt.Errorf("compile scoring engine: %w", err)
	}

	return engine, nil
}

func (a *App) newFetcher(pageSize int) (*fetcher.Fetcher, error) {
	source, err := a.newPageSource()
	if err != nil {
		return nil, err
	}

	return fetcher.New(source, fetcher.Options{
		PageSize:     pageSize,
		ChannelChunk: a.cfg.TopicChannelBatchSize,
	}, a.logger), nil
}

// newPageSource returns the backing item store selected by ITEM_STORE.
func (a *App) newPageSource() (ports.PageSource, error) {
	switch a.cfg.ItemStore {
	case config.ItemStoreSDB:
		a.logger.Debug().Str(logFieldStore, config.ItemStoreSDB).Msg("using sdb item store")

		return sdb.New(sdb.Config{
			BaseURL: a.cfg.SDBBaseURL,
			RPS:     a.cfg.SDBRPS,
			Timeout: a.cfg.SDBTimeout,
		}), nil
	case config.ItemStoreSearch:
		a.logger.Debug().Str(logFieldStore, config.ItemStoreSearch).Msg("using search item store")

		return search.New(search.Config{
			BaseURL:      a.cfg.SearchBaseURL,
			ChannelIndex: a.cfg.SearchChannelIndex,
			VideoIndex:   a.cfg.SearchVideoIndex,
			Timeout:      a.cfg.SearchTimeout,
			Retry:        search.DefaultRetryConfig(),
		}), nil
	default:
		return nil, fmt.Errorf("item store %q: %w", a.cfg.ItemStore, apperrors.ErrInvalidConfig)
	}
}

func (a *App) newObjectStore(ctx context.Context) (*objectstore.Store, error) {
	store, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:  a.cfg.S3Endpoint,
		Region:    a.cfg.S3Region,
		AccessKey: a.cfg.S3AccessKey,
		SecretKey: a.cfg.S3SecretKey,
		Bucket:    a.cfg.S3Bucket,
		UseSSL:    a.cfg.S3UseSSL,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("object store init: %w", err)
	}

	return store, nil
}

func (a *App) newTaskQueue() *taskqueue.Queue {
	return taskqueue.New(taskqueue.Config{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
		Queue:    a.cfg.TaskQueueName,
	})
}
