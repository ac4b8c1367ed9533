package app

import (
	"context"
	"fmt"

	"github.com/comfygate/comfy-gateway/internal/config"
	"github.com/comfygate/comfy-gateway/internal/db"
	"github.com/comfygate/comfy-gateway/internal/db/models"
	"github.com/comfygate/comfy-gateway/internal/db/repository"
	"github.com/comfygate/comfy-gateway/internal/mq"
	"github.com/comfygate/comfy-gateway/internal/router"
	"github.com/comfygate/comfy-gateway/internal/services/comfy"
	"github.com/comfygate/comfy-gateway/internal/services/filestorage"
	"github.com/comfygate/comfy-gateway/internal/services/fileuploader"
	"github.com/comfygate/comfy-gateway/internal/services/ledger"
	"github.com/comfygate/comfy-gateway/internal/services/orchestrator"
	"github.com/comfygate/comfy-gateway/internal/services/templates"
	"github.com/comfygate/comfy-gateway/internal/services/workflow"
	"github.com/comfygate/comfy-gateway/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"
)

// Node ids the img2vid template addresses directly.
const (
	img2vidImageNodeID  = 137
	img2vidPromptNodeID = 140
)

type App struct {
	mq           mq.MQ
	db           *bun.DB
	config       *config.Config
	ctx          context.Context
	cancelFunc   context.CancelFunc
	fileuploader *fileuploader.Uploader

	Logger *zap.Logger

	JobRepository repository.IJobRepository
	JobLedger     *ledger.Ledger
	Router        *router.Router
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.mq = queue
		return nil
	}
}

func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		conn, err := db.NewConnection(app.config)
		if err != nil {
			return err
		}
		app.db = conn.GetDB()

		if app.config.Environment != "prod" {
			app.db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
		}

		// Ensure tables exist
		err = app.db.RunInTx(app.ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().
				Model((*models.Job)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		app.JobRepository = repository.NewJobRepository(app.db)
		app.JobLedger = ledger.NewLedger(app.JobRepository, app.Logger)

		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.Config())
		if err != nil {
			return err
		}
		app.fileuploader = fileuploader.NewFileUploader(storage, 10)
		return nil
	}
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.NewLogger(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     log,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			app.Logger.Error("failed to apply option", zap.Error(err))
			cancel()
			return nil, err
		}
	}

	app.buildRouter()

	return app, nil
}

// buildRouter assembles the two pipelines and the typed service router. The
// MQ and ledger may be absent in partially initialized apps (tests); the
// router is only built when both are present.
func (app *App) buildRouter() {
	if app.JobLedger == nil || app.mq == nil {
		return
	}

	store := templates.NewStore(app.config.WorkflowsDir)
	client := comfy.NewClient(app.config.ComfyURL, app.Logger)

	text2image := orchestrator.NewPipeline(
		app.config.Text2ImageTemplate,
		store,
		workflow.NewPlaceholderInjector(),
		client,
		app.JobLedger,
		app.mq,
		app.Logger,
	)

	img2vid := orchestrator.NewPipeline(
		app.config.Img2VidTemplate,
		store,
		workflow.NewNodeInjector(img2vidImageNodeID, img2vidPromptNodeID, app.Logger),
		client,
		app.JobLedger,
		app.mq,
		app.Logger,
	)

	app.Router = router.NewGateway(text2image, img2vid)
}

func (app *App) Close() {
	app.cancelFunc()

	if app.fileuploader != nil {
		app.fileuploader.Stop()
	}

	if app.mq != nil {
		app.mq.Close()
	}

	if app.Logger != nil {
		app.Logger.Sync()
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.fileuploader
}
