package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warepix/warepix/config"
	"github.com/warepix/warepix/internal/catalog"
	"github.com/warepix/warepix/internal/report"
	"github.com/warepix/warepix/internal/similarity"
	"github.com/warepix/warepix/internal/store"
	"github.com/warepix/warepix/internal/xlsx"
)

// compressWorkers sizes the batch upload pool.
const compressWorkers = 4

type Application struct {
	appConfig *config.AppConfig
	conn      *store.Conn
	blobs     *store.BlobStore
	records   *store.RecordStore
	catalog   *catalog.Service
	reports   *report.Builder
	exporter  *xlsx.Exporter
	searcher  *similarity.Searcher
	sched     *cron.Cron
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider    = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ ReportProvider    = (*Application)(nil)
	_ ExportProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Blobs() *store.BlobStore {
	return a.blobs
}

func (a *Application) Records() *store.RecordStore {
	return a.records
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Reports() *report.Builder {
	return a.reports
}

func (a *Application) Exporter() *xlsx.Exporter {
	return a.exporter
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Searcher() *similarity.Searcher {
	return a.searcher
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Open the image blob database
	a.conn = store.NewConn(cfg.AbsPath(cfg.Storage.ImageDB))
	if err := a.conn.Open(); err != nil {
		return err
	}
	a.blobs = store.NewBlobStore(a.conn)
	zap.S().Infof("image database opened: %s", cfg.AbsPath(cfg.Storage.ImageDB))

	// Open the record store
	if err := os.MkdirAll(cfg.AbsPath(cfg.Storage.RecordDir), 0755); err != nil {
		return err
	}
	a.records, err = store.NewRecordStore(cfg.AbsPath(cfg.Storage.RecordDir))
	if err != nil {
		return err
	}

	a.catalog, err = catalog.New(a.blobs, a.records, EventBus.New(), compressWorkers)
	if err != nil {
		return err
	}
	a.reports = report.NewBuilder(a.blobs, a.records)
	a.exporter = xlsx.NewExporter(cfg.AbsPath(cfg.Export.Dir))
	a.searcher = similarity.NewSearcher(time.Now().UnixNano())

	a.initJob()
	return nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.catalog != nil {
		a.catalog.Release()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	_ = zap.L().Sync()
}
