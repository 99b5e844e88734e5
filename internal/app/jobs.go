package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/store"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 1h", func() {
		go a.SchedStorageMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if spec := a.appConfig.Export.AutoCron; spec != "" {
		_, err = a.sched.AddFunc(spec, func() {
			if err := a.ExportDaily(context.Background(), time.Now()); err != nil {
				zap.S().Errorf("auto export failed: %s", err.Error())
			}
		})
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedStorageMonitorTask probes the image database and logs its size. A
// failed probe triggers the reopen path inside the store.
func (a *Application) SchedStorageMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	count, err := a.blobs.Count(context.Background())
	if err != nil {
		zap.S().Errorf("image database probe failed: %s", err.Error())
		return
	}
	zap.L().Debug("image database probe", zap.Int("images", count))
}

// ExportDaily writes the order workbook, the order CSV and the supplier
// statistics workbook of one day, then records the export date in settings.
func (a *Application) ExportDaily(ctx context.Context, day time.Time) error {
	orders, err := a.records.ListOrders(store.OrderFilter{Day: day})
	if err != nil {
		return err
	}
	date := day.Format("2006-01-02")
	if len(orders) == 0 {
		zap.L().Info("no orders to export", zap.String("date", date))
		return nil
	}

	if _, err := a.exporter.Orders(orders, date); err != nil {
		return err
	}
	if _, err := a.exporter.OrdersCSV(orders, date); err != nil {
		return err
	}
	stats, err := a.reports.SupplierStats(ctx, day)
	if err != nil {
		return err
	}
	if _, err := a.exporter.SupplierStats(stats, date); err != nil {
		return err
	}

	settings, err := a.records.LoadSettings()
	if err != nil {
		return err
	}
	settings.LastExportDate = date
	if err := a.records.StoreSettings(settings); err != nil {
		return err
	}
	zap.L().Info("daily export finished", zap.String("date", date), zap.Int("orders", len(orders)))
	return nil
}
