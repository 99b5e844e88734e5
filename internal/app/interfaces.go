package app

import (
	"github.com/robfig/cron/v3"

	"github.com/warepix/warepix/config"
	"github.com/warepix/warepix/internal/catalog"
	"github.com/warepix/warepix/internal/report"
	"github.com/warepix/warepix/internal/store"
	"github.com/warepix/warepix/internal/xlsx"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the persistence layers
type StoreProvider interface {
	Blobs() *store.BlobStore
	Records() *store.RecordStore
}

// CatalogProvider provides the catalog service
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// ReportProvider provides the report builder
type ReportProvider interface {
	Reports() *report.Builder
}

// ExportProvider provides workbook export
type ExportProvider interface {
	Exporter() *xlsx.Exporter
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Commands should depend on specific providers or this combined interface.
type AppContext interface {
	ConfigProvider
	StoreProvider
	CatalogProvider
	ReportProvider
	ExportProvider
	SchedulerProvider

	CheckLogin(username, password string) error
	Release()
}
