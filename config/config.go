package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SysConfig holds process-level settings.
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	Filename   string `yaml:"filename" json:"filename"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
}

// StorageConfig holds the embedded store settings.
type StorageConfig struct {
	// ImageDB is the bbolt database file holding image blobs.
	// Relative paths resolve against System.Workdir.
	ImageDB string `yaml:"image_db" json:"image_db"`
	// RecordDir is the directory holding the serialized record slots.
	RecordDir string `yaml:"record_dir" json:"record_dir"`
}

// ExportConfig holds spreadsheet/report export settings.
type ExportConfig struct {
	// Dir receives generated workbooks and printable sheets.
	Dir string `yaml:"dir" json:"dir"`
	// AutoCron is a cron spec for the daily order export job, empty disables it.
	AutoCron string `yaml:"auto_cron" json:"auto_cron"`
}

type AppConfig struct {
	System  SysConfig     `yaml:"system" json:"system"`
	Logger  LogConfig     `yaml:"logger" json:"logger"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Export  ExportConfig  `yaml:"export" json:"export"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Warepix",
		Location: "Asia/Shanghai",
		Workdir:  "/var/warepix",
		Debug:    true,
	},
	Logger: LogConfig{
		Mode:       "development",
		Filename:   "/var/warepix/warepix.log",
		FileEnable: true,
	},
	Storage: StorageConfig{
		ImageDB:   "images.db",
		RecordDir: "records",
	},
	Export: ExportConfig{
		Dir:      "exports",
		AutoCron: "",
	},
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, c.Storage.RecordDir), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, c.Export.Dir), 0755)
}

// AbsPath resolves p against the configured workdir unless already absolute.
func (c *AppConfig) AbsPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.System.Workdir, p)
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

// LoadConfig reads the YAML config file and applies environment overrides.
// A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("WAREPIX_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("WAREPIX_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = v == "true" })
	setEnvValue("WAREPIX_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvValue("WAREPIX_STORAGE_IMAGE_DB", func(v string) { cfg.Storage.ImageDB = v })
	setEnvValue("WAREPIX_EXPORT_DIR", func(v string) { cfg.Export.Dir = v })

	cfg.initDirs()
	return cfg
}
