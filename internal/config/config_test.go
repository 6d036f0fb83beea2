package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/photovariant/photovariant/internal/naming"
)

// Test Constants
const (
	TestDebugLevel = "DEBUG"
	TestBucket     = "gallery-test"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Global.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel to be INFO, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9090 {
		t.Errorf("Expected MetricsPort to be 9090, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Storage.Bucket != "fuji-images" {
		t.Errorf("Expected Bucket to be fuji-images, got %s", cfg.Storage.Bucket)
	}
	if cfg.Storage.Region != "us-east-2" {
		t.Errorf("Expected Region to be us-east-2, got %s", cfg.Storage.Region)
	}
	if cfg.Storage.RequestTimeout != 30*time.Second {
		t.Errorf("Expected RequestTimeout to be 30s, got %v", cfg.Storage.RequestTimeout)
	}
	if !reflect.DeepEqual(cfg.Variants.Widths, []int{1600, 960}) {
		t.Errorf("Expected widths [1600 960], got %v", cfg.Variants.Widths)
	}
	if cfg.Variants.Quality.AVIF != 40 || cfg.Variants.Quality.JPEG != 80 || cfg.Variants.Quality.WEBP != 80 {
		t.Errorf("Unexpected quality defaults: %+v", cfg.Variants.Quality)
	}
	if cfg.Variants.CacheControl != "public, max-age=31536000, immutable" {
		t.Errorf("Unexpected cache control: %s", cfg.Variants.CacheControl)
	}
	if cfg.Cache.MaxEntries != 4096 {
		t.Errorf("Expected MaxEntries to be 4096, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Delivery.CDNDomain != "" {
		t.Errorf("Expected no CDN domain by default, got %s", cfg.Delivery.CDNDomain)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default configuration should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  NewDefault,
			wantErr: false,
		},
		{
			name: "empty bucket",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Bucket = " "
				return cfg
			},
			wantErr: true,
			errMsg:  "storage.bucket must not be empty",
		},
		{
			name: "empty region",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Region = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "storage.region must not be empty",
		},
		{
			name: "unknown backend",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Backend = "gcs"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid storage.backend",
		},
		{
			name: "minio without endpoint",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Storage.Backend = "minio"
				return cfg
			},
			wantErr: true,
			errMsg:  "storage.endpoint is required",
		},
		{
			name: "non-positive width",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Widths = []int{1600, 0}
				return cfg
			},
			wantErr: true,
			errMsg:  "width must be positive",
		},
		{
			name: "duplicate width",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Widths = []int{960, 960}
				return cfg
			},
			wantErr: true,
			errMsg:  "duplicate width",
		},
		{
			name: "unknown format",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Formats = []string{"avif", "heic"}
				return cfg
			},
			wantErr: true,
			errMsg:  "unsupported variant format",
		},
		{
			name: "duplicate format via alias",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Formats = []string{"jpg", "jpeg"}
				return cfg
			},
			wantErr: true,
			errMsg:  "duplicate format",
		},
		{
			name: "quality out of range",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Quality.AVIF = 101
				return cfg
			},
			wantErr: true,
			errMsg:  "variants.quality.avif",
		},
		{
			name: "zero workers",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Variants.Workers = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "variants.workers must be greater than 0",
		},
		{
			name: "zero cache size",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Cache.MaxEntries = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "cache.max_entries must be greater than 0",
		},
		{
			name: "same metrics and http ports",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.MetricsPort = 8080
				cfg.Global.HTTPPort = 8080
				return cfg
			},
			wantErr: true,
			errMsg:  "metrics_port and http_port cannot be the same",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.LogLevel = "INVALID"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_level",
		},
		{
			name: "invalid log format",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Monitoring.LogFormat = "xml"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
global:
  log_level: DEBUG
  http_port: 8000

storage:
  backend: minio
  bucket: gallery-test
  endpoint: localhost:9000
  request_timeout: 5s

delivery:
  cdn_domain: cdn.example.com

variants:
  widths: [960, 1600, 480]
  formats: [JPG, avif]

catalog:
  extensions: [JPG, .png]
`

	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Global.LogLevel != TestDebugLevel {
		t.Errorf("Expected LogLevel to be DEBUG, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.HTTPPort != 8000 {
		t.Errorf("Expected HTTPPort to be 8000, got %d", cfg.Global.HTTPPort)
	}
	if cfg.Storage.Backend != "minio" || cfg.Storage.Bucket != TestBucket {
		t.Errorf("Unexpected storage section: %+v", cfg.Storage)
	}
	if cfg.Storage.RequestTimeout != 5*time.Second {
		t.Errorf("Expected RequestTimeout to be 5s, got %v", cfg.Storage.RequestTimeout)
	}
	if cfg.Delivery.CDNDomain != "cdn.example.com" {
		t.Errorf("Expected CDN domain cdn.example.com, got %s", cfg.Delivery.CDNDomain)
	}
	if !reflect.DeepEqual(cfg.Variants.Widths, []int{1600, 960, 480}) {
		t.Errorf("Expected widths sorted descending, got %v", cfg.Variants.Widths)
	}
	if !reflect.DeepEqual(cfg.Catalog.Extensions, []string{".jpg", ".png"}) {
		t.Errorf("Expected normalized extensions, got %v", cfg.Catalog.Extensions)
	}
	// Untouched sections keep their defaults
	if cfg.Cache.MaxEntries != 4096 {
		t.Errorf("Expected MaxEntries to stay 4096, got %d", cfg.Cache.MaxEntries)
	}

	m, err := cfg.Matrix()
	if err != nil {
		t.Fatalf("Matrix() error = %v", err)
	}
	if !reflect.DeepEqual(m.Formats(), []naming.Format{naming.FormatAVIF, naming.FormatJPEG}) {
		t.Errorf("Expected formats in preference order, got %v", m.Formats())
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configFile, []byte("variants: [unclosed"), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err == nil {
		t.Error("Expected error when loading malformed config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	testEnvVars := map[string]string{
		"S3_BUCKET":                      TestBucket,
		"AWS_REGION":                     "eu-west-1",
		"CLOUDFRONT_DOMAIN":              "d123.cloudfront.net",
		"METADATA_PATH":                  `{"a.jpg": {"ISO": 100}}`,
		"PHOTOVARIANT_LOG_LEVEL":         "error",
		"PHOTOVARIANT_WIDTHS":            "800, 2400",
		"PHOTOVARIANT_FORMATS":           "webp,jpeg",
		"PHOTOVARIANT_WORKERS":           "8",
		"PHOTOVARIANT_CACHE_MAX_ENTRIES": "128",
		"PHOTOVARIANT_CATALOG_PREFIX":    "images/",
	}

	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Storage.Bucket != TestBucket {
		t.Errorf("Expected Bucket to be %s, got %s", TestBucket, cfg.Storage.Bucket)
	}
	if cfg.Storage.Region != "eu-west-1" {
		t.Errorf("Expected Region to be eu-west-1, got %s", cfg.Storage.Region)
	}
	if cfg.Delivery.CDNDomain != "d123.cloudfront.net" {
		t.Errorf("Expected CDN domain from env, got %s", cfg.Delivery.CDNDomain)
	}
	if !strings.HasPrefix(cfg.Metadata.Path, "{") {
		t.Errorf("Expected inline metadata document, got %s", cfg.Metadata.Path)
	}
	if cfg.Global.LogLevel != "ERROR" {
		t.Errorf("Expected LogLevel to be ERROR, got %s", cfg.Global.LogLevel)
	}
	if !reflect.DeepEqual(cfg.Variants.Widths, []int{2400, 800}) {
		t.Errorf("Expected widths [2400 800], got %v", cfg.Variants.Widths)
	}
	if !reflect.DeepEqual(cfg.Variants.Formats, []string{"webp", "jpeg"}) {
		t.Errorf("Expected formats [webp jpeg], got %v", cfg.Variants.Formats)
	}
	if cfg.Variants.Workers != 8 {
		t.Errorf("Expected Workers to be 8, got %d", cfg.Variants.Workers)
	}
	if cfg.Cache.MaxEntries != 128 {
		t.Errorf("Expected MaxEntries to be 128, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Catalog.Prefix != "images/" {
		t.Errorf("Expected catalog prefix images/, got %s", cfg.Catalog.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after env load error = %v", err)
	}
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("PHOTOVARIANT_WIDTHS", "1600,wide")

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric width")
	}
}

func TestSaveToFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "subdir", "saved_config.yaml")

	cfg := NewDefault()
	cfg.Global.LogLevel = TestDebugLevel
	cfg.Storage.Bucket = TestBucket

	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	newCfg := NewDefault()
	if err := newCfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if newCfg.Global.LogLevel != TestDebugLevel {
		t.Errorf("Expected LogLevel to be DEBUG, got %s", newCfg.Global.LogLevel)
	}
	if newCfg.Storage.Bucket != TestBucket {
		t.Errorf("Expected Bucket to be %s, got %s", TestBucket, newCfg.Storage.Bucket)
	}
	if newCfg.Storage.RequestTimeout != 30*time.Second {
		t.Errorf("Expected RequestTimeout to round-trip, got %v", newCfg.Storage.RequestTimeout)
	}
}

func TestQualityFor(t *testing.T) {
	cfg := NewDefault()
	cases := map[naming.Format]int{
		naming.FormatAVIF: 40,
		naming.FormatWEBP: 80,
		naming.FormatJPEG: 80,
	}
	for f, want := range cases {
		if got := cfg.QualityFor(f); got != want {
			t.Errorf("QualityFor(%s) = %d, want %d", f, got, want)
		}
	}
}

func TestParseWidths(t *testing.T) {
	got, err := ParseWidths(" 1600 ,960,, ")
	if err != nil {
		t.Fatalf("ParseWidths() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int{1600, 960}) {
		t.Errorf("ParseWidths() = %v", got)
	}
}
