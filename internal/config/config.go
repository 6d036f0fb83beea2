package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/photovariant/photovariant/internal/naming"
)

// DefaultCacheControl is the directive stored with every derived variant
const DefaultCacheControl = "public, max-age=31536000, immutable"

// Configuration represents the complete application configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Storage    StorageConfig    `yaml:"storage"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Variants   VariantsConfig   `yaml:"variants"`
	Cache      CacheConfig      `yaml:"cache"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
	HTTPPort    int    `yaml:"http_port"`
}

// StorageConfig selects and configures the object store
type StorageConfig struct {
	Backend         string        `yaml:"backend"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	ForcePathStyle  bool          `yaml:"force_path_style"`
	MaxRetries      int           `yaml:"max_retries"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	UseSSL          bool          `yaml:"use_ssl"`
}

// DeliveryConfig controls public URL construction
type DeliveryConfig struct {
	CDNDomain string `yaml:"cdn_domain"`
}

// VariantsConfig is the generation matrix and encoder settings
type VariantsConfig struct {
	Widths         []int         `yaml:"widths"`
	Formats        []string      `yaml:"formats"`
	Quality        QualityConfig `yaml:"quality"`
	Workers        int           `yaml:"workers"`
	UploadAttempts int           `yaml:"upload_attempts"`
	CacheControl   string        `yaml:"cache_control"`
	// FailFastAfter consecutive failed uploads pause writes; negative disables
	FailFastAfter int `yaml:"fail_fast_after"`
}

// QualityConfig holds the lossy quality per format
type QualityConfig struct {
	JPEG int `yaml:"jpeg"`
	WEBP int `yaml:"webp"`
	AVIF int `yaml:"avif"`
}

// CacheConfig sizes the existence cache
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	Shards     int `yaml:"shards"`
}

// CatalogConfig controls which keys are listed as originals
type CatalogConfig struct {
	Prefix           string   `yaml:"prefix"`
	Extensions       []string `yaml:"extensions"`
	SourceExtensions []string `yaml:"source_extensions"`
}

// MetadataConfig locates the metadata document
type MetadataConfig struct {
	// Path is a file path or an inline JSON document
	Path string `yaml:"path"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	LogFormat      string `yaml:"log_format"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			LogFile:     "",
			MetricsPort: 9090,
			HTTPPort:    8080,
		},
		Storage: StorageConfig{
			Backend:        "s3",
			Bucket:         "fuji-images",
			Region:         "us-east-2",
			MaxRetries:     3,
			RequestTimeout: 30 * time.Second,
			UseSSL:         true,
		},
		Variants: VariantsConfig{
			Widths:  []int{1600, 960},
			Formats: []string{"avif", "webp", "jpeg"},
			Quality: QualityConfig{
				JPEG: 80,
				WEBP: 80,
				AVIF: 40,
			},
			Workers:        4,
			UploadAttempts: 3,
			CacheControl:   DefaultCacheControl,
			FailFastAfter:  5,
		},
		Cache: CacheConfig{
			MaxEntries: 4096,
			Shards:     16,
		},
		Catalog: CatalogConfig{
			Extensions:       []string{".jpg", ".jpeg", ".png", ".webp", ".avif"},
			SourceExtensions: []string{".jpg", ".jpeg", ".png"},
		},
		Metadata: MetadataConfig{
			Path: "metadata/exif_metadata.json",
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
			LogFormat:      "text",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.normalize()
	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Names shared with the gallery deployments
	if val := os.Getenv("S3_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		c.Storage.Region = val
	}
	if val := os.Getenv("CLOUDFRONT_DOMAIN"); val != "" {
		c.Delivery.CDNDomain = val
	}
	if val := os.Getenv("METADATA_PATH"); val != "" {
		c.Metadata.Path = val
	}

	if val := os.Getenv("PHOTOVARIANT_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv("PHOTOVARIANT_STORAGE_BACKEND"); val != "" {
		c.Storage.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("PHOTOVARIANT_ENDPOINT"); val != "" {
		c.Storage.Endpoint = val
	}
	if val := os.Getenv("PHOTOVARIANT_WIDTHS"); val != "" {
		widths, err := ParseWidths(val)
		if err != nil {
			return fmt.Errorf("PHOTOVARIANT_WIDTHS: %w", err)
		}
		c.Variants.Widths = widths
	}
	if val := os.Getenv("PHOTOVARIANT_FORMATS"); val != "" {
		c.Variants.Formats = SplitList(val)
	}
	if val := os.Getenv("PHOTOVARIANT_WORKERS"); val != "" {
		workers, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PHOTOVARIANT_WORKERS: %w", err)
		}
		c.Variants.Workers = workers
	}
	if val := os.Getenv("PHOTOVARIANT_CACHE_MAX_ENTRIES"); val != "" {
		entries, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PHOTOVARIANT_CACHE_MAX_ENTRIES: %w", err)
		}
		c.Cache.MaxEntries = entries
	}
	if val := os.Getenv("PHOTOVARIANT_CATALOG_PREFIX"); val != "" {
		c.Catalog.Prefix = val
	}

	c.normalize()
	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage.bucket must not be empty")
	}
	if strings.TrimSpace(c.Storage.Region) == "" {
		return fmt.Errorf("storage.region must not be empty")
	}

	switch c.Storage.Backend {
	case "s3", "minio":
	default:
		return fmt.Errorf("invalid storage.backend: %s (must be one of: s3, minio)", c.Storage.Backend)
	}
	if c.Storage.Backend == "minio" && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required for the minio backend")
	}
	if c.Storage.MaxRetries < 0 {
		return fmt.Errorf("storage.max_retries must not be negative")
	}

	if _, err := c.Matrix(); err != nil {
		return fmt.Errorf("invalid variants: %w", err)
	}

	for name, q := range map[string]int{"jpeg": c.Variants.Quality.JPEG, "webp": c.Variants.Quality.WEBP, "avif": c.Variants.Quality.AVIF} {
		if q < 1 || q > 100 {
			return fmt.Errorf("variants.quality.%s must be between 1 and 100, got %d", name, q)
		}
	}
	if c.Variants.Workers <= 0 {
		return fmt.Errorf("variants.workers must be greater than 0")
	}
	if c.Variants.UploadAttempts <= 0 {
		return fmt.Errorf("variants.upload_attempts must be greater than 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be greater than 0")
	}
	if c.Cache.Shards <= 0 {
		return fmt.Errorf("cache.shards must be greater than 0")
	}

	if c.Monitoring.MetricsEnabled && c.Global.MetricsPort == c.Global.HTTPPort {
		return fmt.Errorf("metrics_port and http_port cannot be the same")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	switch c.Monitoring.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (must be one of: text, json)", c.Monitoring.LogFormat)
	}

	return nil
}

// Matrix builds the generation matrix from the variants section
func (c *Configuration) Matrix() (naming.Matrix, error) {
	return naming.ParseMatrix(c.Variants.Widths, c.Variants.Formats)
}

// QualityFor returns the configured quality for a format
func (c *Configuration) QualityFor(f naming.Format) int {
	switch f {
	case naming.FormatAVIF:
		return c.Variants.Quality.AVIF
	case naming.FormatWEBP:
		return c.Variants.Quality.WEBP
	default:
		return c.Variants.Quality.JPEG
	}
}

func (c *Configuration) normalize() {
	sort.Sort(sort.Reverse(sort.IntSlice(c.Variants.Widths)))
	for i, f := range c.Variants.Formats {
		c.Variants.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	c.Catalog.Extensions = normalizeExtensions(c.Catalog.Extensions)
	c.Catalog.SourceExtensions = normalizeExtensions(c.Catalog.SourceExtensions)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// ParseWidths parses a comma separated width list such as "1600,960"
func ParseWidths(s string) ([]int, error) {
	parts := SplitList(s)
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid width %q", p)
		}
		widths = append(widths, w)
	}
	return widths, nil
}

// SplitList splits a comma separated list, dropping empty items
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
