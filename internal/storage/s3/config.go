package s3

import "time"

// Config represents S3 backend configuration
type Config struct {
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	ForcePathStyle bool          `yaml:"force_path_style"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// SkipHealthCheck skips the HeadBucket call in NewBackend.
	SkipHealthCheck bool `yaml:"-"`
}

// NewDefaultConfig creates a default S3 configuration
func NewDefaultConfig() *Config {
	return &Config{
		Region:         "us-east-2",
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
	}
}
