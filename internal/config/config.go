package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
	BodyLimitMB    int    `mapstructure:"body_limit_mb"`
}

type StorageConf struct {
	UploadDir    string `mapstructure:"upload_dir" validate:"required"`
	ConvertedDir string `mapstructure:"converted_dir" validate:"required"`
}

type ConversionConf struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SideTimeoutSec int    `mapstructure:"side_timeout_seconds"`
	PandocBin      string `mapstructure:"pandoc_bin"`
	FFmpegBin      string `mapstructure:"ffmpeg_bin"`
	PdftoppmBin    string `mapstructure:"pdftoppm_bin"`
	PDFDPI         int    `mapstructure:"pdf_dpi"`
	JPEGQuality    int    `mapstructure:"jpeg_quality" validate:"min=1,max=100"`
}

type BreakerConf struct {
	MaxFailures int `mapstructure:"max_failures"`
	TimeoutSec  int `mapstructure:"timeout_seconds"`
}

type RateLimitConf struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConf struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	App        AppConf        `mapstructure:"app"`
	Storage    StorageConf    `mapstructure:"storage"`
	Conversion ConversionConf `mapstructure:"conversion"`
	Breaker    BreakerConf    `mapstructure:"breaker"`
	RateLimit  RateLimitConf  `mapstructure:"rate_limit"`
	Redis      RedisConf      `mapstructure:"redis"`
	JWT        JWTConf        `mapstructure:"jwt"`
	AWS        AWSConf        `mapstructure:"aws"`
	S3         S3Conf         `mapstructure:"s3"`
	Mongo      MongoConf      `mapstructure:"mongodb"`
	Kafka      KafkaConf      `mapstructure:"kafka"`
	Metrics    MetricsConf    `mapstructure:"metrics"`

	// derived
	ShutdownTimeout   time.Duration
	ConversionTimeout time.Duration
	SideTimeout       time.Duration
	BreakerTimeout    time.Duration
}

// Load reads the YAML file at path, then lets CONVERT_* environment variables
// (optionally from a .env file) override any key, e.g. CONVERT_APP_PORT.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("CONVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the YAML file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 4000)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.body_limit_mb", 100)
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.converted_dir", "converted")
	v.SetDefault("conversion.timeout_seconds", 300)
	v.SetDefault("conversion.side_timeout_seconds", 3)
	v.SetDefault("conversion.pandoc_bin", "pandoc")
	v.SetDefault("conversion.ffmpeg_bin", "ffmpeg")
	v.SetDefault("conversion.pdftoppm_bin", "pdftoppm")
	v.SetDefault("conversion.pdf_dpi", 150)
	v.SetDefault("conversion.jpeg_quality", 90)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.timeout_seconds", 30)
	v.SetDefault("rate_limit.per_minute", 0)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "convert:rl")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.key_prefix", "converted")
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "convert")
	v.SetDefault("mongodb.collection", "conversions")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "conversion-events")
	v.SetDefault("metrics.enabled", true)
}

func (c *Config) applyDefaults() {
	if c.App.ShutdownSecond == 0 {
		c.App.ShutdownSecond = 15
	}
	if c.App.BodyLimitMB == 0 {
		c.App.BodyLimitMB = 100
	}
	if c.Conversion.TimeoutSeconds == 0 {
		c.Conversion.TimeoutSeconds = 300
	}
	if c.Conversion.SideTimeoutSec == 0 {
		c.Conversion.SideTimeoutSec = 3
	}
	if c.Conversion.PDFDPI == 0 {
		c.Conversion.PDFDPI = 150
	}
	if c.Conversion.JPEGQuality == 0 {
		c.Conversion.JPEGQuality = 90
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.TimeoutSec == 0 {
		c.Breaker.TimeoutSec = 30
	}
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSecond) * time.Second
	c.ConversionTimeout = time.Duration(c.Conversion.TimeoutSeconds) * time.Second
	c.SideTimeout = time.Duration(c.Conversion.SideTimeoutSec) * time.Second
	c.BreakerTimeout = time.Duration(c.Breaker.TimeoutSec) * time.Second
}

var validate = newValidator()

// newValidator reports fields by their YAML key path, e.g. app.port.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		msgs := make([]string, len(ve))
		for i, fe := range ve {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			switch fe.Tag() {
			case "required":
				msgs[i] = fmt.Sprintf("%s is required", field)
			default:
				msgs[i] = fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
			}
		}
		return errors.New("invalid config: " + strings.Join(msgs, "; "))
	}
	if c.S3.Enabled && c.AWS.Bucket == "" {
		return errors.New("aws.bucket required when s3.enabled")
	}
	return nil
}

func (c *Config) Development() bool { return c.App.Env == "development" }
