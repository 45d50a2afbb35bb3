package config

import (
	"fmt"
	"os"
	"time"

	godotenv "github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DownloadDir     string `envconfig:"DOWNLOAD_DIR" default:"downloads"`
	OutputFileName  string `envconfig:"OUTPUT_FILE_NAME" default:"final_watermarked.mp4"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE" default:".env"`

	UploadTimeout          time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"60s"`
	ProbeTimeout           time.Duration `envconfig:"PROBE_TIMEOUT" default:"15s"`
	DownloadReadTimeout    time.Duration `envconfig:"DOWNLOAD_READ_TIMEOUT" default:"60s"`
	DownloadConnectTimeout time.Duration `envconfig:"DOWNLOAD_CONNECT_TIMEOUT" default:"30s"`
	TransferAttempts       int           `envconfig:"TRANSFER_ATTEMPTS" default:"3"`
	RetryDelay             time.Duration `envconfig:"RETRY_DELAY" default:"2s"`

	CloudinaryAPIBase      string `envconfig:"CLOUDINARY_API_BASE" default:"https://api.cloudinary.com/v1_1"`
	CloudinaryDeliveryBase string `envconfig:"CLOUDINARY_DELIVERY_BASE" default:"https://res.cloudinary.com"`

	WatermarkMaxWidth  int `envconfig:"WATERMARK_MAX_WIDTH" default:"300"`
	WatermarkMaxHeight int `envconfig:"WATERMARK_MAX_HEIGHT" default:"200"`

	RabbitMqURL         string `envconfig:"RABBITMQ_URL"`
	RabbitMqJobQueue    string `envconfig:"RABBITMQ_JOB_QUEUE" default:"watermark_queue"`
	RabbitMqStatusQueue string `envconfig:"RABBITMQ_STATUS_QUEUE" default:"status_queue"`

	AwsBucketName string `envconfig:"AWS_BUCKET_NAME"`
	MetricsPort   int    `envconfig:"METRICS_PORT" default:"0"`
}

// InitializeEnvs loads the .env file matching APP_ENV into the process
// environment and then reads Config from it.
func InitializeEnvs(logger zerolog.Logger) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working dir: %w", err)
	}
	logger.Debug().Str("dir", wd).Msg("working dir")

	loadEnvFiles(logger, os.Getenv("APP_ENV"))

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadEnvFiles(logger zerolog.Logger, appEnv string) {
	switch appEnv {
	case "docker":
		if err := godotenv.Overload(".env.docker"); err == nil {
			logger.Info().Msg("Loaded .env.docker")
		} else {
			logger.Info().Msg(".env.docker not found, using existing environment")
		}
	case "dev", "":
		if err := godotenv.Overload(".env.dev"); err == nil {
			logger.Info().Msg("Loaded .env.dev")
		} else if err := godotenv.Overload(".env"); err == nil {
			logger.Info().Msg("Loaded .env")
		} else {
			logger.Info().Msg("No .env.dev or .env found, using system environment variables")
		}
	default:
		fname := ".env." + appEnv
		if err := godotenv.Overload(fname); err == nil {
			logger.Info().Msgf("Loaded %s", fname)
		} else if err := godotenv.Overload(".env"); err == nil {
			logger.Info().Msg("Loaded .env")
		} else {
			logger.Info().Msgf("No %s or .env found, using system environment variables", fname)
		}
	}
}

func (c *Config) Validate() error {
	if c.DownloadDir == "" || c.OutputFileName == "" {
		return fmt.Errorf("DOWNLOAD_DIR and OUTPUT_FILE_NAME must not be empty")
	}
	if c.TransferAttempts < 1 {
		return fmt.Errorf("TRANSFER_ATTEMPTS must be at least 1, got %d", c.TransferAttempts)
	}
	return nil
}

// RequireQueue checks the settings the queue worker cannot run without.
func (c *Config) RequireQueue() error {
	if c.RabbitMqURL == "" || c.RabbitMqJobQueue == "" || c.RabbitMqStatusQueue == "" {
		return fmt.Errorf("RABBITMQ_URL or RABBITMQ_JOB_QUEUE or RABBITMQ_STATUS_QUEUE is missing")
	}
	return nil
}
