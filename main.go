package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mahirjain10/video-watermark/config"
	"github.com/mahirjain10/video-watermark/internal/aws"
	"github.com/mahirjain10/video-watermark/internal/cloudinary"
	"github.com/mahirjain10/video-watermark/internal/flow"
	"github.com/mahirjain10/video-watermark/internal/logger"
	"github.com/mahirjain10/video-watermark/internal/queue"
	"github.com/mahirjain10/video-watermark/internal/queue/handlers"
	"github.com/mahirjain10/video-watermark/internal/telemetry"
	"github.com/mahirjain10/video-watermark/internal/transfer"
	"github.com/mahirjain10/video-watermark/internal/transformation"
	"github.com/mahirjain10/video-watermark/internal/types"
	"github.com/mahirjain10/video-watermark/internal/utils"
)

type App struct {
	config     *config.Config
	logger     zerolog.Logger
	controller *flow.Controller
}

// loadConfig reads the environment with a bootstrap logger, then rebuilds
// the logger from the loaded settings.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	bootLogger := logger.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	envConfig, err := config.InitializeEnvs(bootLogger)
	if err != nil {
		return nil, bootLogger, fmt.Errorf("failed to initialize environment config: %w", err)
	}
	return envConfig, logger.NewLogger(envConfig.AppEnv, envConfig.LogLevel), nil
}

// NewApp wires a controller that reports through notifier.
func NewApp(ctx context.Context, envConfig *config.Config, log zerolog.Logger, notifier flow.Notifier) (*App, error) {
	httpClient := &http.Client{}

	var archiver flow.Archiver
	if envConfig.AwsBucketName != "" {
		awsConfig, err := config.InitializeAws(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
		}
		archiver = aws.NewS3Service(aws.NewS3Client(awsConfig), envConfig.AwsBucketName, log)
		log.Info().Str("bucket", envConfig.AwsBucketName).Msg("archiving outputs to S3")
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if envConfig.MetricsPort > 0 {
		telemetry.Expose(envConfig.MetricsPort, log)
	}

	controller, err := flow.NewController(flow.Options{
		Permission:  flow.DirPermission{Dir: envConfig.DownloadDir, Logger: log},
		Credentials: config.EnvCredentials{File: envConfig.CredentialsFile, Logger: log},
		Uploader: cloudinary.NewUploader(cloudinary.Options{
			APIBase:    envConfig.CloudinaryAPIBase,
			Timeout:    envConfig.UploadTimeout,
			HTTPClient: httpClient,
			Logger:     log,
		}),
		Prober:         transfer.NewProber(httpClient, envConfig.ProbeTimeout, log),
		Downloader:     transfer.NewDownloader(httpClient, 500*time.Millisecond, log),
		Preparer:       transformation.NewWatermarkPreparer(envConfig.DownloadDir, envConfig.WatermarkMaxWidth, envConfig.WatermarkMaxHeight),
		Archiver:       archiver,
		Notifier:       notifier,
		Metrics:        metrics,
		DeliveryHost:   envConfig.CloudinaryDeliveryBase,
		DownloadDir:    envConfig.DownloadDir,
		OutputFileName: envConfig.OutputFileName,
		ReadTimeout:    envConfig.DownloadReadTimeout,
		ConnectTimeout: envConfig.DownloadConnectTimeout,
		Attempts:       envConfig.TransferAttempts,
		RetryDelay:     envConfig.RetryDelay,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	return &App{config: envConfig, logger: log, controller: controller}, nil
}

func runAction(c *cli.Context) error {
	envConfig, log, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := NewApp(c.Context, envConfig, log, flow.LogNotifier{Logger: log})
	if err != nil {
		return err
	}

	var steps []types.TransformStep
	if raw := c.String("steps"); raw != "" {
		if err := utils.ParseJSON([]byte(raw), &steps); err != nil {
			return fmt.Errorf("invalid --steps: %w", err)
		}
	}
	job := flow.Job{
		ID:             c.String("id"),
		VideoRef:       c.String("video"),
		WatermarkRef:   c.String("watermark"),
		WatermarkText:  c.String("text"),
		Steps:          steps,
		OutputFileName: c.String("output"),
		Progress:       flow.ProgressLogger{Logger: log},
	}
	outcome, err := app.controller.Start(c.Context, job)
	if err != nil {
		return err
	}
	fmt.Println(outcome.Path)
	if outcome.ArchiveURL != "" {
		fmt.Println(outcome.ArchiveURL)
	}
	return nil
}

func urlAction(c *cli.Context) error {
	text := c.String("text")
	if text == "" {
		text = flow.DefaultWatermarkText
	}
	var steps []types.TransformStep
	if raw := c.String("steps"); raw != "" {
		if err := utils.ParseJSON([]byte(raw), &steps); err != nil {
			return fmt.Errorf("invalid --steps: %w", err)
		}
	}
	steps = append(steps, transformation.WatermarkSteps(text, c.String("image-id"))...)
	fmt.Println(transformation.BuildURL(
		transformation.DeliveryBase(c.String("delivery-host"), c.String("cloud-name"), types.VIDEO),
		steps,
		c.String("video-id"),
	))
	return nil
}

func workerAction(c *cli.Context) error {
	envConfig, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := envConfig.RequireQueue(); err != nil {
		return err
	}

	conn, err := queue.NewRabbitMQClient(envConfig.RabbitMqURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	statusCh, err := queue.NewChannel(conn)
	if err != nil {
		return err
	}
	defer statusCh.Close()
	if err := queue.DeclareStatusTopology(statusCh, envConfig.RabbitMqStatusQueue); err != nil {
		return err
	}

	app, err := NewApp(c.Context, envConfig, log, queue.NewStatusPublisher(statusCh, log))
	if err != nil {
		return err
	}
	log.Info().Str("queue", envConfig.RabbitMqJobQueue).Msg("application initialized successfully")

	service := queue.NewRabbitMqService(
		envConfig.RabbitMqURL,
		envConfig.RabbitMqJobQueue,
		handlers.NewWatermarkHandler(app.controller, log),
		log,
	)
	return service.Start(c.Context)
}

func main() {
	app := cli.App{
		Name:        "video-watermark",
		Description: "upload a video and a watermark, render the overlay remotely and download the result",
		Commands: []*cli.Command{{
			Name:        "run",
			Description: "run one watermark flow and print the saved path",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "video", Usage: "local path or URL of the video", Required: true},
				&cli.StringFlag{Name: "watermark", Usage: "local path or URL of the watermark image", Required: true},
				&cli.StringFlag{Name: "text", Usage: "watermark text", Value: flow.DefaultWatermarkText},
				&cli.StringFlag{Name: "output", Usage: "output file name inside DOWNLOAD_DIR"},
				&cli.StringFlag{Name: "id", Usage: "job id used in logs and the archive key"},
				&cli.StringFlag{Name: "steps", Usage: "JSON array of transform steps applied before the watermark"},
			},
			Action: runAction,
		}, {
			Name:        "url",
			Description: "print the transformed delivery URL without uploading anything",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "cloud-name", EnvVars: []string{"CLOUD_NAME"}, Required: true},
				&cli.StringFlag{Name: "video-id", Usage: "public id of the uploaded video", Required: true},
				&cli.StringFlag{Name: "image-id", Usage: "public id of the uploaded watermark", Required: true},
				&cli.StringFlag{Name: "text", Value: flow.DefaultWatermarkText},
				&cli.StringFlag{Name: "steps", Usage: "JSON array of transform steps applied before the watermark"},
				&cli.StringFlag{Name: "delivery-host", EnvVars: []string{"CLOUDINARY_DELIVERY_BASE"}},
			},
			Action: urlAction,
		}, {
			Name:        "worker",
			Description: "consume watermark jobs from RabbitMQ and publish their status",
			Action:      workerAction,
		}},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
