package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codebuildervaibhav/voice-to-text/internal/awsutil"
	"github.com/codebuildervaibhav/voice-to-text/internal/cleanup"
	"github.com/codebuildervaibhav/voice-to-text/internal/config"
	"github.com/codebuildervaibhav/voice-to-text/internal/handlers"
	"github.com/codebuildervaibhav/voice-to-text/internal/metrics"
	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/transcription"
)

func main() {
	defaultConfig := os.Getenv("VTT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Keep recent log lines for the /logs endpoint
	logBuffer := handlers.NewLogBuffer(1000)
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")

	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	scratch, err := storage.NewScratch(cfg.Storage.TempDir)
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	// AWS clients share one session
	sess, err := awsutil.NewSession(cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize AWS: %v", err)
	}
	objects := storage.NewObjectStore(sess)
	service := transcription.NewAWSService(sess)
	log.Printf("Using bucket %s in %s", cfg.AWS.Bucket, cfg.AWS.Region)

	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive mirror (optional)
	var mirror queue.TranscriptMirror
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); cfg.GoogleDrive.CredentialsFile != "" && err == nil {
		driveClient, err := storage.NewDriveClient(context.Background(),
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
		} else {
			mirror = driveClient
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	workerPool := queue.NewWorkerPool(queue.PoolConfig{
		Workers:          cfg.Workers.Count,
		QueueSize:        cfg.Workers.QueueSize,
		Bucket:           cfg.AWS.Bucket,
		InputPrefix:      cfg.AWS.InputPrefix,
		ResultBucket:     cfg.AWS.ResultBucket(),
		OutputPrefix:     cfg.AWS.OutputPrefix,
		DeleteInputAfter: cfg.AWS.DeleteInputAfter,
		LanguageCode:     cfg.Transcribe.LanguageCode,
		PollInterval:     cfg.Transcribe.PollInterval(),
		MaxPollAttempts:  cfg.Transcribe.MaxPollAttempts,
	}, queue.Dependencies{
		Objects: objects,
		Service: service,
		Fetcher: &transcription.Fetcher{Objects: objects},
		Names:   transcription.NewNameGenerator(cfg.Transcribe.JobNamePrefix),
		Scratch: scratch,
		Local:   localStorage,
		Mirror:  mirror,
		DB:      db,
		Metrics: m,
	})
	workerPool.Start()
	defer workerPool.Stop()

	cleanupScheduler := cleanup.NewScheduler(
		scratch.Dir(),
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit(cfg.Limits.MaxFileSizeMB),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	uploadHandler := handlers.NewUploadHandler(workerPool, scratch, cfg.Limits.MaxFileSizeMB)
	gdriveHandler := handlers.NewGDriveHandler(workerPool, scratch, cfg.Limits.MaxFileSizeMB)
	streamHandler := handlers.NewStreamHandler(workerPool, scratch, cfg.Limits.MaxFileSizeMB)
	jobsHandler := handlers.NewJobsHandler(workerPool)
	historyHandler := handlers.NewHistoryHandler(db)

	app.Get("/", handlers.Index)
	app.Get("/health", handlers.Health)
	app.Get("/logs", handlers.Logs(logBuffer))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	app.Post("/upload", uploadHandler.Handle)
	app.Post("/gdrive", gdriveHandler.Handle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stream", websocket.New(streamHandler.Handle))

	app.Get("/jobs/:id", jobsHandler.Status)
	app.Delete("/jobs/:id", jobsHandler.Cancel)
	app.Get("/jobs/:id/transcript.txt", jobsHandler.Download)

	app.Get("/transcripts", historyHandler.List)
	app.Get("/transcripts/:id/text", historyHandler.Text)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   GET    /                         - Web UI")
	log.Println("   POST   /upload                   - Upload audio file")
	log.Println("   POST   /gdrive                   - Process Google Drive link")
	log.Println("   GET    /ws/stream                - WebSocket audio streaming")
	log.Println("   GET    /jobs/:id                 - Job status")
	log.Println("   DELETE /jobs/:id                 - Cancel job")
	log.Println("   GET    /jobs/:id/transcript.txt  - Download transcript")
	log.Println("   GET    /transcripts              - List all transcripts")
	log.Println("   GET    /transcripts/:id/text     - Get transcript text")
	log.Println("   GET    /logs                     - View server logs")
	log.Println("   GET    /metrics                  - Prometheus metrics")
	log.Println("   GET    /health                   - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Printf("Server failed: %v", err)
	}
}

// bodyLimit leaves room for multipart framing so a file of exactly
// maxSizeMB reaches the handler's own size check.
func bodyLimit(maxSizeMB int) int {
	return (maxSizeMB + 1) * 1024 * 1024
}
