package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	AWS         AWSConfig         `yaml:"aws"`
	Transcribe  TranscribeConfig  `yaml:"transcribe"`
	Workers     WorkersConfig     `yaml:"workers"`
	Storage     StorageConfig     `yaml:"storage"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	GoogleDrive GoogleDriveConfig `yaml:"google_drive"`
	Limits      LimitsConfig      `yaml:"limits"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// AWSConfig holds credentials and bucket layout. Credentials left empty fall
// back to the SDK's default provider chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	Bucket      string `yaml:"bucket"`
	InputPrefix string `yaml:"input_prefix"`

	// OutputBucket receives the result documents. Defaults to Bucket.
	OutputBucket string `yaml:"output_bucket"`
	OutputPrefix string `yaml:"output_prefix"`

	// ServiceManagedOutput leaves the result in the service's own bucket and
	// fetches it through the presigned transcript URI.
	ServiceManagedOutput bool `yaml:"service_managed_output"`
	DeleteInputAfter     bool `yaml:"delete_input_after"`
}

type TranscribeConfig struct {
	LanguageCode        string `yaml:"language_code"`
	JobNamePrefix       string `yaml:"job_name_prefix"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int    `yaml:"max_poll_attempts"`
}

type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type StorageConfig struct {
	TempDir   string `yaml:"temp_dir"`
	OutputDir string `yaml:"output_dir"`
	Database  string `yaml:"database"`
}

type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	MaxAgeHours     int `yaml:"max_age_hours"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderName      string `yaml:"folder_name"`
}

type LimitsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// PollInterval returns the delay between job status checks.
func (t TranscribeConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSeconds) * time.Second
}

// ResultBucket returns the bucket the service writes results to, or "" when
// the service manages the output location itself.
func (a AWSConfig) ResultBucket() string {
	if a.ServiceManagedOutput {
		return ""
	}
	if a.OutputBucket != "" {
		return a.OutputBucket
	}
	return a.Bucket
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		AWS: AWSConfig{
			Region:       "us-east-1",
			InputPrefix:  "recordings/",
			OutputPrefix: "transcriptions/",
		},
		Transcribe: TranscribeConfig{
			LanguageCode:        "en-US",
			JobNamePrefix:       "TranscriptionJob",
			PollIntervalSeconds: 5,
			MaxPollAttempts:     360,
		},
		Workers: WorkersConfig{
			Count:     2,
			QueueSize: 100,
		},
		Storage: StorageConfig{
			TempDir:   "temp",
			OutputDir: "outputs",
			Database:  "transcripts.db",
		},
		Cleanup: CleanupConfig{
			IntervalMinutes: 30,
			MaxAgeHours:     6,
		},
		GoogleDrive: GoogleDriveConfig{
			CredentialsFile: "config/credentials.json",
			TokenFile:       "config/token.json",
			FolderName:      "Transcripts",
		},
		Limits: LimitsConfig{
			MaxFileSizeMB: 100,
		},
	}
}

// Load reads the YAML file at path (skipped when empty), loads a .env file if
// one exists, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Host, "VTT_HOST")
	overrideInt(&cfg.Server.Port, "VTT_PORT")

	overrideString(&cfg.AWS.Region, "AWS_REGION")
	overrideString(&cfg.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	overrideString(&cfg.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	overrideString(&cfg.AWS.SessionToken, "AWS_SESSION_TOKEN")
	overrideString(&cfg.AWS.Bucket, "VTT_BUCKET")
	overrideString(&cfg.AWS.InputPrefix, "VTT_INPUT_PREFIX")
	overrideString(&cfg.AWS.OutputBucket, "VTT_OUTPUT_BUCKET")
	overrideString(&cfg.AWS.OutputPrefix, "VTT_OUTPUT_KEY_PREFIX")
	overrideBool(&cfg.AWS.ServiceManagedOutput, "VTT_SERVICE_MANAGED_OUTPUT")
	overrideBool(&cfg.AWS.DeleteInputAfter, "VTT_DELETE_INPUT_AFTER")

	overrideString(&cfg.Transcribe.LanguageCode, "VTT_LANGUAGE")
	overrideString(&cfg.Transcribe.JobNamePrefix, "VTT_JOB_NAME_PREFIX")
	overrideInt(&cfg.Transcribe.PollIntervalSeconds, "VTT_POLL_INTERVAL_SECONDS")
	overrideInt(&cfg.Transcribe.MaxPollAttempts, "VTT_MAX_POLL_ATTEMPTS")

	overrideInt(&cfg.Workers.Count, "VTT_WORKERS")
	overrideString(&cfg.Storage.TempDir, "VTT_TEMP_DIR")
	overrideString(&cfg.Storage.OutputDir, "VTT_OUTPUT_DIR")
	overrideString(&cfg.Storage.Database, "VTT_DATABASE")
	overrideInt(&cfg.Limits.MaxFileSizeMB, "VTT_MAX_FILE_SIZE_MB")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

// Validate checks every section and reports the first problem found
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.AWS.Region == "" {
		return errors.New("aws.region is required")
	}
	if c.AWS.Bucket == "" {
		return errors.New("aws.bucket is required")
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return errors.New("aws.access_key_id and aws.secret_access_key must be set together")
	}
	if c.Transcribe.LanguageCode == "" {
		return errors.New("transcribe.language_code is required")
	}
	if c.Transcribe.JobNamePrefix == "" {
		return errors.New("transcribe.job_name_prefix is required")
	}
	if c.Transcribe.PollIntervalSeconds <= 0 {
		return errors.New("transcribe.poll_interval_seconds must be positive")
	}
	if c.Transcribe.MaxPollAttempts <= 0 {
		return errors.New("transcribe.max_poll_attempts must be positive")
	}
	if c.Workers.Count <= 0 {
		return errors.New("workers.count must be positive")
	}
	if c.Workers.QueueSize <= 0 {
		return errors.New("workers.queue_size must be positive")
	}
	if c.Storage.TempDir == "" || c.Storage.OutputDir == "" {
		return errors.New("storage.temp_dir and storage.output_dir are required")
	}
	if c.Cleanup.IntervalMinutes <= 0 || c.Cleanup.MaxAgeHours <= 0 {
		return errors.New("cleanup.interval_minutes and cleanup.max_age_hours must be positive")
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		return errors.New("limits.max_file_size_mb must be positive")
	}
	return nil
}
