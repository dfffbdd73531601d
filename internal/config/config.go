// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for all databases (always absolute)
	ManifestPath string // Path where the serving-mesh model config is written
	TrackerURL   string // Experiment tracker REST endpoint (MLflow-style)
	TrackerModel string // Registered model name to sync from the tracker
	MeshURL      string // Serving-mesh admin API endpoint
	MeshHost     string // Host header for mesh requests (ingress routing)
	MeshDeploy   string // Deployment name on the serving mesh
	LogLevel     string
	Port         int
	DevMode      bool
	Gate         GateConfig
	Observation  ObservationConfig
	Backup       *BackupConfig
}

// GateConfig holds promotion gate policy values.
// These are the thresholds of the decision rule; they are injected into the
// gate rather than read from globals so tests and callers can vary them.
type GateConfig struct {
	MinRecallImprovement float64 // Relative recall improvement required to pass (default 0.05)
	PrecisionRetention   float64 // Candidate precision must be >= baseline * this (default 0.95)
	InitialBaselinePct   int     // Traffic weight for baseline on first promotion (default 80)
	InitialCandidatePct  int     // Traffic weight for candidate on first promotion (default 20)
}

// ObservationConfig holds online validation configuration
type ObservationConfig struct {
	LookbackMinutes int     // Window for production metric computation (default 60)
	MinPrecision    float64 // Alert threshold (default 0.85)
	MinRecall       float64 // Alert threshold (default 0.75)
}

// BackupConfig holds S3-compatible backup storage configuration
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint URL (empty = AWS)
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	RetentionDays   int // 0 keeps all backups
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory:
	// 1. MODELGATE_DATA_DIR environment variable
	// 2. Fallback to ./data
	// 3. Always resolve to absolute path, ensure it exists
	dataDir := getEnv("MODELGATE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		ManifestPath: getEnv("MODEL_CONFIG_PATH", filepath.Join(absDataDir, "model-config.yaml")),
		TrackerURL:   getEnv("TRACKER_URL", "http://localhost:5000"),
		TrackerModel: getEnv("TRACKER_MODEL_NAME", "fraud-detection"),
		MeshURL:      getEnv("MESH_URL", "http://localhost:8080"),
		MeshHost:     getEnv("MESH_HOST", "fraud-detection.local"),
		MeshDeploy:   getEnv("MESH_DEPLOYMENT", "fraud-detection"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		Gate: GateConfig{
			MinRecallImprovement: getEnvAsFloat("GATE_MIN_RECALL_IMPROVEMENT", 0.05),
			PrecisionRetention:   getEnvAsFloat("GATE_PRECISION_RETENTION", 0.95),
			InitialBaselinePct:   getEnvAsInt("GATE_INITIAL_BASELINE_PCT", 80),
			InitialCandidatePct:  getEnvAsInt("GATE_INITIAL_CANDIDATE_PCT", 20),
		},
		Observation: ObservationConfig{
			LookbackMinutes: getEnvAsInt("OBSERVATION_LOOKBACK_MINUTES", 60),
			MinPrecision:    getEnvAsFloat("OBSERVATION_MIN_PRECISION", 0.85),
			MinRecall:       getEnvAsFloat("OBSERVATION_MIN_RECALL", 0.75),
		},
		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.Gate.MinRecallImprovement < 0 {
		return fmt.Errorf("GATE_MIN_RECALL_IMPROVEMENT must be non-negative, got %v", c.Gate.MinRecallImprovement)
	}
	if c.Gate.PrecisionRetention <= 0 || c.Gate.PrecisionRetention > 1 {
		return fmt.Errorf("GATE_PRECISION_RETENTION must be in (0,1], got %v", c.Gate.PrecisionRetention)
	}
	if c.Gate.InitialBaselinePct < 0 || c.Gate.InitialCandidatePct < 0 {
		return fmt.Errorf("initial traffic weights must be non-negative")
	}
	if c.Gate.InitialBaselinePct+c.Gate.InitialCandidatePct != 100 {
		return fmt.Errorf("initial traffic weights must sum to 100, got %d",
			c.Gate.InitialBaselinePct+c.Gate.InitialCandidatePct)
	}
	if c.Observation.LookbackMinutes <= 0 {
		return fmt.Errorf("OBSERVATION_LOOKBACK_MINUTES must be positive, got %d", c.Observation.LookbackMinutes)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// loadBackupConfig loads backup configuration from environment.
// Backups are disabled unless a bucket is configured.
func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:         bucket != "" && getEnvAsBool("BACKUP_ENABLED", true),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Bucket:          bucket,
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
