package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents runner configuration loaded from RUNNER_* environment
// variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Host             string
	Port             string
	ProjectRoot      string
	ArtifactsDir     string
	ProjectScanDays  int
	AgentBinary      string
	AgentModel       string
	AgentInstallDir  string
	AgentTimeout     time.Duration
	TemplateDir      string
	WebAppDir        string
	DatabaseURL      string
	AuditTable       string
	CORSOrigins      []string
	RateLimitPerMin  int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	home, _ := os.UserHomeDir()
	cfg := &Config{
		AppEnv:          getEnv("RUNNER_ENV", "development"),
		LogLevel:        os.Getenv("RUNNER_LOG_LEVEL"),
		Host:            getEnv("RUNNER_HOST", "0.0.0.0"),
		Port:            getEnv("RUNNER_PORT", "8423"),
		ProjectRoot:     expandHome(getEnv("RUNNER_PROJECT_ROOT", filepath.Join(home, "Downloads", "_projects")), home),
		ArtifactsDir:    expandHome(getEnv("RUNNER_ARTIFACTS_DIR", filepath.Join(home, ".orchestrator", "jobs")), home),
		ProjectScanDays: getEnvInt("RUNNER_PROJECT_SCAN_DAYS", 10),
		AgentBinary:     getEnv("RUNNER_AGENT_BINARY", "agent"),
		AgentModel:      getEnv("RUNNER_AGENT_MODEL", "auto"),
		AgentInstallDir: os.Getenv("RUNNER_AGENT_INSTALL_DIR"),
		AgentTimeout:    time.Second * time.Duration(getEnvInt("RUNNER_AGENT_TIMEOUT_SECONDS", 180)),
		TemplateDir:     os.Getenv("RUNNER_TEMPLATE_DIR"),
		WebAppDir:       os.Getenv("RUNNER_WEB_APP_DIR"),
		DatabaseURL:     os.Getenv("RUNNER_DATABASE_URL"),
		AuditTable:      getEnv("RUNNER_AUDIT_TABLE", "job_runs"),
		CORSOrigins:     splitList(getEnv("RUNNER_CORS_ORIGINS", "*")),
		RateLimitPerMin: getEnvInt("RUNNER_RATE_LIMIT_PER_MINUTE", 120),
		// Write timeout stays zero by default: SSE streams outlive any fixed deadline.
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("RUNNER_HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("RUNNER_HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("RUNNER_HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("RUNNER_PORT must be numeric, got %q", cfg.Port)
	}
	if cfg.ProjectScanDays < 1 || cfg.ProjectScanDays > 365 {
		return nil, fmt.Errorf("RUNNER_PROJECT_SCAN_DAYS must be between 1 and 365, got %d", cfg.ProjectScanDays)
	}
	if cfg.AgentTimeout <= 0 {
		return nil, fmt.Errorf("RUNNER_AGENT_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
