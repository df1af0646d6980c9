// Package config manages configuration for the grid dashboard.
//
// Configuration is loaded from an INI file plus environment overrides, the
// same shape the teacher used, but through spf13/viper rather than a
// hand-rolled parser — the teacher's own config.go explicitly noted its INI
// reader had "no external deps"; viper supports the same [section] key =
// value INI shape and the same env-var-override convention without hand
// rolling a parser.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration values.
type Config struct {
	// Logging
	LogLevel       string
	LogFile        string
	LogMaxBytes    int
	LogBackupCount int
	LogToStdout    bool

	// Camera
	CaptureWidth      int
	CaptureHeight     int
	CaptureFPS        int
	CaptureFormat     string // "mjpeg" or "yuyv"; validated on load but not read by camerasrc, which always requests mjpeg
	DevicePath        string
	KillDeviceHolders bool

	// Render / pipeline timing
	TargetRenderFPS              float64
	RenderFPSTolerance           float64
	RingBufferCapacity           int
	MonitorWindowSize            int
	GPUMemoryBudgetBytes         int64
	PipelineStateChangeTimeoutS  float64
	PermissionPromptTimeoutSec   float64

	// Recovery
	MaxReconnectAttempts int
	ReconnectBackoffMS   int

	// Health
	HealthLogIntervalSec float64

	// Debug flags
	DebugLogging bool
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "INFO",
		LogFile:        "./logs/gridcam.log",
		LogMaxBytes:    5 * 1024 * 1024,
		LogBackupCount: 3,
		LogToStdout:    true,

		CaptureWidth:      1920,
		CaptureHeight:     1080,
		CaptureFPS:        30,
		CaptureFormat:     "mjpeg",
		DevicePath:        "/dev/video0",
		KillDeviceHolders: true,

		TargetRenderFPS:             120.0,
		RenderFPSTolerance:          2.0,
		RingBufferCapacity:          60,
		MonitorWindowSize:           300,
		GPUMemoryBudgetBytes:        3_400_000_000,
		PipelineStateChangeTimeoutS: 10.0,
		PermissionPromptTimeoutSec:  30.0,

		MaxReconnectAttempts: 5,
		ReconnectBackoffMS:   200,

		HealthLogIntervalSec: 30.0,

		DebugLogging: false,
	}
}

// ConfigPath returns the INI file path to use, respecting env var override.
func ConfigPath() string {
	if p := os.Getenv("GRIDCAM_CONFIG"); p != "" {
		return p
	}
	return "./config.ini"
}

// Load reads the INI file at path (or the default/env path) over top of
// DefaultConfig(), applying environment variable overrides afterward.
// A missing file is not an error: defaults are returned as-is, matching the
// teacher's own Load behaviour.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	v.SetEnvPrefix("GRIDCAM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyViper(cfg, v)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyViper(cfg *Config, v *viper.Viper) {
	getStr := func(key, fallback string) string {
		if s := v.GetString(key); s != "" {
			return s
		}
		return fallback
	}
	getInt := func(key string, fallback int) int {
		if v.IsSet(key) {
			return v.GetInt(key)
		}
		return fallback
	}
	getFloat := func(key string, fallback float64) float64 {
		if v.IsSet(key) {
			return v.GetFloat64(key)
		}
		return fallback
	}
	getBool := func(key string, fallback bool) bool {
		if v.IsSet(key) {
			return v.GetBool(key)
		}
		return fallback
	}

	cfg.LogLevel = strings.ToUpper(getStr("logging.level", cfg.LogLevel))
	cfg.LogFile = getStr("logging.file", cfg.LogFile)
	cfg.LogMaxBytes = getInt("logging.max_bytes", cfg.LogMaxBytes)
	cfg.LogBackupCount = getInt("logging.backup_count", cfg.LogBackupCount)
	cfg.LogToStdout = getBool("logging.stdout", cfg.LogToStdout)

	cfg.CaptureWidth = getInt("camera.capture_width", cfg.CaptureWidth)
	cfg.CaptureHeight = getInt("camera.capture_height", cfg.CaptureHeight)
	cfg.CaptureFPS = getInt("camera.capture_fps", cfg.CaptureFPS)
	if fmtStr := strings.ToLower(getStr("camera.capture_format", cfg.CaptureFormat)); fmtStr == "mjpeg" || fmtStr == "yuyv" {
		cfg.CaptureFormat = fmtStr
	}
	cfg.DevicePath = getStr("camera.device_path", cfg.DevicePath)
	cfg.KillDeviceHolders = getBool("camera.kill_device_holders", cfg.KillDeviceHolders)

	cfg.TargetRenderFPS = getFloat("render.target_fps", cfg.TargetRenderFPS)
	cfg.RenderFPSTolerance = getFloat("render.fps_tolerance", cfg.RenderFPSTolerance)
	cfg.RingBufferCapacity = getInt("render.ring_buffer_capacity", cfg.RingBufferCapacity)
	cfg.MonitorWindowSize = getInt("render.monitor_window_size", cfg.MonitorWindowSize)
	cfg.PipelineStateChangeTimeoutS = getFloat("render.state_change_timeout_sec", cfg.PipelineStateChangeTimeoutS)
	cfg.PermissionPromptTimeoutSec = getFloat("render.permission_timeout_sec", cfg.PermissionPromptTimeoutSec)

	cfg.MaxReconnectAttempts = getInt("recovery.max_reconnect_attempts", cfg.MaxReconnectAttempts)
	cfg.ReconnectBackoffMS = getInt("recovery.reconnect_backoff_ms", cfg.ReconnectBackoffMS)

	cfg.HealthLogIntervalSec = getFloat("health.log_interval_sec", cfg.HealthLogIntervalSec)
	cfg.DebugLogging = getBool("health.debug_logging", cfg.DebugLogging)
}

// applyEnvOverrides mirrors the teacher's explicit env var override for the
// log file path, kept as a named override rather than relying solely on
// viper's generic AutomaticEnv binding since it predates the INI file and
// must apply even when no config file exists.
func applyEnvOverrides(cfg *Config) {
	if logFile := os.Getenv("GRIDCAM_LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
}

// Validate checks whether the Config values are reasonable and returns
// warnings. ok is false only for settings that would make the pipeline
// unable to run at all.
func (c *Config) Validate() (ok bool, warnings []string) {
	ok = true

	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		ok = false
		warnings = append(warnings, "capture resolution must be positive")
	}
	if c.CaptureFPS <= 0 {
		ok = false
		warnings = append(warnings, "capture fps must be positive")
	}
	if c.TargetRenderFPS <= 0 {
		ok = false
		warnings = append(warnings, "target render fps must be positive")
	}
	if c.RingBufferCapacity <= 0 {
		ok = false
		warnings = append(warnings, "ring buffer capacity must be positive")
	}
	if c.TargetRenderFPS > 240 {
		warnings = append(warnings, "target render fps > 240 is unlikely to be achievable")
	}
	if c.MonitorWindowSize < 10 {
		warnings = append(warnings, "monitor window size is small enough to make verdicts noisy")
	}

	return ok, warnings
}
