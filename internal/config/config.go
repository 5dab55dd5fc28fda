package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config/sia.yaml"

type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	LLM        LLMConfig        `yaml:"llm"`
	IPC        IPCConfig        `yaml:"ipc"`
	Storage    StorageConfig    `yaml:"storage"`
}

type AgentConfig struct {
	CPUIntervalSeconds    int `yaml:"cpu_interval_seconds"`
	MemoryIntervalSeconds int `yaml:"memory_interval_seconds"`
	QueueCapacity         int `yaml:"queue_capacity"`
	SendTimeoutMillis     int `yaml:"send_timeout_ms"`
}

type ThresholdsConfig struct {
	CPUWarning        float64 `yaml:"cpu_warning"`
	CPUCritical       float64 `yaml:"cpu_critical"`
	MemoryWarning     float64 `yaml:"memory_warning"`
	MemoryCritical    float64 `yaml:"memory_critical"`
	CPUSustainedCount int     `yaml:"cpu_sustained_count"`
}

type LLMConfig struct {
	URL                  string `yaml:"url"`
	Model                string `yaml:"model"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	ProbeIntervalSeconds int    `yaml:"probe_interval_seconds"`
}

type IPCConfig struct {
	SocketPath         string `yaml:"socket_path"`
	ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// Path returns the config file path: SIA_CONFIG, then the built-in default.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("SIA_CONFIG")); v != "" {
		return v
	}
	return DefaultPath
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a YAML config file, fills defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.CPUIntervalSeconds <= 0 {
		cfg.Agent.CPUIntervalSeconds = 5
	}
	if cfg.Agent.MemoryIntervalSeconds <= 0 {
		cfg.Agent.MemoryIntervalSeconds = 5
	}
	if cfg.Agent.QueueCapacity <= 0 {
		cfg.Agent.QueueCapacity = 10000
	}
	if cfg.Agent.SendTimeoutMillis <= 0 {
		cfg.Agent.SendTimeoutMillis = 200
	}
	if cfg.Thresholds.CPUWarning <= 0 {
		cfg.Thresholds.CPUWarning = 80
	}
	if cfg.Thresholds.CPUCritical <= 0 {
		cfg.Thresholds.CPUCritical = 95
	}
	if cfg.Thresholds.MemoryWarning <= 0 {
		cfg.Thresholds.MemoryWarning = 85
	}
	if cfg.Thresholds.MemoryCritical <= 0 {
		cfg.Thresholds.MemoryCritical = 95
	}
	if cfg.Thresholds.CPUSustainedCount <= 0 {
		cfg.Thresholds.CPUSustainedCount = 2
	}
	if cfg.LLM.URL == "" {
		cfg.LLM.URL = "http://127.0.0.1:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3"
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.LLM.ProbeIntervalSeconds <= 0 {
		cfg.LLM.ProbeIntervalSeconds = 60
	}
	if cfg.IPC.SocketPath == "" {
		cfg.IPC.SocketPath = "/tmp/sia.sock"
	}
	if cfg.IPC.ReadTimeoutSeconds <= 0 {
		cfg.IPC.ReadTimeoutSeconds = 5
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data/sia.db"
	}
}

// Validate rejects configurations the daemon cannot run with.
func Validate(cfg *Config) error {
	if cfg.Thresholds.CPUWarning >= cfg.Thresholds.CPUCritical {
		return fmt.Errorf("cpu_warning (%.1f) must be below cpu_critical (%.1f)",
			cfg.Thresholds.CPUWarning, cfg.Thresholds.CPUCritical)
	}
	if cfg.Thresholds.MemoryWarning >= cfg.Thresholds.MemoryCritical {
		return fmt.Errorf("memory_warning (%.1f) must be below memory_critical (%.1f)",
			cfg.Thresholds.MemoryWarning, cfg.Thresholds.MemoryCritical)
	}
	for name, v := range map[string]float64{
		"cpu_warning":     cfg.Thresholds.CPUWarning,
		"cpu_critical":    cfg.Thresholds.CPUCritical,
		"memory_warning":  cfg.Thresholds.MemoryWarning,
		"memory_critical": cfg.Thresholds.MemoryCritical,
	} {
		if v > 100 {
			return fmt.Errorf("%s must not exceed 100, got %.1f", name, v)
		}
	}
	if strings.TrimSpace(cfg.IPC.SocketPath) == "" {
		return fmt.Errorf("ipc.socket_path is required")
	}
	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	return nil
}

func (a AgentConfig) CPUInterval() time.Duration {
	return time.Duration(a.CPUIntervalSeconds) * time.Second
}

func (a AgentConfig) MemoryInterval() time.Duration {
	return time.Duration(a.MemoryIntervalSeconds) * time.Second
}

func (a AgentConfig) SendTimeout() time.Duration {
	return time.Duration(a.SendTimeoutMillis) * time.Millisecond
}

func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func (l LLMConfig) ProbeInterval() time.Duration {
	return time.Duration(l.ProbeIntervalSeconds) * time.Second
}

func (i IPCConfig) ReadTimeout() time.Duration {
	return time.Duration(i.ReadTimeoutSeconds) * time.Second
}
