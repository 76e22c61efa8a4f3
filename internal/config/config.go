// Package config loads the orchestrator configuration: compiled-in defaults,
// an optional JSON file merged over them, and agent-port environment
// overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Server struct {
		Port  int    `json:"port"`
		UIDir string `json:"ui_dir"`
	} `json:"server"`
	Invoke struct {
		TimeoutSeconds int `json:"timeout_seconds"`
	} `json:"invoke"`
	Judge struct {
		Endpoint       string `json:"endpoint"`
		Tool           string `json:"tool"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"judge"`
	Agents []AgentCfg `json:"agents"`
}

type AgentCfg struct {
	Key      string `json:"key"`
	Tool     string `json:"tool"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Endpoint string `json:"endpoint"`
}

// Default mirrors the stock three-agent deployment: performance, cost, and
// security analyzers on adjacent local ports, judge on the next one.
func Default() Config {
	var cfg Config
	cfg.Server.Port = 5000
	cfg.Server.UIDir = "ui"
	cfg.Invoke.TimeoutSeconds = 90
	cfg.Judge.Endpoint = "http://localhost:8004/mcp"
	cfg.Judge.Tool = "judge_sql_results"
	cfg.Judge.TimeoutSeconds = 90
	cfg.Agents = []AgentCfg{
		{Key: "performance", Tool: "analyze_sql_performance", Label: "Performance Agent", Color: "orange", Endpoint: "http://localhost:8001/mcp"},
		{Key: "cost", Tool: "analyze_sql_cost", Label: "Cost Agent", Color: "blue", Endpoint: "http://localhost:8002/mcp"},
		{Key: "security", Tool: "analyze_sql_security", Label: "Security Agent", Color: "red", Endpoint: "http://localhost:8003/mcp"},
	}
	return cfg
}

// Load merges an optional config file over the defaults, then applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	merged := map[string]any{}
	defaults, err := toMap(Default())
	if err != nil {
		return Config{}, err
	}
	deepMerge(merged, defaults)

	if path != "" {
		if err := mergeFile(merged, path); err != nil {
			return Config{}, err
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("marshal merged config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal merged config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv honors the legacy per-agent port variables, e.g.
// PERFORMANCE_AGENT_PORT=9001 rewrites that agent's endpoint to
// http://localhost:9001/mcp. JUDGE_AGENT_PORT and ORCHESTRATOR_PORT work
// the same way.
func applyEnv(cfg *Config) {
	for i, agent := range cfg.Agents {
		if port := os.Getenv(strings.ToUpper(agent.Key) + "_AGENT_PORT"); port != "" {
			cfg.Agents[i].Endpoint = fmt.Sprintf("http://localhost:%s/mcp", port)
		}
	}
	if port := os.Getenv("JUDGE_AGENT_PORT"); port != "" {
		cfg.Judge.Endpoint = fmt.Sprintf("http://localhost:%s/mcp", port)
	}
	if port := os.Getenv("ORCHESTRATOR_PORT"); port != "" {
		if n, err := parsePort(port); err == nil {
			cfg.Server.Port = n
		}
	}
}

func parsePort(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse port %q: %w", s, err)
	}
	if n <= 0 || n > 65535 {
		return 0, fmt.Errorf("port %d out of range", n)
	}
	return n, nil
}

func toMap(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}
	return out, nil
}

func mergeFile(dst map[string]any, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %s: %w", path, err)
	}
	var src map[string]any
	if err := json.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}
	deepMerge(dst, src)
	return nil
}

func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		if existing, ok := dst[key]; ok {
			if existingMap, ok := existing.(map[string]any); ok {
				deepMerge(existingMap, srcMap)
				continue
			}
		}
		newMap := map[string]any{}
		deepMerge(newMap, srcMap)
		dst[key] = newMap
	}
}
