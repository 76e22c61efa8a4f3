package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BalajiReddy1/querysense/internal/config"
	"github.com/BalajiReddy1/querysense/internal/mcp"
	"github.com/BalajiReddy1/querysense/internal/race"
	"github.com/BalajiReddy1/querysense/internal/registry"
	"github.com/BalajiReddy1/querysense/internal/server"
)

const version = "1.0.0"

func main() {
	var (
		showVersion bool
		configPath  string
		port        int
	)

	flag.BoolVar(&showVersion, "version", false, "Print version")
	flag.StringVar(&configPath, "config", "", "Path to JSON config file merged over defaults")
	flag.IntVar(&port, "port", 0, "Listen port (overrides config)")
	flag.Parse()

	if showVersion {
		fmt.Printf("querysense %s\n", version)
		return
	}

	logger := log.New(os.Stderr, "[orchestrator] ", log.LstdFlags)
	if err := run(configPath, port, logger); err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
}

func run(configPath string, portOverride int, logger *log.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	specs := make([]registry.AgentSpec, 0, len(cfg.Agents))
	for _, agent := range cfg.Agents {
		specs = append(specs, registry.AgentSpec{
			Key:      agent.Key,
			Tool:     agent.Tool,
			Label:    agent.Label,
			Color:    agent.Color,
			Endpoint: agent.Endpoint,
		})
	}
	reg, err := registry.New(specs)
	if err != nil {
		return fmt.Errorf("build agent registry: %w", err)
	}

	coordinator, err := race.NewCoordinator(
		reg,
		mcp.NewClient(),
		race.JudgeSpec{Endpoint: cfg.Judge.Endpoint, Tool: cfg.Judge.Tool},
		time.Duration(cfg.Invoke.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Judge.TimeoutSeconds)*time.Second,
		logger,
	)
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	srv, err := server.New(coordinator, reg, cfg.Judge.Endpoint, cfg.Server.UIDir, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	logger.Printf("querysense %s starting with %d agents", version, reg.Len())
	return srv.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}
