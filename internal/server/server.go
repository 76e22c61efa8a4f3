// Package server exposes the race orchestrator over HTTP: an SSE analysis
// stream, agent health probes, demo fixtures, and an optional static UI.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BalajiReddy1/querysense/internal/race"
	"github.com/BalajiReddy1/querysense/internal/registry"
)

const (
	version            = "1.0.0"
	healthProbeTimeout = 3 * time.Second
)

type analyzeRequest struct {
	Query   string `json:"query"`
	Dialect string `json:"dialect"`
}

type Server struct {
	engine        *gin.Engine
	coordinator   *race.Coordinator
	registry      *registry.Registry
	judgeEndpoint string
	probe         *http.Client
	logger        *log.Logger
}

func New(coordinator *race.Coordinator, reg *registry.Registry, judgeEndpoint, uiDir string, logger *log.Logger) (*Server, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if judgeEndpoint == "" {
		return nil, fmt.Errorf("judge endpoint is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:        gin.New(),
		coordinator:   coordinator,
		registry:      reg,
		judgeEndpoint: judgeEndpoint,
		probe:         &http.Client{Timeout: healthProbeTimeout},
		logger:        logger,
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.engine.POST("/analyze", s.handleAnalyze)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/demo-queries", s.handleDemoQueries)

	if uiDir != "" {
		if info, err := os.Stat(uiDir); err == nil && info.IsDir() {
			s.engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(uiDir))))
		}
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Run(addr string) error {
	s.logger.Printf("orchestrator listening on %s", addr)
	return s.engine.Run(addr)
}

// handleAnalyze validates the request, then streams race events as SSE
// frames. Validation failures are rejected before any event is emitted.
func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	req, err := race.NewRequest(body.Query, body.Dialect)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := s.coordinator.Run(c.Request.Context(), req)
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Printf("marshal %s event: %v", ev.Kind(), err)
			return false
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		return true
	})
}
