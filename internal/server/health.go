package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// handleHealth pings every agent endpoint plus the judge and reports ok or
// degraded. Probes hit the sibling /health path next to each tool endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	statuses := map[string]string{}
	for _, agent := range s.registry.Agents() {
		statuses[agent.Key] = s.probeStatus(agent.Endpoint)
	}
	statuses["judge"] = s.probeStatus(s.judgeEndpoint)

	allOK := true
	for _, status := range statuses {
		if status != "ok" {
			allOK = false
			break
		}
	}
	status := "ok"
	if !allOK {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"agents":  statuses,
		"version": version,
	})
}

func (s *Server) probeStatus(endpoint string) string {
	url := healthURL(endpoint)
	resp, err := s.probe.Get(url)
	if err != nil {
		return "unreachable: " + truncate(err.Error(), 50)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "unreachable: " + resp.Status
	}
	return "ok"
}

func healthURL(endpoint string) string {
	if strings.HasSuffix(endpoint, "/mcp") {
		return strings.TrimSuffix(endpoint, "/mcp") + "/health"
	}
	return strings.TrimRight(endpoint, "/") + "/health"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
