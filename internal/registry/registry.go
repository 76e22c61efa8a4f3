// Package registry holds the static set of analysis agents a race fans out
// to. The set is fixed at startup and read-only afterwards, so concurrent
// races may share one Registry without synchronization.
package registry

import (
	"fmt"
	"strings"
)

// AgentSpec describes one remote analysis agent. Label and Color are
// cosmetic, passed through to stream consumers untouched.
type AgentSpec struct {
	Key      string `json:"key"`
	Tool     string `json:"tool"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Endpoint string `json:"endpoint"`
}

type Registry struct {
	agents []AgentSpec
	index  map[string]int
}

// New validates the specs and builds a registry. Duplicate or blank keys and
// missing tool/endpoint fields are configuration errors and fail fast here,
// never at request time.
func New(specs []AgentSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}
	index := make(map[string]int, len(specs))
	agents := make([]AgentSpec, 0, len(specs))
	for i, spec := range specs {
		key := strings.TrimSpace(spec.Key)
		if key == "" {
			return nil, fmt.Errorf("agent %d has a blank key", i)
		}
		if _, ok := index[key]; ok {
			return nil, fmt.Errorf("duplicate agent key %q", key)
		}
		if spec.Tool == "" {
			return nil, fmt.Errorf("agent %q has no tool name", key)
		}
		if spec.Endpoint == "" {
			return nil, fmt.Errorf("agent %q has no endpoint", key)
		}
		spec.Key = key
		index[key] = i
		agents = append(agents, spec)
	}
	return &Registry{agents: agents, index: index}, nil
}

// Agents returns the specs in registration order. The slice is a copy.
func (r *Registry) Agents() []AgentSpec {
	out := make([]AgentSpec, len(r.agents))
	copy(out, r.agents)
	return out
}

func (r *Registry) Len() int { return len(r.agents) }

// Position returns the registration index for key, or -1 if unknown. The
// race coordinator uses it to order same-cycle completion ties.
func (r *Registry) Position(key string) int {
	if i, ok := r.index[key]; ok {
		return i
	}
	return -1
}
