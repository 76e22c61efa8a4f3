// Package race runs one analysis request against every registered agent
// concurrently, streams outcomes in completion order, and asks the judge
// for a combined verdict once the last agent has concluded.
package race

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BalajiReddy1/querysense/internal/registry"
)

// Invoker performs one remote tool invocation. Implemented by mcp.Client;
// tests substitute stubs.
type Invoker interface {
	CallTool(ctx context.Context, endpoint, tool string, arguments map[string]any, timeout time.Duration) (map[string]any, error)
}

// JudgeSpec locates the synthesis tool.
type JudgeSpec struct {
	Endpoint string
	Tool     string
}

type Coordinator struct {
	registry     *registry.Registry
	invoker      Invoker
	judge        JudgeSpec
	agentTimeout time.Duration
	judgeTimeout time.Duration
	logger       *log.Logger
	now          func() time.Time
	newRaceID    func() string
}

func NewCoordinator(reg *registry.Registry, invoker Invoker, judge JudgeSpec, agentTimeout, judgeTimeout time.Duration, logger *log.Logger) (*Coordinator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if judge.Endpoint == "" || judge.Tool == "" {
		return nil, fmt.Errorf("judge endpoint and tool are required")
	}
	if agentTimeout <= 0 {
		return nil, fmt.Errorf("agent timeout must be > 0")
	}
	if judgeTimeout <= 0 {
		return nil, fmt.Errorf("judge timeout must be > 0")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Coordinator{
		registry:     reg,
		invoker:      invoker,
		judge:        judge,
		agentTimeout: agentTimeout,
		judgeTimeout: judgeTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		newRaceID:    uuid.NewString,
	}, nil
}

// completion is one agent's fan-in record. Exactly one is sent per agent.
type completion struct {
	spec    registry.AgentSpec
	result  map[string]any
	elapsed float64
	err     error
}

// raceState is owned by a single run for the lifetime of one request.
type raceState struct {
	outcomes  map[string]Outcome
	errors    map[string]string
	remaining int
	positions int
}

func newRaceState(n int) *raceState {
	return &raceState{
		outcomes:  make(map[string]Outcome, n),
		errors:    make(map[string]string),
		remaining: n,
	}
}

// Run starts the race and returns the event stream. The channel is closed
// after the terminal done event. Cancelling ctx abandons the race: in-flight
// invocations are cancelled and the channel is closed without further
// events.
func (c *Coordinator) Run(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event)
	go c.run(ctx, req, events)
	return events
}

func (c *Coordinator) run(ctx context.Context, req Request, events chan<- Event) {
	defer close(events)
	// done terminates the stream no matter how synthesis went.
	defer func() {
		c.emit(ctx, events, Done{Event: EventDone})
	}()

	raceStart := c.now()
	raceID := c.newRaceID()
	agents := c.registry.Agents()

	if !c.emit(ctx, events, RaceStart{
		Event:        EventRaceStart,
		RaceID:       raceID,
		Message:      fmt.Sprintf("Race started: %d agents analyzing your SQL simultaneously", len(agents)),
		QueryPreview: req.Preview(),
		Dialect:      req.Dialect,
		Timestamp:    float64(raceStart.UnixNano()) / 1e9,
	}) {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to the agent count so a sender never blocks after the
	// consumer walks away.
	completions := make(chan completion, len(agents))
	for _, spec := range agents {
		go func(spec registry.AgentSpec) {
			start := c.now()
			result, err := c.invoker.CallTool(runCtx, spec.Endpoint, spec.Tool, map[string]any{
				"query":   req.Query,
				"dialect": req.Dialect,
			}, c.agentTimeout)
			completions <- completion{
				spec:    spec,
				result:  result,
				elapsed: Round2(c.now().Sub(start).Seconds()),
				err:     err,
			}
		}(spec)
	}

	state := newRaceState(len(agents))
	for state.remaining > 0 {
		batch, ok := c.nextBatch(ctx, completions, state.remaining)
		if !ok {
			c.logger.Printf("race %s abandoned with %d agents outstanding", raceID, state.remaining)
			return
		}
		// Same-cycle ties resolve in registry order.
		sort.Slice(batch, func(a, b int) bool {
			return c.registry.Position(batch[a].spec.Key) < c.registry.Position(batch[b].spec.Key)
		})
		for _, done := range batch {
			state.remaining--
			if !c.recordAndEmit(ctx, events, req, state, done) {
				return
			}
		}
	}

	agentsElapsed := Round2(c.now().Sub(raceStart).Seconds())
	if !c.emit(ctx, events, Synthesizing{
		Event:         EventSynthesizing,
		Message:       "All agents finished. Judge is reviewing reports...",
		AgentsElapsed: agentsElapsed,
	}) {
		return
	}

	judgeStart := c.now()
	verdict, err := c.callJudge(ctx, req, state)
	if err != nil {
		c.logger.Printf("race %s: judge failed: %v", raceID, err)
		c.emit(ctx, events, SynthesisError{
			Event:   EventSynthesisError,
			Error:   err.Error(),
			Message: "Judge encountered an error. Check agent results above.",
		})
		return
	}
	judgeElapsed := Round2(c.now().Sub(judgeStart).Seconds())
	totalElapsed := Round2(c.now().Sub(raceStart).Seconds())

	total, warnings := SumCost(append(state.successResults(), verdict))
	for _, warning := range warnings {
		c.logger.Printf("race %s: cost accumulator: %s", raceID, warning)
	}

	c.logger.Printf("race %s complete in %.2fs, winner: %v", raceID, totalElapsed, verdict["winner"])
	c.emit(ctx, events, Verdict{
		Event:        EventVerdict,
		Verdict:      verdict,
		JudgeElapsed: judgeElapsed,
		TotalElapsed: totalElapsed,
		TotalCostUSD: Round6(total),
		HadErrors:    len(state.errors) > 0,
	})
}

// recordAndEmit folds one completion into the race state and streams its
// event. A failed agent becomes a fallback outcome with no completion-order
// position; it never aborts the race for the others.
func (c *Coordinator) recordAndEmit(ctx context.Context, events chan<- Event, req Request, state *raceState, done completion) bool {
	if done.err != nil {
		errMsg := done.err.Error()
		state.errors[done.spec.Key] = errMsg
		state.outcomes[done.spec.Key] = Outcome{
			AgentKey: done.spec.Key,
			Result:   fallbackResult(done.spec.Label, req.Query, errMsg),
			Elapsed:  done.elapsed,
			Err:      errMsg,
		}
		c.logger.Printf("%s failed: %s", done.spec.Label, errMsg)
		return c.emit(ctx, events, WorkerError{
			Event:      EventWorkerError,
			AgentKey:   done.spec.Key,
			AgentLabel: done.spec.Label,
			Error:      errMsg,
		})
	}

	state.positions++
	state.outcomes[done.spec.Key] = Outcome{
		AgentKey: done.spec.Key,
		Result:   done.result,
		Elapsed:  done.elapsed,
		Position: state.positions,
	}
	c.logger.Printf("%s finished in %.2fs", done.spec.Label, done.elapsed)
	return c.emit(ctx, events, WorkerDone{
		Event:      EventWorkerDone,
		AgentKey:   done.spec.Key,
		AgentLabel: done.spec.Label,
		AgentColor: done.spec.Color,
		Elapsed:    done.elapsed,
		Result:     done.result,
		Position:   state.positions,
	})
}

// nextBatch blocks for the first pending completion, then drains whatever
// else finished in the same cycle without blocking again.
func (c *Coordinator) nextBatch(ctx context.Context, completions <-chan completion, remaining int) ([]completion, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	var batch []completion
	select {
	case <-ctx.Done():
		return nil, false
	case first := <-completions:
		batch = append(batch, first)
	}
	for len(batch) < remaining {
		select {
		case next := <-completions:
			batch = append(batch, next)
		default:
			return batch, true
		}
	}
	return batch, true
}

// callJudge sends the frozen outcome map to the judge tool. Fallback and
// real reports travel identically; the judge can only tell them apart by
// the error field inside a report.
func (c *Coordinator) callJudge(ctx context.Context, req Request, state *raceState) (map[string]any, error) {
	args := map[string]any{"original_query": req.Query}
	for key, outcome := range state.outcomes {
		args[key+"_report"] = outcome.Result
	}
	return c.invoker.CallTool(ctx, c.judge.Endpoint, c.judge.Tool, args, c.judgeTimeout)
}

// successResults returns the result maps of agents that did not fail.
// Fallback outcomes contribute nothing to the cost total.
func (s *raceState) successResults() []map[string]any {
	results := make([]map[string]any, 0, len(s.outcomes))
	for _, outcome := range s.outcomes {
		if outcome.Failed() {
			continue
		}
		results = append(results, outcome.Result)
	}
	return results
}

// emit delivers one event to the consumer. Once ctx is cancelled no further
// event leaves the coordinator, including events already queued behind the
// cancellation.
func (c *Coordinator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
