package race

const (
	EventRaceStart      = "race_start"
	EventWorkerDone     = "worker_done"
	EventWorkerError    = "worker_error"
	EventSynthesizing   = "synthesizing"
	EventVerdict        = "verdict"
	EventSynthesisError = "synthesis_error"
	EventDone           = "done"
)

// Event is one frame of the analysis stream. Every implementation marshals
// to a flat JSON object whose "event" field carries the tag; the remaining
// fields are tag-specific. Frames are immutable once emitted and arrive in
// strict chronological order: race_start, then one worker_done or
// worker_error per agent in completion order, then synthesizing, then
// verdict or synthesis_error, then done.
type Event interface {
	Kind() string
}

type RaceStart struct {
	Event        string  `json:"event"`
	RaceID       string  `json:"race_id"`
	Message      string  `json:"message"`
	QueryPreview string  `json:"query_preview"`
	Dialect      string  `json:"dialect"`
	Timestamp    float64 `json:"timestamp"`
}

func (RaceStart) Kind() string { return EventRaceStart }

type WorkerDone struct {
	Event      string         `json:"event"`
	AgentKey   string         `json:"agent_key"`
	AgentLabel string         `json:"agent_label"`
	AgentColor string         `json:"agent_color"`
	Elapsed    float64        `json:"elapsed"`
	Result     map[string]any `json:"result"`
	Position   int            `json:"position"`
}

func (WorkerDone) Kind() string { return EventWorkerDone }

type WorkerError struct {
	Event      string `json:"event"`
	AgentKey   string `json:"agent_key"`
	AgentLabel string `json:"agent_label"`
	Error      string `json:"error"`
}

func (WorkerError) Kind() string { return EventWorkerError }

type Synthesizing struct {
	Event         string  `json:"event"`
	Message       string  `json:"message"`
	AgentsElapsed float64 `json:"agents_elapsed"`
}

func (Synthesizing) Kind() string { return EventSynthesizing }

type Verdict struct {
	Event        string         `json:"event"`
	Verdict      map[string]any `json:"verdict"`
	JudgeElapsed float64        `json:"judge_elapsed"`
	TotalElapsed float64        `json:"total_elapsed"`
	TotalCostUSD float64        `json:"total_cost_usd"`
	HadErrors    bool           `json:"had_errors"`
}

func (Verdict) Kind() string { return EventVerdict }

type SynthesisError struct {
	Event   string `json:"event"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (SynthesisError) Kind() string { return EventSynthesisError }

type Done struct {
	Event string `json:"event"`
}

func (Done) Kind() string { return EventDone }
