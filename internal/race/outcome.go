package race

import "fmt"

// Outcome is the per-agent record a race accumulates: exactly one per
// registered agent, success or fallback, never omitted.
type Outcome struct {
	AgentKey string
	Result   map[string]any
	Elapsed  float64

	// Position is the completion-order index among successful agents
	// (1st, 2nd, ...). Zero for fallback outcomes.
	Position int

	// Err is the failure text when Result is a fallback, empty otherwise.
	Err string
}

func (o Outcome) Failed() bool { return o.Err != "" }

// fallbackResult stands in for a failed agent so the judge always receives
// one report per agent. The original query is echoed back as the rewritten
// output and the error is surfaced in the issues list.
func fallbackResult(label, query, errMsg string) map[string]any {
	return map[string]any{
		"error":         errMsg,
		"agent":         label,
		"rewritten_sql": query,
		"issues_found":  []any{fmt.Sprintf("Agent error: %s", errMsg)},
	}
}
