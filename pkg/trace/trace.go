// Package trace implements step-by-step reasoning traces for decision agents.
// Every agent verdict carries a trace so that a decline can be replayed and
// audited step by step.
package trace

import (
	"time"

	"github.com/google/uuid"
)

// ThoughtType classifies a single reasoning step.
type ThoughtType string

const (
	Observation ThoughtType = "observation"
	Analysis    ThoughtType = "analysis"
	Hypothesis  ThoughtType = "hypothesis"
	ActionStep  ThoughtType = "action"
	Reflection  ThoughtType = "reflection"
	Conclusion  ThoughtType = "conclusion"
)

// Default confidences per step kind, used when the caller does not override.
const (
	defaultObserveConfidence     = 0.9
	defaultAnalyzeConfidence     = 0.8
	defaultHypothesizeConfidence = 0.7
	defaultActConfidence         = 0.85
	defaultReflectConfidence     = 0.75
	defaultConcludeConfidence    = 0.85
)

// Step is one entry in a reasoning trace.
type Step struct {
	Number     int            `json:"step_number"`
	Kind       ThoughtType    `json:"type"`
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Trace is an ordered reasoning trace produced by a single agent run.
// Append methods return the trace so steps can be chained. A trace is
// sealed by Conclude; appending to a concluded trace panics, it is a
// programming error in the agent, not a runtime condition.
type Trace struct {
	ID              string    `json:"id"`
	AgentName       string    `json:"agent_name"`
	Task            string    `json:"task"`
	Steps           []Step    `json:"steps"`
	FinalDecision   string    `json:"final_decision,omitempty"`
	TotalConfidence float64   `json:"total_confidence"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`

	concluded bool
	started   time.Time
}

// New starts a trace for the given agent and task.
func New(agentName, task string) *Trace {
	now := time.Now().UTC()
	return &Trace{
		ID:        uuid.NewString(),
		AgentName: agentName,
		Task:      task,
		Steps:     make([]Step, 0, 8),
		CreatedAt: now,
		started:   now,
	}
}

// Observe appends an observation step.
func (t *Trace) Observe(content string, confidence ...float64) *Trace {
	return t.append(Observation, content, pick(confidence, defaultObserveConfidence), nil)
}

// Analyze appends an analysis step.
func (t *Trace) Analyze(content string, confidence ...float64) *Trace {
	return t.append(Analysis, content, pick(confidence, defaultAnalyzeConfidence), nil)
}

// Hypothesize appends a hypothesis step.
func (t *Trace) Hypothesize(content string, confidence ...float64) *Trace {
	return t.append(Hypothesis, content, pick(confidence, defaultHypothesizeConfidence), nil)
}

// Act appends an action step.
func (t *Trace) Act(content string, confidence ...float64) *Trace {
	return t.append(ActionStep, content, pick(confidence, defaultActConfidence), nil)
}

// Reflect appends a reflection step. Agents use this to record recoverable
// failures before returning a failed result.
func (t *Trace) Reflect(content string, confidence ...float64) *Trace {
	return t.append(Reflection, content, pick(confidence, defaultReflectConfidence), nil)
}

// WithMetadata attaches metadata to the most recently appended step.
func (t *Trace) WithMetadata(md map[string]any) *Trace {
	if len(t.Steps) > 0 {
		t.Steps[len(t.Steps)-1].Metadata = md
	}
	return t
}

// Conclude appends the terminal conclusion step, records the final decision
// and seals the trace.
func (t *Trace) Conclude(decision string, confidence ...float64) *Trace {
	t.append(Conclusion, decision, pick(confidence, defaultConcludeConfidence), nil)
	t.FinalDecision = decision
	t.DurationMS = time.Since(t.started).Milliseconds()
	t.concluded = true
	return t
}

// Concluded reports whether the trace has been sealed.
func (t *Trace) Concluded() bool { return t.concluded }

// Confidence returns the mean confidence over all steps, 0 for an empty trace.
func (t *Trace) Confidence() float64 {
	if len(t.Steps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.Steps {
		sum += s.Confidence
	}
	return sum / float64(len(t.Steps))
}

func (t *Trace) append(kind ThoughtType, content string, confidence float64, md map[string]any) *Trace {
	if t.concluded {
		panic("trace: append after Conclude on trace " + t.ID)
	}
	t.Steps = append(t.Steps, Step{
		Number:     len(t.Steps) + 1,
		Kind:       kind,
		Content:    content,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
		Metadata:   md,
	})
	t.TotalConfidence = t.Confidence()
	return t
}

func pick(override []float64, def float64) float64 {
	if len(override) > 0 {
		return override[0]
	}
	return def
}
