// Package agent implements the six specialist decision agents. Each agent
// reads the shared per-request Context, may call external ports, appends a
// reasoning trace and returns a Result. Agents never let internal failures
// escape: a failed run records a reflection step and returns Success=false.
package agent

import (
	"context"

	"github.com/kredefy/backend/pkg/trace"
)

// Canonical agent names. The orchestrator validates its workflow table
// against these at startup.
const (
	NovaName          = "Nova"
	RiskOracleName    = "RiskOracle"
	FraudGuardName    = "FraudGuard"
	LoanAdvisorName   = "LoanAdvisor"
	TrustAnalyzerName = "TrustAnalyzer"
	ActionAgentName   = "ActionAgent"
)

// Action is a side-effect descriptor declared by an agent. Side effects are
// executed after the whole pipeline completes, never mid-pipeline.
type Action struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Result is the outcome of one agent execution.
type Result struct {
	AgentName string       `json:"agent_name"`
	Success   bool         `json:"success"`
	Payload   any          `json:"result"`
	Error     string       `json:"error,omitempty"`
	Trace     *trace.Trace `json:"trace"`
	NextAgent string       `json:"next_agent,omitempty"`
	Actions   []Action     `json:"actions,omitempty"`
}

// Agent is one specialist in the decision pipeline.
type Agent interface {
	Name() string
	Execute(ctx context.Context, ac *Context) (*Result, error)
}

// failed builds the uniform failure result: a reflection step at low
// confidence on the trace plus Success=false.
func failed(tr *trace.Trace, name string, err error) *Result {
	tr.Reflect("run failed: "+err.Error(), 0.3)
	return &Result{
		AgentName: name,
		Success:   false,
		Error:     err.Error(),
		Trace:     tr,
	}
}
