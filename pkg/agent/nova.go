package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/trace"
)

// Intents Nova can resolve a message to.
const (
	IntentGreeting        = "greeting"
	IntentLoanRequest     = "loan_request"
	IntentLoanInquiry     = "loan_inquiry"
	IntentBalanceCheck    = "balance_check"
	IntentTrustScore      = "trust_score"
	IntentReputation      = "reputation"
	IntentPaymentReminder = "payment_reminder"
	IntentEmergency       = "emergency"
	IntentGeneralQuestion = "general_question"
)

var validIntents = map[string]bool{
	IntentGreeting:        true,
	IntentLoanRequest:     true,
	IntentLoanInquiry:     true,
	IntentBalanceCheck:    true,
	IntentTrustScore:      true,
	IntentReputation:      true,
	IntentPaymentReminder: true,
	IntentEmergency:       true,
	IntentGeneralQuestion: true,
}

// NovaResult is the Nova payload.
type NovaResult struct {
	Response        string         `json:"response,omitempty"`
	Intent          string         `json:"intent"`
	Confidence      float64        `json:"confidence"`
	Entities        map[string]any `json:"entities,omitempty"`
	NeedsSpecialist bool           `json:"needs_specialist,omitempty"`
}

// Nova resolves the user's intent and, for conversational intents, writes
// the reply itself through a language-specific persona.
type Nova struct {
	llm ports.LLM
}

// NewNova creates the agent over the language-model port.
func NewNova(llm ports.LLM) *Nova { return &Nova{llm: llm} }

func (a *Nova) Name() string { return NovaName }

// Execute classifies the message, hands specialist intents to the next
// agent, and answers everything else in persona.
func (a *Nova) Execute(ctx context.Context, ac *Context) (*Result, error) {
	tr := trace.New(NovaName, "resolve intent and respond")
	tr.Observe(fmt.Sprintf("message %q from user with trust score %d", ac.CurrentRequest, ac.TrustScore))

	intent, confidence, entities := a.classify(ctx, ac, tr)
	tr.Analyze(fmt.Sprintf("intent %s at confidence %.2f", intent, confidence))

	result := NovaResult{Intent: intent, Confidence: confidence, Entities: entities}

	switch intent {
	case IntentLoanRequest, IntentLoanInquiry:
		result.NeedsSpecialist = true
		tr.Conclude("routing to loan specialist", confidence)
		return &Result{AgentName: NovaName, Success: true, Payload: result, Trace: tr, NextAgent: LoanAdvisorName}, nil
	case IntentTrustScore, IntentReputation:
		result.NeedsSpecialist = true
		tr.Conclude("routing to trust specialist", confidence)
		return &Result{AgentName: NovaName, Success: true, Payload: result, Trace: tr, NextAgent: TrustAnalyzerName}, nil
	}

	reply, err := a.llm.Chat(ctx, personaFor(ac.Language), personaPrompt(ac))
	if err != nil {
		tr.Reflect("persona reply failed, using fallback: "+err.Error(), 0.4)
		reply = fallbackFor(ac.Language)
	} else {
		tr.Act("composed persona reply")
	}
	result.Response = strings.TrimSpace(reply)
	tr.Conclude("responded in persona", confidence)

	return &Result{AgentName: NovaName, Success: true, Payload: result, Trace: tr}, nil
}

// classify asks the model for a strict JSON classification. Any failure
// degrades to general_question at confidence 0.5 rather than failing the
// pipeline.
func (a *Nova) classify(ctx context.Context, ac *Context, tr *trace.Trace) (string, float64, map[string]any) {
	raw, err := a.llm.Chat(ctx, intentSystemPrompt, ac.CurrentRequest)
	if err != nil {
		tr.Reflect("intent classification unavailable: "+err.Error(), 0.4)
		return IntentGeneralQuestion, 0.5, nil
	}

	var parsed struct {
		Intent     string         `json:"intent"`
		Confidence float64        `json:"confidence"`
		Entities   map[string]any `json:"entities"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || !validIntents[parsed.Intent] {
		tr.Reflect("unparseable intent reply, defaulting to general_question", 0.5)
		return IntentGeneralQuestion, 0.5, nil
	}
	if parsed.Confidence <= 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0.5
	}
	return parsed.Intent, parsed.Confidence, parsed.Entities
}

// stripFences removes a markdown code fence the model sometimes wraps JSON
// in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
