// Package orchestrator assembles the per-request context, routes it
// through the agent workflow selected by intent, and synthesizes the final
// response with the full reasoning audit trail.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/kredefy/backend/pkg/agent"
	"github.com/kredefy/backend/pkg/metrics"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
	"github.com/kredefy/backend/pkg/trace"
)

const (
	// contextReadTimeout bounds each store read during context assembly.
	contextReadTimeout = 3 * time.Second
	// diaryLimit bounds how much diary history an agent sees.
	diaryLimit = 50
)

// Workflow names, keyed by resolved intent.
const (
	workflowLoanRequest  = "loan_request"
	workflowTrustInquiry = "trust_inquiry"
	workflowVouchRequest = "vouch_request"
	workflowEmergency    = "emergency_request"
)

// workflows is the routing table. Every referenced agent must exist in the
// registry; New fails fast otherwise.
var workflows = map[string][]string{
	workflowLoanRequest:  {agent.FraudGuardName, agent.RiskOracleName, agent.LoanAdvisorName, agent.ActionAgentName},
	workflowTrustInquiry: {agent.TrustAnalyzerName, agent.ActionAgentName},
	workflowVouchRequest: {agent.FraudGuardName, agent.TrustAnalyzerName},
	workflowEmergency:    {agent.FraudGuardName, agent.RiskOracleName, agent.ActionAgentName},
}

// workflowForIntent maps a Nova intent to a workflow, or "" for
// single-agent dispatch.
func workflowForIntent(intent string) string {
	switch intent {
	case agent.IntentLoanRequest, agent.IntentLoanInquiry:
		return workflowLoanRequest
	case agent.IntentTrustScore, agent.IntentReputation:
		return workflowTrustInquiry
	case agent.IntentEmergency:
		return workflowEmergency
	default:
		return ""
	}
}

// Orchestrator owns the agent registry and drives pipelines.
type Orchestrator struct {
	store  ports.Store
	chain  ports.Blockchain
	tasks  *resilience.TaskManager
	agents map[string]agent.Agent
}

// New builds an orchestrator and validates the workflow table against the
// registered agents. An unknown agent name is a programming error caught
// here, at startup.
func New(store ports.Store, chain ports.Blockchain, tasks *resilience.TaskManager, agents ...agent.Agent) (*Orchestrator, error) {
	registry := make(map[string]agent.Agent, len(agents))
	for _, a := range agents {
		registry[a.Name()] = a
	}
	for name, sequence := range workflows {
		for _, agentName := range sequence {
			if _, ok := registry[agentName]; !ok {
				return nil, fmt.Errorf("workflow %s references unregistered agent %s", name, agentName)
			}
		}
	}
	return &Orchestrator{store: store, chain: chain, tasks: tasks, agents: registry}, nil
}

// BuildContext assembles the behavioral snapshot. The five store reads run
// concurrently, each bounded by contextReadTimeout; a failed read leaves
// its field empty and the pipeline continues on the partial snapshot.
func (o *Orchestrator) BuildContext(ctx context.Context, userID string) *agent.Context {
	ac := agent.NewContext(userID)

	var wg sync.WaitGroup
	read := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			readCtx, cancel := context.WithTimeout(ctx, contextReadTimeout)
			defer cancel()
			if err := fn(readCtx); err != nil {
				slog.Warn("Context assembly read failed, continuing with partial snapshot",
					"read", name,
					"user_id", userID,
					"error", err)
			}
		}()
	}

	read("profile", func(c context.Context) error {
		profile, err := o.store.GetProfile(c, userID)
		if err != nil {
			return err
		}
		ac.Profile = profile
		ac.TrustScore = profile.TrustScore
		ac.SaathiBalance = profile.SaathiBalance
		if profile.Language != "" {
			ac.Language = profile.Language
		}
		return nil
	})
	read("vouches", func(c context.Context) error {
		vouches, err := o.store.GetVouchesReceived(c, userID)
		if err != nil {
			return err
		}
		ac.Vouches = vouches
		return nil
	})
	read("loans", func(c context.Context) error {
		loans, err := o.store.GetUserLoans(c, userID)
		if err != nil {
			return err
		}
		ac.Loans = loans
		return nil
	})
	read("circles", func(c context.Context) error {
		circles, err := o.store.GetUserCircles(c, userID)
		if err != nil {
			return err
		}
		ac.Circles = circles
		return nil
	})
	read("diary", func(c context.Context) error {
		diary, err := o.store.GetDiaryEntries(c, userID, diaryLimit)
		if err != nil {
			return err
		}
		ac.FinancialDiary = diary
		return nil
	})

	wg.Wait()
	return ac
}

// runAgent executes one agent with panic containment, records its result
// and trace on the context, and counts the run.
func (o *Orchestrator) runAgent(ctx context.Context, name string, ac *agent.Context) *agent.Result {
	a, ok := o.agents[name]
	if !ok {
		// New validates the workflow table, so this is unreachable for
		// table-driven dispatch; it guards dynamic nextAgent values.
		slog.Error("Unknown agent requested", "agent", name)
		return nil
	}

	var result *agent.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Agent panicked", "agent", name, "panic", fmt.Sprint(r))
				tr := trace.New(name, "recovered panic")
				result = &agent.Result{
					AgentName: name,
					Success:   false,
					Error:     fmt.Sprintf("panic: %v", r),
					Trace:     tr,
				}
				tr.Reflect(fmt.Sprintf("panicked: %v", r), 0.2)
			}
		}()
		res, err := a.Execute(ctx, ac)
		if err != nil {
			tr := trace.New(name, "failed run")
			tr.Reflect("run failed: "+err.Error(), 0.3)
			res = &agent.Result{AgentName: name, Success: false, Error: err.Error(), Trace: tr}
		}
		result = res
	}()

	status := "success"
	if !result.Success {
		status = "failure"
	}
	metrics.AgentRuns.WithLabelValues(name, status).Inc()

	ac.SetResult(name, result)
	if result.Trace != nil {
		ac.AddTrace(result.Trace)
	}
	return result
}

// runWorkflow executes a named workflow sequentially, honoring request
// cancellation between agents.
func (o *Orchestrator) runWorkflow(ctx context.Context, name string, ac *agent.Context) {
	for _, agentName := range workflows[name] {
		if ctx.Err() != nil {
			slog.Warn("Pipeline cancelled mid-workflow", "workflow", name, "error", ctx.Err())
			return
		}
		o.runAgent(ctx, agentName, ac)
	}
}

// notarizeAssessment records the published risk score on chain in the
// background. The pipeline never blocks on the chain.
func (o *Orchestrator) notarizeAssessment(ac *agent.Context) {
	if o.chain == nil || o.tasks == nil || ac.Profile == nil || ac.Profile.WalletAddress == "" {
		return
	}
	res, ok := ac.Result(agent.RiskOracleName)
	if !ok || !res.Success {
		return
	}
	wallet := ac.Profile.WalletAddress
	score := ac.TrustScore
	o.tasks.Go("notarize_trust_score", func(taskCtx context.Context) error {
		txHash, err := o.chain.UpdateTrustScore(taskCtx, wallet, score)
		if err != nil {
			return fmt.Errorf("updating trust score on chain: %w", err)
		}
		slog.Info("Trust score notarized", "wallet", wallet, "tx_hash", txHash)
		return nil
	})
}

// ChatOutcome is the full result of processing one chat turn.
type ChatOutcome struct {
	Response      string            `json:"response"`
	Action        string            `json:"action,omitempty"`
	Target        string            `json:"target,omitempty"`
	Data          map[string]any    `json:"data,omitempty"`
	GuideSteps    []agent.GuideStep `json:"guide_steps,omitempty"`
	DisplayTraces []string          `json:"reasoning_traces"`
	Traces        []*trace.Trace    `json:"reasoning_traces_raw"`
	AgentsUsed    []string          `json:"agents_used"`
	Intent        string            `json:"intent"`
	DurationMS    int64             `json:"duration_ms"`
}

// ProcessMessage drives the chat pipeline: Nova first, then the workflow
// her intent selects.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userID, message, language string) (*ChatOutcome, error) {
	start := time.Now()

	ac := o.BuildContext(ctx, userID)
	ac.CurrentRequest = message
	if language != "" {
		ac.Language = language
	}

	novaResult := o.runAgent(ctx, agent.NovaName, ac)

	intent := "general_question"
	if nova, ok := novaResult.Payload.(agent.NovaResult); ok && nova.Intent != "" {
		intent = nova.Intent
	}

	workflowName := ""
	if novaResult.NextAgent != "" {
		if workflowName = workflowForIntent(intent); workflowName != "" {
			o.runWorkflow(ctx, workflowName, ac)
		} else if ctx.Err() == nil {
			o.runAgent(ctx, novaResult.NextAgent, ac)
		}
	}

	payload := synthesize(ac)
	o.notarizeAssessment(ac)

	duration := time.Since(start)
	metrics.PipelineDuration.WithLabelValues(orDefault(workflowName, "chat")).Observe(duration.Seconds())

	outcome := &ChatOutcome{
		Response:      payload.Message,
		Action:        payload.Action,
		Target:        payload.Target,
		Data:          payload.Data,
		GuideSteps:    payload.GuideSteps,
		DisplayTraces: displayTraces(ac),
		Traces:        ac.Traces,
		AgentsUsed:    ac.ResultOrder(),
		Intent:        intent,
		DurationMS:    duration.Milliseconds(),
	}
	slog.Info("Chat pipeline complete",
		"user_id", userID,
		"intent", intent,
		"agents", outcome.AgentsUsed,
		"duration_ms", outcome.DurationMS)
	return outcome, nil
}

// LoanDecision is the AI gate verdict on a loan request.
type LoanDecision struct {
	Approved        bool           `json:"approved"`
	ApprovedAmount  float64        `json:"approved_amount"`
	Reason          string         `json:"reason,omitempty"`
	Advice          string         `json:"advice,omitempty"`
	SuggestedAction string         `json:"suggested_action,omitempty"`
	RiskCategory    string         `json:"risk_category,omitempty"`
	FraudVerdict    string         `json:"fraud_verdict,omitempty"`
	OraclePayload   any            `json:"oracle_payload,omitempty"`
	DisplayTraces   []string       `json:"reasoning_traces"`
	Traces          []*trace.Trace `json:"reasoning_traces_raw"`
}

// ProcessLoanRequest runs the loan gate: fraud screen, risk scoring,
// affordability. A fraud BLOCK short-circuits into a decline.
func (o *Orchestrator) ProcessLoanRequest(ctx context.Context, userID string, amount float64, purpose, circleID string) (*LoanDecision, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(workflowLoanRequest).Observe(time.Since(start).Seconds())
	}()

	ac := o.BuildContext(ctx, userID)
	ac.CurrentRequest = fmt.Sprintf("loan request: ₹%.0f for %s in circle %s", amount, purpose, circleID)

	fraudRes := o.runAgent(ctx, agent.FraudGuardName, ac)
	if fraud, ok := fraudRes.Payload.(agent.FraudResult); ok {
		if fraud.Verdict == agent.VerdictBlock {
			return &LoanDecision{
				Approved:        false,
				Reason:          "fraud_check_failed",
				Advice:          "This request tripped our safety checks. Please contact your circle admin.",
				SuggestedAction: "contact_support",
				FraudVerdict:    fraud.Verdict,
				DisplayTraces:   displayTraces(ac),
				Traces:          ac.Traces,
			}, nil
		}
	}

	riskRes := o.runAgent(ctx, agent.RiskOracleName, ac)
	advisorRes := o.runAgent(ctx, agent.LoanAdvisorName, ac)

	decision := &LoanDecision{DisplayTraces: displayTraces(ac), Traces: ac.Traces}
	if fraud, ok := fraudRes.Payload.(agent.FraudResult); ok {
		decision.FraudVerdict = fraud.Verdict
	}

	maxByRisk := math.MaxFloat64
	if risk, ok := riskRes.Payload.(agent.RiskResult); ok {
		decision.RiskCategory = risk.Category
		decision.OraclePayload = risk.OraclePayload
		maxByRisk = risk.Recommendation.MaxLoan
	}

	if advisor, ok := advisorRes.Payload.(agent.AdvisorResult); ok {
		rec := advisor.Recommendation
		decision.Approved = rec.CanBorrow
		if !rec.CanBorrow {
			decision.Reason = rec.Reason
			decision.Advice = rec.Advice
			decision.SuggestedAction = rec.SuggestedAction
			return decision, nil
		}
		decision.ApprovedAmount = math.Min(amount, math.Min(rec.MaxAmount, maxByRisk))
	}

	o.notarizeAssessment(ac)
	return decision, nil
}

// VouchAssessment is the AI opinion on a proposed vouch.
type VouchAssessment struct {
	Recommended       bool           `json:"recommended"`
	VoucheeTrustScore int            `json:"vouchee_trust_score"`
	VouchQualityGrade string         `json:"vouch_quality_grade"`
	FraudVerdict      string         `json:"fraud_verdict"`
	DisplayTraces     []string       `json:"reasoning_traces"`
	Traces            []*trace.Trace `json:"reasoning_traces_raw"`
}

// ProcessVouchRequest screens the vouchee before a vouch is accepted.
func (o *Orchestrator) ProcessVouchRequest(ctx context.Context, voucherID, voucheeID, circleID, level string) (*VouchAssessment, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(workflowVouchRequest).Observe(time.Since(start).Seconds())
	}()

	ac := o.BuildContext(ctx, voucheeID)
	ac.CurrentRequest = fmt.Sprintf("vouch request: %s vouching %s at level %s", voucherID, voucheeID, level)

	o.runWorkflow(ctx, workflowVouchRequest, ac)

	assessment := &VouchAssessment{
		Recommended:       true,
		VoucheeTrustScore: ac.TrustScore,
		DisplayTraces:     displayTraces(ac),
		Traces:            ac.Traces,
	}
	if res, ok := ac.Result(agent.FraudGuardName); ok {
		if fraud, ok := res.Payload.(agent.FraudResult); ok {
			assessment.FraudVerdict = fraud.Verdict
			if fraud.Verdict == agent.VerdictBlock {
				assessment.Recommended = false
			}
		}
	}
	if res, ok := ac.Result(agent.TrustAnalyzerName); ok {
		if tr, ok := res.Payload.(agent.TrustResult); ok {
			assessment.VouchQualityGrade = tr.VouchQuality.Grade
		}
	}
	return assessment, nil
}

func displayTraces(ac *agent.Context) []string {
	out := make([]string, 0, len(ac.Traces))
	for _, t := range ac.Traces {
		out = append(out, t.Display(ac.Language))
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
