package orchestrator

import (
	"fmt"

	"github.com/kredefy/backend/pkg/agent"
)

// fallbackResponse closes the synthesis priority chain when no agent
// produced anything usable.
const fallbackResponse = "How can I help you today?"

// responsePayload is the synthesized user-facing outcome of a pipeline.
type responsePayload struct {
	Message    string
	Action     string
	Target     string
	Data       map[string]any
	GuideSteps []agent.GuideStep
}

// synthesize picks the response from the result map. Priority: a concrete
// action beats free text beats advisory prose beats the trust visual beats
// the fallback. Missing or failed agent results are simply skipped.
func synthesize(ac *agent.Context) responsePayload {
	if res, ok := successPayload(ac, agent.ActionAgentName); ok {
		if action, ok := res.(agent.ActionResult); ok && action.Action != "" {
			message := action.Message
			if message == "" {
				message = "I'm on it!"
			}
			return responsePayload{
				Message:    message,
				Action:     action.Action,
				Target:     action.Target,
				Data:       action.State,
				GuideSteps: action.GuideSteps,
			}
		}
	}

	if res, ok := successPayload(ac, agent.NovaName); ok {
		if nova, ok := res.(agent.NovaResult); ok && nova.Response != "" {
			return responsePayload{Message: nova.Response}
		}
	}

	if res, ok := successPayload(ac, agent.LoanAdvisorName); ok {
		if advisor, ok := res.(agent.AdvisorResult); ok {
			rec := advisor.Recommendation
			if rec.CanBorrow && rec.Explanation != "" {
				return responsePayload{Message: rec.Explanation}
			}
			if !rec.CanBorrow && rec.Advice != "" {
				return responsePayload{Message: rec.Advice}
			}
		}
	}

	if res, ok := successPayload(ac, agent.TrustAnalyzerName); ok {
		if trust, ok := res.(agent.TrustResult); ok && trust.BharosaVisual.Display != "" {
			return responsePayload{
				Message: fmt.Sprintf("%s - %s", trust.BharosaVisual.Display, trust.BharosaVisual.Message),
			}
		}
	}

	return responsePayload{Message: fallbackResponse}
}

func successPayload(ac *agent.Context, name string) (any, bool) {
	res, ok := ac.Result(name)
	if !ok || !res.Success {
		return nil, false
	}
	return res.Payload, true
}
