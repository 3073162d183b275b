package trace

import (
	"fmt"
	"strings"
)

var stepGlyphs = map[ThoughtType]string{
	Observation: "👁️",
	Analysis:    "🔍",
	Hypothesis:  "💭",
	ActionStep:  "⚡",
	Reflection:  "🔄",
	Conclusion:  "✅",
}

var stepLabels = map[string]map[ThoughtType]string{
	"en": {
		Observation: "Observing",
		Analysis:    "Analyzing",
		Hypothesis:  "Considering",
		ActionStep:  "Acting",
		Reflection:  "Reflecting",
		Conclusion:  "Concluding",
	},
	"hi": {
		Observation: "देख रहा हूं",
		Analysis:    "विश्लेषण कर रहा हूं",
		Hypothesis:  "सोच रहा हूं",
		ActionStep:  "कार्रवाई कर रहा हूं",
		Reflection:  "पुनर्विचार कर रहा हूं",
		Conclusion:  "निष्कर्ष निकाल रहा हूं",
	},
}

// Display renders a trace as the user-facing "thinking" transcript. The
// language selects localized step labels, falling back to English.
func (t *Trace) Display(language string) string {
	labels, ok := stepLabels[language]
	if !ok {
		labels = stepLabels["en"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🤖 %s\n", t.AgentName)
	for _, s := range t.Steps {
		fmt.Fprintf(&b, "%s %s: %s\n", stepGlyphs[s.Kind], labels[s.Kind], s.Content)
	}
	if t.FinalDecision != "" {
		fmt.Fprintf(&b, "→ %s (%.0f%% confident)\n", t.FinalDecision, t.TotalConfidence*100)
	}
	return b.String()
}
