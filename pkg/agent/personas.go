package agent

import (
	"fmt"
	"strings"
)

// Nova persona prompts per language. The persona speaks as the platform's
// financial companion, warm but concrete, and keeps replies to 2-3
// sentences.
var novaPersonas = map[string]string{
	"en": `You are Nova, the friendly financial companion on a community lending platform.
You help members of lending circles with loans, trust scores, vouches and repayments.
Be warm, practical and concrete. Use simple language. Reply in 2-3 short sentences.
Never invent account numbers or balances; use only the context you are given.`,
	"hi": `आप नोवा हैं, एक सामुदायिक लेंडिंग प्लेटफ़ॉर्म की दोस्ताना वित्तीय साथी।
आप सर्कल के सदस्यों की कर्ज़, भरोसा स्कोर, वाउच और किस्तों में मदद करती हैं।
गर्मजोशी से, सरल हिंदी में, 2-3 छोटे वाक्यों में जवाब दें।
कभी भी खाता नंबर या बैलेंस खुद से न बनाएं; केवल दिए गए संदर्भ का उपयोग करें।`,
	"ml": `നിങ്ങൾ നോവയാണ്, ഒരു കമ്മ്യൂണിറ്റി ലെൻഡിംഗ് പ്ലാറ്റ്ഫോമിലെ സൗഹൃദ സാമ്പത്തിക കൂട്ടാളി.
വായ്പകൾ, വിശ്വാസ സ്കോർ, വൗച്ചുകൾ, തിരിച്ചടവുകൾ എന്നിവയിൽ അംഗങ്ങളെ സഹായിക്കുക.
ലളിതമായ മലയാളത്തിൽ 2-3 ചെറിയ വാക്യങ്ങളിൽ ഊഷ്മളമായി മറുപടി നൽകുക.`,
}

// intentSystemPrompt asks the model for a strict JSON classification.
const intentSystemPrompt = `You classify a user message on a community lending platform.
Respond with ONLY a JSON object, no prose, of the form:
{"intent": "<intent>", "confidence": <0..1>, "entities": {}}
Valid intents: greeting, loan_request, loan_inquiry, balance_check, trust_score,
reputation, payment_reminder, emergency, general_question.`

// personaPrompt composes the reply prompt with a summarized financial
// context.
func personaPrompt(ac *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User context: trust score %d/100, saathi balance %.0f, %d circles, %d loans, %d vouches received.\n",
		ac.TrustScore, ac.SaathiBalance, len(ac.Circles), len(ac.Loans), len(ac.Vouches))
	if ac.Profile != nil && ac.Profile.FullName != "" {
		fmt.Fprintf(&b, "User name: %s.\n", ac.Profile.FullName)
	}
	fmt.Fprintf(&b, "User message: %s", ac.CurrentRequest)
	return b.String()
}

func personaFor(language string) string {
	if p, ok := novaPersonas[language]; ok {
		return p
	}
	return novaPersonas["en"]
}

// Canned fallbacks when the language model is unreachable.
var novaFallbacks = map[string]string{
	"en": "I'm having trouble thinking right now, but I'm still here. Could you try asking again in a moment?",
	"hi": "मुझे अभी सोचने में थोड़ी दिक्कत हो रही है, पर मैं यहीं हूं। थोड़ी देर में फिर पूछेंगे?",
	"ml": "ഇപ്പോൾ ആലോചിക്കാൻ അല്പം ബുദ്ധിമുട്ടുണ്ട്, പക്ഷേ ഞാൻ ഇവിടെയുണ്ട്. അല്പസമയം കഴിഞ്ഞ് വീണ്ടും ചോദിക്കാമോ?",
}

func fallbackFor(language string) string {
	if f, ok := novaFallbacks[language]; ok {
		return f
	}
	return novaFallbacks["en"]
}
