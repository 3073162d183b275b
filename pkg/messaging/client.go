// Package messaging implements the outbound notification port over an
// SMS/WhatsApp gateway with language-aware message templates.
package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

// Built-in templates keyed by template name then language. Placeholders use
// {name} syntax.
var templates = map[string]map[string]string{
	"loan_approved": {
		"en": "Good news {name}! Your circle approved your loan of ₹{amount}. It will reach your account shortly.",
		"hi": "खुशखबरी {name}! आपके सर्कल ने ₹{amount} का कर्ज़ मंज़ूर किया है। राशि जल्द आपके खाते में पहुंचेगी।",
		"ml": "സന്തോഷവാർത്ത {name}! നിങ്ങളുടെ സർക്കിൾ ₹{amount} വായ്പ അംഗീകരിച്ചു. തുക ഉടൻ അക്കൗണ്ടിലെത്തും.",
	},
	"loan_disbursed": {
		"en": "₹{amount} has been sent to your account, {name}. First repayment of ₹{emi} is due in a week.",
		"hi": "₹{amount} आपके खाते में भेज दिए गए हैं, {name}। पहली किस्त ₹{emi} एक हफ़्ते में देय है।",
	},
	"payment_reminder": {
		"en": "Reminder {name}: your repayment of ₹{emi} is due tomorrow. Paying on time grows your trust score.",
		"hi": "याद दिला दें {name}: आपकी ₹{emi} की किस्त कल देय है। समय पर भुगतान से भरोसा बढ़ता है।",
	},
	"vouch_received": {
		"en": "{voucher} just vouched for you with ₹{stake} SAATHI! Your trust score went up.",
		"hi": "{voucher} ने ₹{stake} साथी के साथ आपके लिए वाउच किया! आपका भरोसा स्कोर बढ़ गया।",
	},
}

// Client delivers templated messages through the gateway REST API.
type Client struct {
	httpClient *http.Client
	settings   config.MessagingSettings
	breaker    *resilience.Breaker
	retry      resilience.RetryConfig
}

// NewClient creates a messaging client guarded by the messaging breaker.
func NewClient(settings config.MessagingSettings, breaker *resilience.Breaker) *Client {
	retry := resilience.DefaultRetry
	retry.Retriable = ports.IsRetriable
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		settings:   settings,
		breaker:    breaker,
		retry:      retry,
	}
}

// SendTemplated renders the named template and delivers it over the given
// channel ("sms" or "whatsapp").
func (c *Client) SendTemplated(ctx context.Context, channel, phone, template, language string, params map[string]string) error {
	text, err := Render(template, language, params)
	if err != nil {
		return err
	}

	from := c.settings.FromNumber
	to := phone
	if channel == "whatsapp" {
		from = "whatsapp:" + c.settings.WhatsAppNumber
		to = "whatsapp:" + phone
	}

	_, err = resilience.Retry(ctx, "messaging.send", c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.breaker.Do(func() error {
			return c.sendOnce(ctx, from, to, text)
		})
	})
	return err
}

func (c *Client) sendOnce(ctx context.Context, from, to, text string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.settings.BaseURL, c.settings.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building message request: %w", err)
	}
	req.SetBasicAuth(c.settings.AccountSID, c.settings.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.NewDependencyError("messaging", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.NewDependencyError("messaging", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway rejected message: status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// Render fills the named template in the given language, falling back to
// English when the language variant is missing.
func Render(template, language string, params map[string]string) (string, error) {
	byLang, ok := templates[template]
	if !ok {
		return "", fmt.Errorf("unknown message template %q", template)
	}
	text, ok := byLang[language]
	if !ok {
		text = byLang["en"]
	}
	for key, value := range params {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text, nil
}
