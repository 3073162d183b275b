package agent

import (
	"time"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/trace"
)

// Context is the per-request behavioral snapshot shared by all agents in
// one pipeline run. It is created fresh per request, mutated only by
// appending traces and writing agent results, and discarded at response
// time. Agents run sequentially, so no locking is needed.
type Context struct {
	UserID         string
	Profile        *models.Profile
	TrustScore     int
	SaathiBalance  float64
	Language       string
	Circles        []models.Circle
	Loans          []models.Loan
	Vouches        []models.Vouch
	FinancialDiary []models.DiaryEntry
	CurrentRequest string

	// Now anchors every time-window computation (loan velocity, diary
	// recency) so a pipeline run is deterministic.
	Now time.Time

	Traces []*trace.Trace

	resultOrder []string
	results     map[string]*Result
}

// NewContext creates an empty context for the user.
func NewContext(userID string) *Context {
	return &Context{
		UserID:   userID,
		Language: "en",
		Now:      time.Now().UTC(),
		results:  make(map[string]*Result),
	}
}

// SetResult records an agent's result, preserving insertion order for
// synthesis tie-breaking. A repeated agent name overwrites in place.
func (c *Context) SetResult(name string, r *Result) {
	if _, exists := c.results[name]; !exists {
		c.resultOrder = append(c.resultOrder, name)
	}
	c.results[name] = r
}

// Result returns the named agent's result, if it ran.
func (c *Context) Result(name string) (*Result, bool) {
	r, ok := c.results[name]
	return r, ok
}

// ResultOrder returns agent names in the order their results were recorded.
func (c *Context) ResultOrder() []string {
	return append([]string(nil), c.resultOrder...)
}

// AddTrace appends a trace in agent-run order.
func (c *Context) AddTrace(t *trace.Trace) {
	c.Traces = append(c.Traces, t)
}

// ActiveLoans returns loans in a status that still owes money.
func (c *Context) ActiveLoans() []models.Loan {
	var out []models.Loan
	for _, l := range c.Loans {
		switch l.Status {
		case models.LoanStatusDisbursed, models.LoanStatusRepaying:
			out = append(out, l)
		}
	}
	return out
}

// ActiveVouches returns received vouches still at stake.
func (c *Context) ActiveVouches() []models.Vouch {
	var out []models.Vouch
	for _, v := range c.Vouches {
		if v.Status == models.VouchStatusActive {
			out = append(out, v)
		}
	}
	return out
}

// RecentIncome returns diary income entries recorded within the window
// before c.Now.
func (c *Context) RecentIncome(window time.Duration) []models.DiaryEntry {
	var out []models.DiaryEntry
	cutoff := c.Now.Add(-window)
	for _, e := range c.FinancialDiary {
		if e.EntryType == "income" && e.RecordedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
