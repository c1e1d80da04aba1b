// Package captcha detects Google anti-automation challenges and decides how
// a search run should respond to them.
package captcha

import "strings"

// markers are URL substrings that indicate a challenge or sorry page.
var markers = []string{
	"/sorry/",
	"google.com/sorry/index",
	"recaptcha",
	"captcha",
	"unusual traffic",
}

// IsChallenge reports whether a page URL is a challenge or block page.
// Matching is case-insensitive.
func IsChallenge(url string) bool {
	lower := strings.ToLower(url)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Action is what the controller should do after a challenge is detected.
type Action int

const (
	// ActionRetryVisible relaunches in visible mode so a human can solve
	// the challenge.
	ActionRetryVisible Action = iota
	// ActionWaitForHuman keeps the current visible page open and polls for
	// the challenge to clear.
	ActionWaitForHuman
	// ActionGiveUp abandons recovery and fails the search.
	ActionGiveUp
)

func (a Action) String() string {
	switch a {
	case ActionRetryVisible:
		return "retry_visible"
	case ActionWaitForHuman:
		return "wait_for_human"
	case ActionGiveUp:
		return "give_up"
	default:
		return "unknown"
	}
}

// DefaultMaxAttempts bounds recovery so a persistently blocked run
// terminates instead of looping.
const DefaultMaxAttempts = 3

// Policy tracks recovery attempts for one search run. Not safe for
// concurrent use; each run owns its own policy.
type Policy struct {
	MaxAttempts int
	attempts    int
}

// NewPolicy returns a recovery policy with the default attempt bound.
func NewPolicy() *Policy {
	return &Policy{MaxAttempts: DefaultMaxAttempts}
}

// Attempts returns how many recoveries have been consumed.
func (p *Policy) Attempts() int {
	return p.attempts
}

// Next consumes one recovery attempt and returns the action to take.
// headless reports the mode the challenge was hit in: a headless hit
// switches to visible, a visible hit waits for a human. Once the bound
// is exhausted every call returns ActionGiveUp.
func (p *Policy) Next(headless bool) Action {
	if p.attempts >= p.MaxAttempts {
		return ActionGiveUp
	}
	p.attempts++
	if headless {
		return ActionRetryVisible
	}
	return ActionWaitForHuman
}
