package assistant

import (
	"regexp"
	"strings"
)

// Intent is the classifier's tag for a clinician query.
type Intent string

const (
	IntentStatus     Intent = "status"
	IntentCriteria   Intent = "criteria"
	IntentEscalation Intent = "escalation"
	IntentContacts   Intent = "contacts"
	IntentProtocol   Intent = "protocol"
	IntentFallback   Intent = "fallback"
)

// IntentClassifier maps raw input onto an Intent.
type IntentClassifier interface {
	Classify(input string) Intent
}

// Rule pairs a predicate over lowercased input with the intent it selects.
type Rule struct {
	Intent  Intent
	Matches func(lower string) bool
}

// Classifier evaluates its rules top-down; the first match wins.
//
// The order is observable: "urgent status report" is a status lookup, not an
// escalation, because the status rule is checked first.
type Classifier struct {
	rules []Rule
}

var wholeWordPE = regexp.MustCompile(`\bpe\b`)

// DefaultRules returns the production rule order.
func DefaultRules() []Rule {
	return []Rule{
		{Intent: IntentStatus, Matches: containsAny("status", "chest ct", "report")},
		{Intent: IntentCriteria, Matches: func(lower string) bool {
			return containsAny("acr", "criteria", "appropriateness")(lower) || wholeWordPE.MatchString(lower)
		}},
		{Intent: IntentEscalation, Matches: containsAny("urgent", "stroke", "critical", "dissection")},
		{Intent: IntentContacts, Matches: containsAny("who", "call", "contact", "covers", "pager", "reach", "after hours")},
		{Intent: IntentProtocol, Matches: containsAny("protocol", "how")},
	}
}

// NewClassifier builds a classifier. With no rules it uses DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the intent of the first matching rule, or IntentFallback.
func (c *Classifier) Classify(input string) Intent {
	lower := strings.ToLower(input)
	for _, rule := range c.rules {
		if rule.Matches != nil && rule.Matches(lower) {
			return rule.Intent
		}
	}
	return IntentFallback
}

func containsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// EscalationKind distinguishes the two escalation templates.
type EscalationKind string

const (
	EscalationDissection EscalationKind = "dissection"
	EscalationStroke     EscalationKind = "stroke"
)

// ClassifyEscalation picks the escalation template from the raw input.
func ClassifyEscalation(input string) EscalationKind {
	if strings.Contains(strings.ToLower(input), "dissection") {
		return EscalationDissection
	}
	return EscalationStroke
}

// Label is the short human description used in alerts.
func (k EscalationKind) Label() string {
	if k == EscalationDissection {
		return "Suspected aortic dissection"
	}
	return "Stroke alert"
}
