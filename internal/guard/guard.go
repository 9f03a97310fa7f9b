// Package guard applies an ordered keyword rewrite policy to candidate
// model responses before they reach the user. It is a layered filter, not a
// classifier: rules are evaluated in priority order, the first match wins,
// and a match replaces the entire response. Partial redaction is never
// attempted because it risks leaving harmful fragments behind.
package guard

import "strings"

// Rule names reported in Result and used as metric labels.
const (
	RuleCrisis   = "crisis"
	RuleMedical  = "medical_advice"
	RuleOffTopic = "off_topic"
	RuleRefocus  = "refocus"
)

// Rule pairs a phrase list with its replacement text. If any phrase occurs
// in the response (case-insensitive substring), the whole response is
// replaced with Replacement.
type Rule struct {
	Name        string   `yaml:"name"`
	Phrases     []string `yaml:"phrases"`
	Replacement string   `yaml:"replacement"`
}

// Result is the outcome of filtering one response.
type Result struct {
	// Text is the response to show to the user.
	Text string

	// Rule is the name of the rule that triggered, or empty when the
	// response passed through unchanged.
	Rule string
}

// Filter holds the compiled rule table. It is immutable after construction
// and safe for concurrent use. Filtering is pure and deterministic: the
// same lists and input always produce the same output, and no input can
// make it fail.
type Filter struct {
	rules []compiledRule

	// focus is the wellbeing vocabulary. A response matching no rule must
	// still contain at least one focus term, otherwise it is replaced with
	// the refocus message.
	focus []string

	refocus string
}

type compiledRule struct {
	name        string
	phrases     []string // lowercased
	replacement string
}

// Config overrides the built-in rule table. Empty fields keep the defaults,
// so deployments can tune or localize a single list without restating the
// whole policy.
type Config struct {
	Rules   []Rule   `yaml:"rules"`
	Focus   []string `yaml:"focus"`
	Refocus string   `yaml:"refocus"`
}

// New builds a Filter from cfg, falling back to the default policy for any
// part left unset.
func New(cfg Config) *Filter {
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	focus := cfg.Focus
	if len(focus) == 0 {
		focus = DefaultFocus()
	}
	refocus := cfg.Refocus
	if refocus == "" {
		refocus = DefaultRefocus
	}

	f := &Filter{refocus: refocus}
	for _, r := range rules {
		cr := compiledRule{name: r.Name, replacement: r.Replacement}
		for _, p := range r.Phrases {
			if p == "" {
				continue
			}
			cr.phrases = append(cr.phrases, strings.ToLower(p))
		}
		f.rules = append(f.rules, cr)
	}
	for _, term := range focus {
		if term == "" {
			continue
		}
		f.focus = append(f.focus, strings.ToLower(term))
	}
	return f
}

// Filter evaluates the rule table against response and returns the text to
// deliver. Rules run in table order; the crisis rule sits first because
// safety outranks topicality.
func (f *Filter) Filter(response string) Result {
	lower := strings.ToLower(response)

	for _, r := range f.rules {
		for _, phrase := range r.phrases {
			if strings.Contains(lower, phrase) {
				return Result{Text: r.replacement, Rule: r.name}
			}
		}
	}

	for _, term := range f.focus {
		if strings.Contains(lower, term) {
			return Result{Text: response}
		}
	}

	return Result{Text: f.refocus, Rule: RuleRefocus}
}
