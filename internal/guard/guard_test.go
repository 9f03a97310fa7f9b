package guard

import (
	"strings"
	"testing"
)

func TestFilter_Classification(t *testing.T) {
	t.Parallel()

	f := New(Config{})

	tests := []struct {
		name     string
		input    string
		wantRule string
	}{
		{
			name:     "crisis language",
			input:    "You should consider suicide is a serious risk",
			wantRule: RuleCrisis,
		},
		{
			name:     "crisis language uppercase",
			input:    "DO NOT HURT YOURSELF",
			wantRule: RuleCrisis,
		},
		{
			name:     "diagnostic language",
			input:    "I think you have generalized anxiety disorder",
			wantRule: RuleMedical,
		},
		{
			name:     "prescription language",
			input:    "You should ask for a higher dosage of that medication",
			wantRule: RuleMedical,
		},
		{
			name:     "off topic weather",
			input:    "Let's talk about the weather today",
			wantRule: RuleOffTopic,
		},
		{
			name:     "off topic technology",
			input:    "Here is how to solve your programming question",
			wantRule: RuleOffTopic,
		},
		{
			name:     "no wellbeing vocabulary",
			input:    "That's an interesting perspective.",
			wantRule: RuleRefocus,
		},
		{
			name:     "empty input",
			input:    "",
			wantRule: RuleRefocus,
		},
		{
			name:     "on topic passes through",
			input:    "I hear that you're feeling anxious about this.",
			wantRule: "",
		},
		{
			name:     "coping strategies pass through",
			input:    "Practicing mindfulness can help with stress.",
			wantRule: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := f.Filter(tt.input)
			if got.Rule != tt.wantRule {
				t.Fatalf("Filter(%q).Rule = %q, want %q", tt.input, got.Rule, tt.wantRule)
			}
			if tt.wantRule == "" && got.Text != tt.input {
				t.Errorf("pass-through modified the text: %q", got.Text)
			}
			if tt.wantRule != "" && got.Text == tt.input {
				t.Errorf("matched rule %q but text was not replaced", tt.wantRule)
			}
		})
	}
}

func TestFilter_CrisisMessageNames988(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	got := f.Filter("You should consider suicide is a serious risk")

	if !strings.Contains(got.Text, "988") {
		t.Errorf("crisis replacement does not name 988: %q", got.Text)
	}
	if !strings.Contains(strings.ToLower(got.Text), "emergency") {
		t.Errorf("crisis replacement does not reference emergency services: %q", got.Text)
	}
}

func TestFilter_PriorityOrder(t *testing.T) {
	t.Parallel()

	f := New(Config{})

	// Crisis outranks off-topic when both match.
	got := f.Filter("before the weather turns, remember suicide prevention resources")
	if got.Rule != RuleCrisis {
		t.Fatalf("Rule = %q, want %q (crisis must win over off-topic)", got.Rule, RuleCrisis)
	}

	// Crisis outranks medical.
	got = f.Filter("a diagnosis won't matter if you end it all")
	if got.Rule != RuleCrisis {
		t.Fatalf("Rule = %q, want %q (crisis must win over medical)", got.Rule, RuleCrisis)
	}

	// Medical outranks off-topic.
	got = f.Filter("the weather affects your disorder")
	if got.Rule != RuleMedical {
		t.Fatalf("Rule = %q, want %q (medical must win over off-topic)", got.Rule, RuleMedical)
	}
}

// The canned replacements must not contain trigger phrases, so running the
// filter over its own output is a fixed point.
func TestFilter_Idempotent(t *testing.T) {
	t.Parallel()

	f := New(Config{})

	inputs := []string{
		"thinking about suicide",
		"you have a disorder",
		"nice weather today",
		"something entirely unrelated",
	}

	for _, input := range inputs {
		once := f.Filter(input)
		twice := f.Filter(once.Text)
		if twice.Text != once.Text {
			t.Errorf("not idempotent for %q:\n first: %q\nsecond: %q", input, once.Text, twice.Text)
		}
		if twice.Rule != "" {
			t.Errorf("canned replacement for %q re-triggered rule %q", input, twice.Rule)
		}
	}
}

func TestFilter_GarbageInput(t *testing.T) {
	t.Parallel()

	f := New(Config{})

	// Must never fail, whatever the input looks like.
	for _, input := range []string{
		"",
		"\x00\x01\x02",
		strings.Repeat("a", 1<<16),
		"{\"json\": true}",
		"ユーザーの気持ちに寄り添う",
	} {
		got := f.Filter(input)
		if got.Text == "" && f.refocus != "" {
			t.Errorf("empty output for input %q", input)
		}
	}
}

func TestFilter_CustomRules(t *testing.T) {
	t.Parallel()

	f := New(Config{
		Rules: []Rule{
			{Name: "banned", Phrases: []string{"Verboten"}, Replacement: "let's talk feelings instead"},
		},
		Focus:   []string{"feelings"},
		Refocus: "back to your feelings",
	})

	got := f.Filter("this is VERBOTEN content")
	if got.Rule != "banned" {
		t.Fatalf("Rule = %q, want custom rule (case-insensitive match)", got.Rule)
	}
	if got.Text != "let's talk feelings instead" {
		t.Errorf("Text = %q, want custom replacement", got.Text)
	}

	got = f.Filter("no vocabulary overlap here")
	if got.Rule != RuleRefocus || got.Text != "back to your feelings" {
		t.Errorf("custom refocus not applied: %+v", got)
	}
}
