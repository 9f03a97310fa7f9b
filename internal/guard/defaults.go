package guard

// Default replacement messages. Each one is written to contain at least one
// focus term and none of the trigger phrases, so filtering an already
// filtered response is a no-op.
const (
	// DefaultCrisisReplacement points the user at immediate help. 988 is
	// the US crisis line; the wording deliberately avoids repeating any
	// crisis-language trigger phrase.
	DefaultCrisisReplacement = "I notice you might be going through a really difficult time. " +
		"Your life has value and there are people who want to help. " +
		"Please consider reaching out to a mental health professional or a crisis helpline — " +
		"in the US you can call or text 988 at any time, or contact emergency services if you are in immediate danger. " +
		"How can we focus on finding some support and coping strategies for you right now?"

	DefaultMedicalReplacement = "I'm not able to offer medical advice or tell you what condition you might have — " +
		"that's something only a qualified clinician can assess. " +
		"What I can do is listen and support you. " +
		"How are these feelings affecting your day-to-day wellbeing?"

	DefaultOffTopicReplacement = "I'm here to provide psychological support and guidance. " +
		"Let's focus on how you're feeling and what's on your mind. " +
		"What would you like to talk about regarding your emotional wellbeing?"

	DefaultRefocus = "Let's take a moment to come back to you. " +
		"How are you feeling right now, and what's been on your mind lately?"
)

// DefaultRules returns the built-in rule table in priority order:
// crisis, then medical advice, then off-topic.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: RuleCrisis,
			Phrases: []string{
				"kill yourself",
				"suicide",
				"self-harm",
				"end it all",
				"not worth living",
				"hurt yourself",
				"overdose",
			},
			Replacement: DefaultCrisisReplacement,
		},
		{
			Name: RuleMedical,
			Phrases: []string{
				"diagnose",
				"diagnosis",
				"disorder",
				"syndrome",
				"prescribe",
				"prescription",
				"medication",
				"dosage",
			},
			Replacement: DefaultMedicalReplacement,
		},
		{
			Name: RuleOffTopic,
			Phrases: []string{
				"weather",
				"sports",
				"movie",
				"politics",
				"election",
				"stock market",
				"cryptocurrency",
				"homework",
				"math problem",
				"programming",
				"recipe",
				"shipping",
				"video game",
				"celebrity",
			},
			Replacement: DefaultOffTopicReplacement,
		},
	}
}

// DefaultFocus returns the wellbeing vocabulary used by the topicality check.
func DefaultFocus() []string {
	return []string{
		"feel",
		"emotion",
		"stress",
		"anxiety",
		"anxious",
		"support",
		"coping",
		"mental health",
		"wellbeing",
		"thoughts",
		"mood",
		"therapy",
		"counseling",
		"mindfulness",
		"self-care",
		"relationship",
	}
}
