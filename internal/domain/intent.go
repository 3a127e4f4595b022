package domain

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentThanks       Intent = "thanks"
	IntentHelp         Intent = "help"
	IntentConversation Intent = "conversation"
	IntentBotIdentity  Intent = "bot_identity"
	IntentCapabilities Intent = "capabilities"
	IntentReport       Intent = "report"
	IntentAffirmative  Intent = "affirmative"
	IntentNegative     Intent = "negative"
	IntentWeather      Intent = "weather"
	IntentUnknown      Intent = "unknown"
)

var knownIntents = map[Intent]bool{
	IntentGreeting:     true,
	IntentFarewell:     true,
	IntentThanks:       true,
	IntentHelp:         true,
	IntentConversation: true,
	IntentBotIdentity:  true,
	IntentCapabilities: true,
	IntentReport:       true,
	IntentAffirmative:  true,
	IntentNegative:     true,
	IntentWeather:      true,
	IntentUnknown:      true,
}

// ParseIntent maps a label to a known Intent. Unrecognized labels return
// IntentUnknown and false.
func ParseIntent(label string) (Intent, bool) {
	i := Intent(label)
	if knownIntents[i] {
		return i, true
	}
	return IntentUnknown, false
}

func (i Intent) String() string { return string(i) }

// IsSmallTalk reports whether the intent is answered from templates alone,
// without touching conversation slots.
func (i Intent) IsSmallTalk() bool {
	switch i {
	case IntentGreeting, IntentThanks, IntentHelp, IntentConversation, IntentBotIdentity, IntentCapabilities:
		return true
	}
	return false
}
