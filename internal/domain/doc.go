// Package domain models the weather chat dialogue: intents, slots, replies and
// the external collaborators the dialogue engine consumes.
//
// # Conversation model
//
// A conversation is identified by an opaque context ID chosen by the transport
// (HTTP session, Kafka message key, CLI session). Each inbound user message is
// one turn. The only state carried between turns is the conversation context
// held by the session store:
//
//	last_intent  intent classified on the previous turn
//	city         normalized city name, e.g. "santa marta"
//	days         forecast horizon, 1-based (see below)
//
// # Day-offset convention
//
// Forecast horizons use a 1-based convention: today is 1, tomorrow is 2,
// "pasado mañana" is 3 and "en N días" is N+1. Zero means "unspecified" and
// always triggers a clarifying question, never a forecast for today.
//
// # Intents
//
// Every message receives exactly one [Intent]. Classification is a fixed
// priority cascade (report, configured patterns, conversation questions,
// short affirmative/negative answers, weather, unknown); see package intent.
//
// # Collaborators
//
// Forecast values, final phrasing and report files come from outside the
// dialogue engine through [ForecastProvider], [PhraseProvider] and
// [ReportProvider]. Their failures are wrapped in [ProviderError] and turned
// into a safe apology for the user; [ErrAuthenticationRequired] is surfaced as
// a distinct reply kind so transports can ask the user to log in.
package domain
