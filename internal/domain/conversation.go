package domain

// Context keys stored per conversation.
const (
	KeyLastIntent = "last_intent"
	KeyCity       = "city"
	KeyDays       = "days"
)

// Slots are the pieces of information a forecast request needs.
// The zero value of each field means "not filled".
type Slots struct {
	City string `json:"city,omitempty"`
	Days int    `json:"days,omitempty"`
}

// Filled reports whether both slots are set.
func (s Slots) Filled() bool { return s.City != "" && s.Days > 0 }

// ChatRequest is one inbound user message.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	UserID         string `json:"user_id,omitempty"` // empty when the user is anonymous
}

// ReplyKind tells the transport what sort of answer the engine produced.
type ReplyKind string

const (
	KindSmallTalk    ReplyKind = "small_talk"
	KindFarewell     ReplyKind = "farewell"
	KindAcknowledge  ReplyKind = "acknowledge"
	KindAskCity      ReplyKind = "ask_city"
	KindAskDays      ReplyKind = "ask_days"
	KindForecast     ReplyKind = "forecast"
	KindReport       ReplyKind = "report"
	KindAuthRequired ReplyKind = "auth_required"
	KindFallback     ReplyKind = "fallback"
	KindError        ReplyKind = "error"
)

// Artifact is a handle to a generated report file.
type Artifact struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// Reply is the assembled answer for one turn.
type Reply struct {
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"response"`
	Intent         Intent    `json:"intent"`
	Kind           ReplyKind `json:"kind"`
	Slots          Slots     `json:"slots"`
	TopicChanged   bool      `json:"topic_changed,omitempty"`
	Artifact       *Artifact `json:"report,omitempty"`
}

// DownloadAvailable reports whether the reply carries a report artifact.
func (r Reply) DownloadAvailable() bool { return r.Artifact != nil }
