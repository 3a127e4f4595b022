package domain

import (
	"context"
	"errors"
	"time"
)

// RawMessage is an unprocessed chat request read from the request topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ConversationKey returns the key used to serialize turns of one conversation.
func (m RawMessage) ConversationKey() string { return string(m.Key) }

// Error codes carried by ReplyMessage.
const (
	ErrorCodeAuthRequired = "authentication_required"
	ErrorCodeProvider     = "provider_error"
	ErrorCodeInternal     = "internal_error"
)

// ReplyMessage is the wire form of a Reply, shared by the HTTP and Kafka
// transports.
type ReplyMessage struct {
	Reply
	DownloadAvailable bool      `json:"download_available"`
	Error             string    `json:"error,omitempty"`
	RespondedAt       time.Time `json:"responded_at"`
}

// NewReplyMessage wraps reply with the error code for err, if any.
func NewReplyMessage(reply Reply, err error, at time.Time) ReplyMessage {
	return ReplyMessage{
		Reply:             reply,
		DownloadAvailable: reply.DownloadAvailable(),
		Error:             ErrorCode(err),
		RespondedAt:       at.UTC(),
	}
}

// ErrorCode classifies an error returned by the dialogue engine.
func ErrorCode(err error) string {
	var provErr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationRequired):
		return ErrorCodeAuthRequired
	case errors.As(err, &provErr):
		return ErrorCodeProvider
	default:
		return ErrorCodeInternal
	}
}
