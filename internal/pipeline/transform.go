package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// UserHeader carries the authenticated user when the request body omits it.
const UserHeader = "user_id"

var errEmptyMessage = errors.New("empty message")

// ParseRequest decodes a chat request from a raw Kafka message. The
// conversation ID falls back to the message key, and the user ID to the
// user_id header.
func ParseRequest(raw domain.RawMessage) (domain.ChatRequest, error) {
	var req domain.ChatRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.ChatRequest{}, fmt.Errorf("decode chat request: %w", err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.ChatRequest{}, errEmptyMessage
	}
	if req.ConversationID == "" {
		req.ConversationID = raw.ConversationKey()
	}
	if req.UserID == "" {
		req.UserID = raw.Headers[UserHeader]
	}
	return req, nil
}

// groupByConversation splits a batch into per-conversation slices, keeping
// arrival order inside each group and first-seen order across groups.
// Requests without a conversation ID each form their own group.
func groupByConversation(items []pending) [][]pending {
	index := make(map[string]int)
	var groups [][]pending
	for _, it := range items {
		id := it.req.ConversationID
		if id == "" {
			groups = append(groups, []pending{it})
			continue
		}
		if i, ok := index[id]; ok {
			groups[i] = append(groups[i], it)
			continue
		}
		index[id] = len(groups)
		groups = append(groups, []pending{it})
	}
	return groups
}
