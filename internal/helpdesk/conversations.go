package helpdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Conversation is one normalized conversation event: who talked, on which
// channel, assigned to which coach, and when the last activity happened.
// Malformed API records are skipped during parsing rather than surfaced.
type Conversation struct {
	ID        string
	MemberID  string
	CoachID   string // empty when unassigned
	Channel   string
	Timestamp time.Time
}

// ConversationPage is one page of conversation search results.
type ConversationPage struct {
	Conversations []Conversation
	NextCursor    string // empty when this was the last page
	TotalCount    int
}

type searchTerm struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

type searchQuery struct {
	Operator string       `json:"operator"`
	Value    []searchTerm `json:"value"`
}

type searchPagination struct {
	PerPage       int    `json:"per_page"`
	StartingAfter string `json:"starting_after,omitempty"`
}

type searchRequest struct {
	Query      searchQuery       `json:"query"`
	Pagination *searchPagination `json:"pagination,omitempty"`
}

type conversationPayload struct {
	ID              string       `json:"id"`
	UpdatedAt       int64        `json:"updated_at"`
	AdminAssigneeID *json.Number `json:"admin_assignee_id"`
	Source          *struct {
		Type string `json:"type"`
	} `json:"source"`
	Contacts *struct {
		Contacts []struct {
			ID string `json:"id"`
		} `json:"contacts"`
	} `json:"contacts"`
}

type pagesPayload struct {
	Next *struct {
		StartingAfter string `json:"starting_after"`
	} `json:"next"`
}

type conversationSearchResponse struct {
	Conversations []conversationPayload `json:"conversations"`
	Pages         *pagesPayload         `json:"pages"`
	TotalCount    int                   `json:"total_count"`
}

// SearchConversations fetches one page of conversations updated inside the
// [since, until) window, resuming from cursor when non-empty.
// Parameters:
//   - ctx: context for cancellation.
//   - since: lower bound of the window (inclusive).
//   - until: optional upper bound of the window, nil for "now".
//   - cursor: opaque resume token from the previous page, empty for the first page.
//   - perPage: page size requested from the API.
//   - deadline: step deadline used to clamp the call timeout.
//
// Returns:
//   - *ConversationPage: parsed page with the next resume token.
//   - error: RemoteError, TransientTimeoutError, or transport failure.
func (c *Client) SearchConversations(ctx context.Context, since time.Time, until *time.Time, cursor string, perPage int, deadline time.Time) (*ConversationPage, error) {
	terms := []searchTerm{
		{Field: "updated_at", Operator: ">", Value: since.Unix()},
	}
	if until != nil {
		terms = append(terms, searchTerm{Field: "updated_at", Operator: "<", Value: until.Unix()})
	}

	req := searchRequest{
		Query:      searchQuery{Operator: "AND", Value: terms},
		Pagination: &searchPagination{PerPage: perPage},
	}
	if cursor != "" {
		req.Pagination.StartingAfter = cursor
	}

	var resp conversationSearchResponse
	if err := c.do(ctx, http.MethodPost, "/conversations/search", req, &resp, deadline); err != nil {
		return nil, err
	}

	page := &ConversationPage{
		Conversations: make([]Conversation, 0, len(resp.Conversations)),
		TotalCount:    resp.TotalCount,
	}
	for _, p := range resp.Conversations {
		if conv, ok := parseConversation(p); ok {
			page.Conversations = append(page.Conversations, conv)
		}
	}
	if resp.Pages != nil && resp.Pages.Next != nil {
		page.NextCursor = resp.Pages.Next.StartingAfter
	}
	return page, nil
}

// parseConversation narrows one raw API record into a Conversation. Records
// without a contact or a usable timestamp are dropped.
func parseConversation(p conversationPayload) (Conversation, bool) {
	if p.ID == "" || p.UpdatedAt <= 0 {
		return Conversation{}, false
	}
	if p.Contacts == nil || len(p.Contacts.Contacts) == 0 || p.Contacts.Contacts[0].ID == "" {
		return Conversation{}, false
	}

	conv := Conversation{
		ID:        p.ID,
		MemberID:  p.Contacts.Contacts[0].ID,
		Channel:   "unknown",
		Timestamp: time.Unix(p.UpdatedAt, 0).UTC(),
	}
	if p.Source != nil && p.Source.Type != "" {
		conv.Channel = p.Source.Type
	}
	if p.AdminAssigneeID != nil {
		conv.CoachID = p.AdminAssigneeID.String()
	}
	return conv, true
}
