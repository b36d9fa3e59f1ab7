package helpdesk

import (
	"context"
	"net/http"
	"time"
)

// MaxContactBatch is the hard per-call id limit the contact search API
// enforces. Callers chunk conservatively below this.
const MaxContactBatch = 50

// Contact is a hydrated member record.
type Contact struct {
	ID    string
	Name  string
	Email string
}

type contactPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contactSearchResponse struct {
	Data       []contactPayload `json:"data"`
	TotalCount int              `json:"total_count"`
}

// SearchContacts hydrates the given contact ids in a single call. Ids the
// API no longer knows about (merged or deleted contacts) are simply absent
// from the result; the caller is responsible for negative-caching them.
// Parameters:
//   - ctx: context for cancellation.
//   - ids: contact ids to hydrate, at most MaxContactBatch.
//   - deadline: step deadline used to clamp the call timeout.
//
// Returns:
//   - []Contact: contacts the API returned, possibly fewer than requested.
//   - error: RemoteError, TransientTimeoutError, or transport failure.
func (c *Client) SearchContacts(ctx context.Context, ids []string, deadline time.Time) ([]Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxContactBatch {
		ids = ids[:MaxContactBatch]
	}

	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	req := searchRequest{
		Query: searchQuery{
			Operator: "AND",
			Value:    []searchTerm{{Field: "id", Operator: "IN", Value: values}},
		},
	}

	var resp contactSearchResponse
	if err := c.do(ctx, http.MethodPost, "/contacts/search", req, &resp, deadline); err != nil {
		return nil, err
	}

	contacts := make([]Contact, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.ID == "" {
			continue
		}
		contacts = append(contacts, Contact{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	return contacts, nil
}
