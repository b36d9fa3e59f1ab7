package helpdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Admin is one entry from the coach/admin directory.
type Admin struct {
	ID    string
	Name  string
	Email string
}

type adminPayload struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

type adminListResponse struct {
	Admins []adminPayload `json:"admins"`
}

// ListAdmins fetches the full admin directory. The directory is small and
// unpaginated; jobs cache it with a short TTL.
func (c *Client) ListAdmins(ctx context.Context, deadline time.Time) ([]Admin, error) {
	var resp adminListResponse
	if err := c.do(ctx, http.MethodGet, "/admins", nil, &resp, deadline); err != nil {
		return nil, err
	}

	admins := make([]Admin, 0, len(resp.Admins))
	for _, p := range resp.Admins {
		if p.ID.String() == "" {
			continue
		}
		admins = append(admins, Admin{ID: p.ID.String(), Name: p.Name, Email: p.Email})
	}
	return admins, nil
}
