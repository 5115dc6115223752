package domain

import "time"

// Report is a client-facing write-up that references requests.
type Report struct {
	ID                string
	ClientID          string
	Title             string
	Body              string
	CreatorID         string
	RelatedRequestIDs []string
	CreatedAt         time.Time
}

// Link appends ids not yet related, keeping order. It returns the ids added.
func (r *Report) Link(ids ...string) []string {
	seen := make(map[string]struct{}, len(r.RelatedRequestIDs)+len(ids))
	for _, id := range r.RelatedRequestIDs {
		seen[id] = struct{}{}
	}
	var added []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		r.RelatedRequestIDs = append(r.RelatedRequestIDs, id)
		added = append(added, id)
	}
	return added
}
