// Package policy decides which requests, clients and statistics an actor may
// see or change, based on role and area membership.
package policy

import (
	"context"
	"fmt"

	"github.com/spec-kit/request-desk/internal/domain"
)

// Members is the set of user ids belonging to an area.
type Members map[string]struct{}

// NewMembers builds a member set.
func NewMembers(ids ...string) Members {
	m := make(Members, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// Has reports membership.
func (m Members) Has(id string) bool {
	_, ok := m[id]
	return ok
}

// IDs returns the member ids.
func (m Members) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// Resource describes what is being accessed.
type Resource struct {
	Area     domain.Area
	OwnerIDs []string
	// Pending is true for unassigned queue items, which are visible to
	// everyone able to accept them.
	Pending bool
}

// RequestResource describes a request.
func RequestResource(r *domain.Request) Resource {
	return Resource{Area: r.Area, OwnerIDs: r.OwnerIDs(), Pending: r.State == domain.StatePending}
}

// HistoryResource describes an archived request.
func HistoryResource(h *domain.RequestHistory) Resource {
	owners := []string{h.CreatorID}
	if h.AssigneeID != nil {
		owners = append(owners, *h.AssigneeID)
	}
	return Resource{Area: h.Area, OwnerIDs: owners}
}

// ClientResource describes a client.
func ClientResource(c *domain.Client) Resource {
	return Resource{OwnerIDs: c.OwnerIDs()}
}

// StatisticResource describes a user's statistic row.
func StatisticResource(s *domain.UserStatistic) Resource {
	return Resource{OwnerIDs: []string{s.UserID}}
}

// IsPrivileged reports roles that may act on requests they do not own.
func IsPrivileged(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleDirector, domain.RoleLead:
		return true
	case domain.RoleUser:
		return false
	default:
		return false
	}
}

// CanManageBilling reports roles allowed to run aggregations and billing.
func CanManageBilling(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleDirector:
		return true
	case domain.RoleLead, domain.RoleUser:
		return false
	default:
		return false
	}
}

// AcceptableAreas lists the request areas an actor of area may take from the
// queue. Ads staff also cover administrative requests.
func AcceptableAreas(area domain.Area) []domain.Area {
	switch area {
	case domain.AreaAds:
		return []domain.Area{domain.AreaAds, domain.AreaAdmin}
	case domain.AreaDesign:
		return []domain.Area{domain.AreaDesign}
	case domain.AreaAdmin:
		return []domain.Area{domain.AreaAdmin}
	default:
		return nil
	}
}

// AcceptingAreas is the inverse of AcceptableAreas: the actor areas that may
// take a request of area.
func AcceptingAreas(area domain.Area) []domain.Area {
	var out []domain.Area
	for _, candidate := range domain.Areas {
		for _, a := range AcceptableAreas(candidate) {
			if a == area {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// CanAccept reports whether an actor may accept a request of area.
func CanAccept(actor domain.Actor, area domain.Area) bool {
	for _, a := range AcceptableAreas(actor.Area) {
		if a == area {
			return true
		}
	}
	return false
}

func owns(actorID string, res Resource) bool {
	for _, id := range res.OwnerIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

func anyMember(members Members, res Resource) bool {
	for _, id := range res.OwnerIDs {
		if members.Has(id) {
			return true
		}
	}
	return false
}

// CanView reports whether actor may read res. members is the actor's area
// member set and is only consulted for directors and leads.
func CanView(actor domain.Actor, res Resource, members Members) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleDirector, domain.RoleLead:
		if anyMember(members, res) || owns(actor.UserID, res) {
			return true
		}
		return res.Pending && CanAccept(actor, res.Area)
	case domain.RoleUser:
		if owns(actor.UserID, res) {
			return true
		}
		return res.Pending && CanAccept(actor, res.Area)
	default:
		return false
	}
}

// CanModify reports whether actor may change res. Queue visibility does not
// grant write access.
func CanModify(actor domain.Actor, res Resource, members Members) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleDirector, domain.RoleLead:
		return anyMember(members, res) || owns(actor.UserID, res)
	case domain.RoleUser:
		return owns(actor.UserID, res)
	default:
		return false
	}
}

// Scope is a list filter equivalent to CanView.
type Scope struct {
	Unrestricted bool
	// OwnerIDs matches rows created by or assigned to any of these users.
	OwnerIDs []string
	// PendingAreas matches pending rows in these areas.
	PendingAreas []domain.Area
}

// ScopeFor builds the list scope for actor.
func ScopeFor(actor domain.Actor, members Members) Scope {
	switch actor.Role {
	case domain.RoleAdmin:
		return Scope{Unrestricted: true}
	case domain.RoleDirector, domain.RoleLead:
		owners := members.IDs()
		if !members.Has(actor.UserID) {
			owners = append(owners, actor.UserID)
		}
		return Scope{OwnerIDs: owners, PendingAreas: AcceptableAreas(actor.Area)}
	case domain.RoleUser:
		return Scope{OwnerIDs: []string{actor.UserID}, PendingAreas: AcceptableAreas(actor.Area)}
	default:
		return Scope{}
	}
}

// AreaDirectory resolves area membership.
type AreaDirectory interface {
	ListIDsByArea(ctx context.Context, area domain.Area) ([]string, error)
}

// Resolver loads the member set only for roles that need it.
type Resolver struct {
	directory AreaDirectory
}

// NewResolver constructs a Resolver.
func NewResolver(directory AreaDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Members returns the actor's area members. Admins and plain users get nil.
func (r *Resolver) Members(ctx context.Context, actor domain.Actor) (Members, error) {
	switch actor.Role {
	case domain.RoleDirector, domain.RoleLead:
		ids, err := r.directory.ListIDsByArea(ctx, actor.Area)
		if err != nil {
			return nil, fmt.Errorf("load members of area %s: %w", actor.Area, err)
		}
		return NewMembers(ids...), nil
	case domain.RoleAdmin, domain.RoleUser:
		return nil, nil
	default:
		return nil, nil
	}
}

// Scope resolves members and builds the list scope.
func (r *Resolver) Scope(ctx context.Context, actor domain.Actor) (Scope, error) {
	members, err := r.Members(ctx, actor)
	if err != nil {
		return Scope{}, err
	}
	return ScopeFor(actor, members), nil
}

// CanView resolves members and checks visibility.
func (r *Resolver) CanView(ctx context.Context, actor domain.Actor, res Resource) (bool, error) {
	members, err := r.Members(ctx, actor)
	if err != nil {
		return false, err
	}
	return CanView(actor, res, members), nil
}

// CanModify resolves members and checks write access.
func (r *Resolver) CanModify(ctx context.Context, actor domain.Actor, res Resource) (bool, error) {
	members, err := r.Members(ctx, actor)
	if err != nil {
		return false, err
	}
	return CanModify(actor, res, members), nil
}
