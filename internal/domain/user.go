package domain

import (
	"fmt"
	"time"
)

// Role enumerates the organizational roles a user can hold.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDirector Role = "DIRECTOR"
	RoleLead     Role = "LEAD"
	RoleUser     Role = "USER"
)

// ParseRole validates a stored role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDirector, RoleLead, RoleUser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Area is the organizational unit that scopes assignment and visibility.
type Area string

const (
	AreaDesign Area = "DESIGN"
	AreaAds    Area = "ADS"
	AreaAdmin  Area = "ADMIN"
)

// Areas lists every area in a stable order.
var Areas = []Area{AreaDesign, AreaAds, AreaAdmin}

// ParseArea validates an area string.
func ParseArea(s string) (Area, error) {
	switch Area(s) {
	case AreaDesign, AreaAds, AreaAdmin:
		return Area(s), nil
	default:
		return "", fmt.Errorf("unknown area %q", s)
	}
}

// User is a member of staff who creates and works requests.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Area      Area
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID string
	Role   Role
	Area   Area
}

// SystemActor is used by scheduled jobs. It has no user id.
var SystemActor = Actor{Role: RoleAdmin}

// ActorFor builds the actor for an authenticated user.
func ActorFor(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role, Area: u.Area}
}

// IsSystem reports whether the actor is a background job.
func (a Actor) IsSystem() bool {
	return a.UserID == ""
}

// ActorID returns the user id or nil for the system actor.
func (a Actor) ActorID() *string {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}
