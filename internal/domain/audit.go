package domain

import "time"

// EntityType names the kind of record an audit entry describes.
type EntityType string

const (
	EntityRequest       EntityType = "REQUEST"
	EntityBillingPeriod EntityType = "BILLING_PERIOD"
	EntityReport        EntityType = "REPORT"
)

// ChangeKind captures what changed in an audit entry.
type ChangeKind string

const (
	ChangeInsert      ChangeKind = "INSERT"
	ChangeUpdate      ChangeKind = "UPDATE"
	ChangeAssignment  ChangeKind = "ASSIGNMENT"
	ChangeStateChange ChangeKind = "STATE_CHANGE"
	ChangePause       ChangeKind = "PAUSE"
	ChangeResume      ChangeKind = "RESUME"
	ChangeArchive     ChangeKind = "ARCHIVE"
	ChangeClose       ChangeKind = "CLOSE"
	ChangeInvoice     ChangeKind = "INVOICE"
	ChangeLink        ChangeKind = "LINK"
)

// AuditEntry is an append-only record of a field change.
type AuditEntry struct {
	ID         string
	EntityType EntityType
	EntityID   string
	Kind       ChangeKind
	Field      string
	OldValue   *string
	NewValue   *string
	ActorID    *string
	Note       string
	CreatedAt  time.Time
}
