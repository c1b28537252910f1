// Package audit is the append-only ledger of security-relevant events.
// Immutability is enforced at this boundary: the public contract exposes
// append and query, nothing else, even though the underlying store could
// technically mutate rows.
package audit

import "time"

type ActionKind string

const (
	ActionLogin            ActionKind = "login"
	ActionLoginFailure     ActionKind = "login_failure"
	ActionLogout           ActionKind = "logout"
	ActionRead             ActionKind = "read"
	ActionWrite            ActionKind = "write"
	ActionPermissionDenied ActionKind = "permission_denied"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is immutable once appended. Seq is assigned by the store,
// gap-free and monotonic even under concurrent writers.
type Entry struct {
	Seq        int64      `json:"seq"`
	Timestamp  time.Time  `json:"timestamp"`
	UserID     *int64     `json:"user_id,omitempty"`
	Role       string     `json:"role,omitempty"`
	Action     ActionKind `json:"action"`
	Resource   string     `json:"resource,omitempty"`
	ResourceID string     `json:"resource_id,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	Reason     string     `json:"reason,omitempty"`
}

// QueryFilter narrows a trail query. Nil fields match everything.
type QueryFilter struct {
	UserID *int64
	Action *ActionKind
	From   *time.Time
	To     *time.Time
	Limit  int
}

// Repository is append-and-query only by design.
type Repository interface {
	Append(entry *Entry) error
	Query(filter QueryFilter) ([]*Entry, error)
}
