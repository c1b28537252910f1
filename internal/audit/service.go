package audit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// Service serializes appends so sequence numbers never collide or skip.
type Service struct {
	repo   Repository
	table  rbac.Table
	logger *slog.Logger
	hooks  []func(Entry)

	mu sync.Mutex
}

func NewService(repo Repository, table rbac.Table, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		table:  table,
		logger: logger,
	}
}

// Record appends one entry to the trail. Callers invoke it before
// returning their own result, so a crash after the decision still leaves
// the decision on record.
func (s *Service) Record(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Append(&entry); err != nil {
		s.logger.Error("audit append failed",
			"action", entry.Action,
			"resource", entry.Resource,
			"error", err)
		return internal.ErrStorageFailure.WithCause(err)
	}

	for _, hook := range s.hooks {
		hook(entry)
	}
	return nil
}

// AddHook registers an observer invoked after each successful append.
// Hooks run under the append lock; they must be fast and must not call
// back into the service.
func (s *Service) AddHook(hook func(Entry)) {
	s.hooks = append(s.hooks, hook)
}

// Query returns trail entries in ascending sequence order. The query is
// admin-only; the authorization decision is itself appended to the trail
// before any result is returned, denial included.
func (s *Service) Query(sess *internal.SessionInfo, filter QueryFilter) ([]*Entry, error) {
	role := rbac.Role(sess.Role)

	if !s.table.Allowed(role, rbac.ActionRead, rbac.ResourceAudit) {
		s.logger.Warn("audit query denied", "user_id", sess.UserID, "role", sess.Role)
		if err := s.Record(Entry{
			UserID:   &sess.UserID,
			Role:     sess.Role,
			Action:   ActionPermissionDenied,
			Resource: string(rbac.ResourceAudit),
			Outcome:  OutcomeFailure,
			Reason:   "role lacks audit read permission",
		}); err != nil {
			return nil, err
		}
		return nil, internal.ErrAccessDenied
	}

	if err := s.Record(Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Action:   ActionRead,
		Resource: string(rbac.ResourceAudit),
		Outcome:  OutcomeSuccess,
	}); err != nil {
		return nil, err
	}

	entries, err := s.repo.Query(filter)
	if err != nil {
		s.logger.Error("audit query failed", "error", err, "user_id", sess.UserID)
		return nil, internal.ErrStorageFailure.WithCause(err)
	}
	return entries, nil
}
