package records

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/audit"
	"github.com/frahmantamala/clinical-records/internal/crypto"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// Service routes every record operation through authorization, the field
// cipher and the audit trail, in that order. Authorization is checked
// before existence so an unauthorized caller cannot probe which record
// ids exist.
type Service struct {
	repo    Repository
	cipher  FieldCipher
	auditor *audit.Service
	table   rbac.Table
	logger  *slog.Logger
}

func NewService(repo Repository, cipher FieldCipher, auditor *audit.Service, table rbac.Table, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cipher:  cipher,
		auditor: auditor,
		table:   table,
		logger:  logger,
	}
}

// Write encrypts every field and persists the envelope. An empty id
// creates a record; an existing id replaces its whole field set
// atomically. Exactly one audit entry is appended either way.
func (s *Service) Write(sess *internal.SessionInfo, kind Kind, id string, fields map[string]string) (*Record, error) {
	if err := s.requirePermission(sess, rbac.ActionWrite, kind); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, internal.NewValidationError("at least one field is required", internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	stored := &StoredRecord{
		ID:         id,
		Kind:       kind,
		KeyVersion: int(crypto.KeyVersion),
		CreatedBy:  sess.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Fields:     make(map[string][]byte, len(fields)),
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	if tokenField := searchFields[kind]; tokenField != "" {
		stored.SearchToken = NormalizeToken(fields[tokenField])
	}

	for name, value := range fields {
		ciphertext, err := s.cipher.EncryptField([]byte(value))
		if err != nil {
			return nil, internal.NewInternalError("field encryption failed", err)
		}
		stored.Fields[name] = ciphertext
	}

	if err := s.repo.Save(stored); err != nil {
		return nil, s.storageFailure(sess, audit.ActionWrite, kind, stored.ID, err)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     audit.ActionWrite,
		Resource:   string(kind.Resource()),
		ResourceID: stored.ID,
		Outcome:    audit.OutcomeSuccess,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("record written",
		"kind", kind,
		"record_id", stored.ID,
		"user_id", sess.UserID,
		"field_count", len(fields))

	return &Record{
		ID:        stored.ID,
		Kind:      kind,
		Fields:    fields,
		CreatedBy: stored.CreatedBy,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// Read loads and decrypts a record. An integrity failure on any field
// aborts the read; it is audited before it surfaces and corrupted
// plaintext is never returned.
func (s *Service) Read(sess *internal.SessionInfo, kind Kind, id string) (*Record, error) {
	if err := s.requirePermission(sess, rbac.ActionRead, kind); err != nil {
		return nil, err
	}

	stored, err := s.repo.Get(kind, id)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			// a miss is still a read attempt; it leaves a trail entry like
			// any other outcome
			if recErr := s.auditor.Record(audit.Entry{
				UserID:     &sess.UserID,
				Role:       sess.Role,
				Action:     audit.ActionRead,
				Resource:   string(kind.Resource()),
				ResourceID: id,
				Outcome:    audit.OutcomeFailure,
				Reason:     "record not found",
			}); recErr != nil {
				return nil, recErr
			}
			return nil, appErr
		}
		return nil, s.storageFailure(sess, audit.ActionRead, kind, id, err)
	}

	rec, err := s.decrypt(stored)
	if err != nil {
		return nil, s.tamperFailure(sess, audit.ActionRead, kind, id, err)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     audit.ActionRead,
		Resource:   string(kind.Resource()),
		ResourceID: id,
		Outcome:    audit.OutcomeSuccess,
	}); err != nil {
		return nil, err
	}

	return rec, nil
}

// Search narrows candidates on the cleartext search token, then decrypts
// them and matches the query against the designated plaintext field.
// Decrypting candidates is the accepted price of field-level
// confidentiality with non-deterministic ciphertext.
func (s *Service) Search(sess *internal.SessionInfo, kind Kind, query string) ([]*Record, error) {
	if err := s.requirePermission(sess, rbac.ActionRead, kind); err != nil {
		return nil, err
	}

	token := NormalizeToken(query)
	candidates, err := s.repo.FindByToken(kind, token)
	if err != nil {
		return nil, s.storageFailure(sess, audit.ActionRead, kind, "", err)
	}

	// The token index narrows candidates; the decision is still made on
	// decrypted plaintext.
	indexField := searchFields[kind]
	matches := make([]*Record, 0, len(candidates))
	for _, stored := range candidates {
		rec, err := s.decrypt(stored)
		if err != nil {
			return nil, s.tamperFailure(sess, audit.ActionRead, kind, stored.ID, err)
		}
		if token != "" && !strings.Contains(NormalizeToken(rec.Fields[indexField]), token) {
			continue
		}
		matches = append(matches, rec)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Action:   audit.ActionRead,
		Resource: string(kind.Resource()),
		Outcome:  audit.OutcomeSuccess,
		Reason:   "search",
	}); err != nil {
		return nil, err
	}

	return matches, nil
}

func (s *Service) decrypt(stored *StoredRecord) (*Record, error) {
	fields := make(map[string]string, len(stored.Fields))
	for name, ciphertext := range stored.Fields {
		plaintext, err := s.cipher.DecryptField(ciphertext)
		if err != nil {
			return nil, err
		}
		fields[name] = string(plaintext)
	}

	return &Record{
		ID:        stored.ID,
		Kind:      stored.Kind,
		Fields:    fields,
		CreatedBy: stored.CreatedBy,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// requirePermission audits the denial and reports it as a typed result.
func (s *Service) requirePermission(sess *internal.SessionInfo, action rbac.Action, kind Kind) error {
	if s.table.Allowed(rbac.Role(sess.Role), action, kind.Resource()) {
		return nil
	}

	s.logger.Warn("record access denied",
		"user_id", sess.UserID,
		"role", sess.Role,
		"action", action,
		"kind", kind)

	if err := s.auditor.Record(audit.Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Action:   audit.ActionPermissionDenied,
		Resource: string(kind.Resource()),
		Outcome:  audit.OutcomeFailure,
		Reason:   "role lacks " + string(action) + " permission",
	}); err != nil {
		return err
	}
	return internal.ErrAccessDenied
}

// storageFailure and tamperFailure honor the rule that serious failures
// reach the audit trail before they reach the caller. The append is best
// effort here: if the trail itself is down the original failure still
// surfaces.
func (s *Service) storageFailure(sess *internal.SessionInfo, action audit.ActionKind, kind Kind, id string, cause error) error {
	s.logger.Error("record storage failure",
		"kind", kind,
		"record_id", id,
		"error", cause)

	_ = s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     action,
		Resource:   string(kind.Resource()),
		ResourceID: id,
		Outcome:    audit.OutcomeFailure,
		Reason:     "storage failure",
	})
	return internal.ErrStorageFailure.WithCause(cause)
}

func (s *Service) tamperFailure(sess *internal.SessionInfo, action audit.ActionKind, kind Kind, id string, cause error) error {
	s.logger.Error("record integrity failure",
		"kind", kind,
		"record_id", id)

	_ = s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     action,
		Resource:   string(kind.Resource()),
		ResourceID: id,
		Outcome:    audit.OutcomeFailure,
		Reason:     "integrity check failed",
	})

	if appErr, ok := internal.IsAppError(cause); ok {
		return appErr
	}
	return internal.ErrTamperedData
}
