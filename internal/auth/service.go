package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/audit"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// Service is the authentication and session core: it verifies
// credentials, owns the live session table and gates user management.
// Every operation appends its audit entry before the result is returned,
// so a crash between decision and response still leaves the trail intact.
type Service struct {
	users      RepositoryAPI
	sessions   *SessionStore
	tokens     *SessionTokenCodec
	auditor    *audit.Service
	table      rbac.Table
	logger     *slog.Logger
	bcryptCost int
}

func NewService(users RepositoryAPI, sessions *SessionStore, tokens *SessionTokenCodec, auditor *audit.Service, table rbac.Table, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		auditor:    auditor,
		table:      table,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Login verifies credentials and opens a session. Unknown username,
// wrong password and deactivated account all fail identically so the
// response never confirms that a username exists.
func (s *Service) Login(dto LoginDTO) (string, *User, error) {
	if err := dto.Validate(); err != nil {
		return "", nil, err
	}

	user, hash, err := s.users.GetByUsername(dto.Username)
	if err != nil {
		if _, ok := internal.IsAppError(err); !ok {
			return "", nil, internal.ErrStorageFailure.WithCause(err)
		}
		return "", nil, s.loginFailure(nil, "")
	}

	if !user.IsActive {
		return "", nil, s.loginFailure(&user.ID, string(user.Role))
	}
	if err := VerifyPassword(hash, dto.Password); err != nil {
		return "", nil, s.loginFailure(&user.ID, string(user.Role))
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	if err := s.auditor.Record(audit.Entry{
		UserID:   &user.ID,
		Role:     string(user.Role),
		Action:   audit.ActionLogin,
		Resource: string(rbac.ResourceUser),
		Outcome:  audit.OutcomeSuccess,
	}); err != nil {
		return "", nil, err
	}

	sess := s.sessions.Create(user.ID, user.Username, user.Role)
	token, err := s.tokens.Encode(sess.ID, user.Username)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return "", nil, internal.NewInternalError("failed to issue session token", err)
	}

	s.logger.Info("login successful", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

func (s *Service) loginFailure(userID *int64, role string) error {
	if err := s.auditor.Record(audit.Entry{
		UserID:   userID,
		Role:     role,
		Action:   audit.ActionLoginFailure,
		Resource: string(rbac.ResourceUser),
		Outcome:  audit.OutcomeFailure,
		Reason:   "invalid credentials",
	}); err != nil {
		return err
	}
	s.logger.Warn("login failed")
	return internal.ErrInvalidCredentials
}

// Logout invalidates the session immediately. A token for a session that
// no longer exists fails like an expired one.
func (s *Service) Logout(token string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return err
	}

	sess := s.sessions.Delete(claims.SessionID)
	if sess == nil {
		return internal.ErrSessionExpired
	}

	return s.auditor.Record(audit.Entry{
		UserID:   &sess.UserID,
		Role:     string(sess.Role),
		Action:   audit.ActionLogout,
		Resource: string(rbac.ResourceUser),
		Outcome:  audit.OutcomeSuccess,
	})
}

// Validate checks a bearer token against the live session table and
// refreshes the session's activity time. Plain validation leaves no
// audit entry; detecting idle expiry does.
func (s *Service) Validate(token string) (*internal.SessionInfo, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	sess, expired := s.sessions.Touch(claims.SessionID)
	if expired {
		if err := s.auditor.Record(audit.Entry{
			UserID:   &sess.UserID,
			Role:     string(sess.Role),
			Action:   audit.ActionLogout,
			Resource: string(rbac.ResourceUser),
			Outcome:  audit.OutcomeSuccess,
			Reason:   "session expired after idle timeout",
		}); err != nil {
			return nil, err
		}
		return nil, internal.ErrSessionExpired
	}
	if sess == nil {
		return nil, internal.ErrSessionExpired
	}

	return &internal.SessionInfo{
		Token:    token,
		UserID:   sess.UserID,
		Username: sess.Username,
		Role:     string(sess.Role),
	}, nil
}

// Authorize answers the caller-facing permission probe. The decision is
// recorded either way; denial is a normal result for the system, only
// the caller's requested operation fails.
func (s *Service) Authorize(sess *internal.SessionInfo, action rbac.Action, resource rbac.Resource) (bool, error) {
	allowed := s.table.Allowed(rbac.Role(sess.Role), action, resource)

	entry := audit.Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Resource: string(resource),
		Reason:   "authorization check",
	}
	if allowed {
		entry.Action = audit.ActionKind(action)
		entry.Outcome = audit.OutcomeSuccess
	} else {
		entry.Action = audit.ActionPermissionDenied
		entry.Outcome = audit.OutcomeFailure
	}

	if err := s.auditor.Record(entry); err != nil {
		return false, err
	}
	return allowed, nil
}

// requirePermission gates a user-management operation, logging the
// denial when the role lacks the permission. Allowed operations log
// their own single entry.
func (s *Service) requirePermission(sess *internal.SessionInfo, action rbac.Action, resource rbac.Resource) error {
	if s.table.Allowed(rbac.Role(sess.Role), action, resource) {
		return nil
	}

	s.logger.Warn("access denied",
		"user_id", sess.UserID,
		"role", sess.Role,
		"action", action,
		"resource", resource)

	if err := s.auditor.Record(audit.Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Action:   audit.ActionPermissionDenied,
		Resource: string(resource),
		Outcome:  audit.OutcomeFailure,
		Reason:   fmt.Sprintf("role lacks %s permission", action),
	}); err != nil {
		return err
	}
	return internal.ErrAccessDenied
}

// CreateUser registers a new account. Admin only.
func (s *Service) CreateUser(sess *internal.SessionInfo, dto CreateUserDTO) (*User, error) {
	if err := s.requirePermission(sess, rbac.ActionWrite, rbac.ResourceUser); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := rbac.ParseRole(dto.Role)
	if err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeUnknownRole)
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	user := &User{
		Username: dto.Username,
		Role:     role,
		FullName: dto.FullName,
		Email:    dto.Email,
		IsActive: true,
	}
	if err := s.users.Create(user, hash); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.ErrStorageFailure.WithCause(err)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     audit.ActionWrite,
		Resource:   string(rbac.ResourceUser),
		ResourceID: fmt.Sprintf("%d", user.ID),
		Outcome:    audit.OutcomeSuccess,
		Reason:     "user created",
	}); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// ListUsers returns all accounts. Admin only.
func (s *Service) ListUsers(sess *internal.SessionInfo) ([]*User, error) {
	if err := s.requirePermission(sess, rbac.ActionRead, rbac.ResourceUser); err != nil {
		return nil, err
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:   &sess.UserID,
		Role:     sess.Role,
		Action:   audit.ActionRead,
		Resource: string(rbac.ResourceUser),
		Outcome:  audit.OutcomeSuccess,
	}); err != nil {
		return nil, err
	}

	users, err := s.users.List()
	if err != nil {
		return nil, internal.ErrStorageFailure.WithCause(err)
	}
	return users, nil
}

// SetActive toggles whether an account may authenticate. Accounts are
// never deleted so the trail stays attributable.
func (s *Service) SetActive(sess *internal.SessionInfo, userID int64, active bool) error {
	if err := s.requirePermission(sess, rbac.ActionWrite, rbac.ResourceUser); err != nil {
		return err
	}

	if _, _, err := s.users.GetByID(userID); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.ErrStorageFailure.WithCause(err)
	}

	if err := s.users.SetActive(userID, active); err != nil {
		return internal.ErrStorageFailure.WithCause(err)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     audit.ActionWrite,
		Resource:   string(rbac.ResourceUser),
		ResourceID: fmt.Sprintf("%d", userID),
		Outcome:    audit.OutcomeSuccess,
		Reason:     fmt.Sprintf("active set to %t", active),
	}); err != nil {
		return err
	}

	s.logger.Info("user active flag changed", "user_id", userID, "active", active)
	return nil
}

// ChangePassword replaces the caller's own password after re-verifying
// the old one.
func (s *Service) ChangePassword(sess *internal.SessionInfo, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	_, hash, err := s.users.GetByID(sess.UserID)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.ErrStorageFailure.WithCause(err)
	}

	if err := VerifyPassword(hash, dto.OldPassword); err != nil {
		if recErr := s.auditor.Record(audit.Entry{
			UserID:     &sess.UserID,
			Role:       sess.Role,
			Action:     audit.ActionWrite,
			Resource:   string(rbac.ResourceUser),
			ResourceID: fmt.Sprintf("%d", sess.UserID),
			Outcome:    audit.OutcomeFailure,
			Reason:     "password change rejected",
		}); recErr != nil {
			return recErr
		}
		return internal.ErrInvalidCredentials
	}

	newHash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(sess.UserID, newHash); err != nil {
		return internal.ErrStorageFailure.WithCause(err)
	}

	if err := s.auditor.Record(audit.Entry{
		UserID:     &sess.UserID,
		Role:       sess.Role,
		Action:     audit.ActionWrite,
		Resource:   string(rbac.ResourceUser),
		ResourceID: fmt.Sprintf("%d", sess.UserID),
		Outcome:    audit.OutcomeSuccess,
		Reason:     "password changed",
	}); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", sess.UserID)
	return nil
}
