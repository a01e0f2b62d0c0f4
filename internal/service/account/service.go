// Package account owns the account lifecycle: registration, email
// verification, password reset, authentication, ban/unban, and admin
// privilege transitions.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
	"github.com/PythonTilk/Notes/internal/service/banlist"
	"github.com/PythonTilk/Notes/internal/service/mail"
	"github.com/PythonTilk/Notes/pkg/config"
	"github.com/PythonTilk/Notes/pkg/crypto"
	jwtpkg "github.com/PythonTilk/Notes/pkg/jwt"
)

// ErrInvalidCredentials is returned by Login for a wrong username or
// password, without distinguishing the two.
var ErrInvalidCredentials = errors.New("invalid username or password")

const userSearchLimit = 10

// Service coordinates account state transitions.
type Service struct {
	users   repository.UserRepository
	banlist *banlist.Service
	mailer  mail.Gateway
	logger  *slog.Logger
	cfg     config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, bans *banlist.Service, mailer mail.Gateway, logger *slog.Logger, cfg config.APIConfig) *Service {
	return &Service{users: users, banlist: bans, mailer: mailer, logger: logger, cfg: cfg}
}

// Register creates an account. With an email the account starts
// unverified and a verification token with a 24h window is issued; a
// failed verification send is logged, never propagated. Without an
// email the account is immediately usable.
func (s *Service) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	if email != "" {
		banned, err := s.banlist.IsBanned(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check ban registry: %w", err)
		}
		if banned {
			return nil, domain.ErrEmailBanned
		}
		taken, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, domain.ErrDuplicateEmail
		}
	}

	encoded, err := crypto.Encode(password)
	if err != nil {
		return nil, fmt.Errorf("encode password: %w", err)
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  encoded,
		CreatedAt: time.Now().UTC(),
	}
	if email == "" {
		// Minimal variant without email verification.
		user.EmailVerified = true
	} else {
		token := uuid.NewString()
		expiry := time.Now().UTC().Add(s.cfg.VerificationTTL)
		user.VerificationToken = &token
		user.VerificationTokenExpiry = &expiry
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Concurrent registrations race past the existence checks; the
		// storage constraint is the authority.
		if dup, ok := repository.AsDuplicate(err); ok {
			if strings.Contains(dup.Constraint, "email") {
				return nil, domain.ErrDuplicateEmail
			}
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if user.VerificationToken != nil {
		s.sendVerification(ctx, user, *user.VerificationToken)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// VerifyEmail consumes a verification token. Returns false on an
// unmatched or expired token; on success the verified flag is set and
// token plus expiry are cleared together.
func (s *Service) VerifyEmail(ctx context.Context, token string) (bool, error) {
	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup verification token: %w", err)
	}
	if user.VerificationTokenExpiry == nil || time.Now().After(*user.VerificationTokenExpiry) {
		s.logger.Info("verification token expired", "user_id", user.ID)
		return false, nil
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpiry = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return false, fmt.Errorf("persist verification: %w", err)
	}
	s.logger.Info("email verified", "user_id", user.ID)
	return true, nil
}

// ResendVerification regenerates the verification token and re-sends
// the email. Returns false when the account is unknown or already
// verified; otherwise returns the send outcome.
func (s *Service) ResendVerification(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("resend requested for unknown email")
			return false, nil
		}
		return false, fmt.Errorf("lookup email: %w", err)
	}
	if user.EmailVerified {
		s.logger.Debug("resend requested for verified account", "user_id", user.ID)
		return false, nil
	}
	token := uuid.NewString()
	expiry := time.Now().UTC().Add(s.cfg.VerificationTTL)
	user.VerificationToken = &token
	user.VerificationTokenExpiry = &expiry
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return false, fmt.Errorf("persist verification token: %w", err)
	}
	return s.sendVerification(ctx, user, token), nil
}

// RequestPasswordReset issues a reset token with a 1h window and mails
// it. Returns false when the account is unknown or banned. The token is
// persisted even when the send fails.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup email: %w", err)
	}
	if user.IsBanned {
		return false, nil
	}
	token := uuid.NewString()
	expiry := time.Now().UTC().Add(s.cfg.ResetTTL)
	user.PasswordResetToken = &token
	user.PasswordResetExpiry = &expiry
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return false, fmt.Errorf("persist reset token: %w", err)
	}
	err = s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Reset your password",
		Template: mail.TemplatePasswordReset,
		Vars: map[string]string{
			"Username": user.Username,
			"Link":     s.cfg.BaseURL + "/reset-password?token=" + token,
		},
	})
	if err != nil {
		s.logger.Error("password reset email failed", "user_id", user.ID, "error", err)
		return false, nil
	}
	return true, nil
}

// ResetPassword consumes a reset token and stores a freshly encoded
// credential. Returns false on an unmatched or expired token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	if newPassword == "" {
		return false, fmt.Errorf("%w: new password is required", domain.ErrValidation)
	}
	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reset token: %w", err)
	}
	if user.PasswordResetExpiry == nil || time.Now().After(*user.PasswordResetExpiry) {
		s.logger.Info("reset token expired", "user_id", user.ID)
		return false, nil
	}
	encoded, err := crypto.Encode(newPassword)
	if err != nil {
		return false, fmt.Errorf("encode password: %w", err)
	}
	user.Password = encoded
	user.PasswordResetToken = nil
	user.PasswordResetExpiry = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return false, fmt.Errorf("persist new password: %w", err)
	}
	s.logger.Info("password reset", "user_id", user.ID)
	return true, nil
}

// CheckCredentials validates a username/password pair. Banned accounts
// never authenticate, regardless of credential correctness. A match
// updates the last-login timestamp.
func (s *Service) CheckCredentials(ctx context.Context, username, password string) (*domain.User, bool, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup username: %w", err)
	}
	if user.IsBanned {
		s.logger.Info("login rejected for banned account", "user_id", user.ID)
		return nil, false, nil
	}
	if !crypto.Verify(password, user.Password) {
		return nil, false, nil
	}
	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("update last login: %w", err)
	}
	return user, true, nil
}

// Login authenticates and issues a signed session token carrying the
// identity payload (id, username, admin flag).
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, ok, err := s.CheckCredentials(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Username, user.IsAdmin, s.cfg.JWTSecret, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Authorize validates a session token and re-checks the account state.
// A ban taking effect after token issuance invalidates the session here.
func (s *Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user.IsBanned {
		return nil, nil, domain.ErrForbidden
	}
	return user, claims, nil
}

// BanUser marks an account banned and cascades the email into the ban
// registry. Admin accounts cannot be banned; revoke admin first.
func (s *Service) BanUser(ctx context.Context, userID, reason, actingAdminID string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return nil, domain.ErrCannotBanAdmin
	}
	user.IsBanned = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("persist ban: %w", err)
	}

	if user.Email != "" {
		actor := actingAdminID
		if _, err := s.banlist.Ban(ctx, user.Email, reason, &actor); err != nil && !errors.Is(err, domain.ErrAlreadyBanned) {
			s.logger.Error("ban registry cascade failed", "user_id", user.ID, "error", err)
		}
		s.sendBanNotice(ctx, user, reason)
	}

	s.logger.Info("user banned", "user_id", user.ID, "by", actingAdminID)
	return user, nil
}

// UnbanUser clears the ban flag and attempts the reverse registry
// removal, tolerating an absent entry.
func (s *Service) UnbanUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsBanned = false
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("persist unban: %w", err)
	}
	if user.Email != "" {
		if err := s.banlist.Unban(ctx, user.Email); err != nil && !errors.Is(err, domain.ErrNotBanned) {
			s.logger.Error("ban registry removal failed", "user_id", user.ID, "error", err)
		}
	}
	s.logger.Info("user unbanned", "user_id", user.ID)
	return user, nil
}

// GrantAdmin enables admin privileges.
func (s *Service) GrantAdmin(ctx context.Context, userID string) (*domain.User, error) {
	return s.setAdmin(ctx, userID, true)
}

// RevokeAdmin disables admin privileges.
func (s *Service) RevokeAdmin(ctx context.Context, userID string) (*domain.User, error) {
	return s.setAdmin(ctx, userID, false)
}

func (s *Service) setAdmin(ctx context.Context, userID string, admin bool) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("persist admin flag: %w", err)
	}
	s.logger.Info("admin flag updated", "user_id", user.ID, "is_admin", admin)
	return user, nil
}

// ProfileUpdate is a typed partial update; nil fields are left as-is.
type ProfileUpdate struct {
	DisplayName *string
	Biography   *string
	AvatarPath  *string
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Biography != nil {
		user.Biography = *update.Biography
	}
	if update.AvatarPath != nil && strings.TrimSpace(*update.AvatarPath) != "" {
		user.AvatarPath = *update.AvatarPath
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	return user, nil
}

// GetByID loads an account, mapping absence to the domain taxonomy.
func (s *Service) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

// GetByUsername loads an account by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// SearchUsers returns up to ten accounts whose username or email
// contains the term (case-insensitive), excluding the requester. A
// blank term returns the first accounts unfiltered.
func (s *Service) SearchUsers(ctx context.Context, term, excludeUserID string) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	matched := make([]domain.User, 0, userSearchLimit)
	for _, u := range users {
		if u.ID == excludeUserID {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Username), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		matched = append(matched, u)
		if len(matched) == userSearchLimit {
			break
		}
	}
	return matched, nil
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

// ListAdmins returns accounts holding admin privileges.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.User, error) {
	return s.users.ListAdmins(ctx)
}

func (s *Service) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User, token string) bool {
	err := s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Verify your email address",
		Template: mail.TemplateVerification,
		Vars: map[string]string{
			"Username": user.Username,
			"Link":     s.cfg.BaseURL + "/verify-email?token=" + token,
		},
	})
	if err != nil {
		s.logger.Error("verification email failed", "user_id", user.ID, "error", err)
		return false
	}
	return true
}

func (s *Service) sendBanNotice(ctx context.Context, user *domain.User, reason string) {
	err := s.mailer.Send(ctx, mail.Message{
		To:       user.Email,
		Subject:  "Your account has been suspended",
		Template: mail.TemplateBanNotice,
		Vars: map[string]string{
			"Username": user.Username,
			"Reason":   reason,
		},
	})
	if err != nil {
		s.logger.Error("ban notice email failed", "user_id", user.ID, "error", err)
	}
}
