// Package banlist maintains the registry of banned email addresses.
// Entries exist independently of accounts: an email stays blocked even
// when no account carries it.
package banlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

// Service implements ban registry semantics over persistence.
type Service struct {
	emails repository.BannedEmailRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(emails repository.BannedEmailRepository, logger *slog.Logger) *Service {
	return &Service{emails: emails, logger: logger}
}

// IsBanned reports registry membership for an email.
func (s *Service) IsBanned(ctx context.Context, email string) (bool, error) {
	return s.emails.BannedEmailExists(ctx, email)
}

// Ban adds an email to the registry. Fails with ErrAlreadyBanned when
// the email is already present, including under concurrent inserts
// where the storage uniqueness constraint is the authority.
func (s *Service) Ban(ctx context.Context, email, reason string, actorID *string) (*domain.BannedEmail, error) {
	banned, err := s.IsBanned(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check ban registry: %w", err)
	}
	if banned {
		return nil, domain.ErrAlreadyBanned
	}
	entry := &domain.BannedEmail{
		Email:    email,
		Reason:   reason,
		BannedAt: time.Now().UTC(),
		BannedBy: actorID,
	}
	if err := s.emails.CreateBannedEmail(ctx, entry); err != nil {
		if _, ok := repository.AsDuplicate(err); ok {
			return nil, domain.ErrAlreadyBanned
		}
		return nil, fmt.Errorf("create ban entry: %w", err)
	}
	s.logger.Info("email banned", "email", email)
	return entry, nil
}

// Unban removes an email from the registry. Fails with ErrNotBanned
// when the email is absent.
func (s *Service) Unban(ctx context.Context, email string) error {
	if err := s.emails.DeleteBannedEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotBanned
		}
		return fmt.Errorf("delete ban entry: %w", err)
	}
	s.logger.Info("email unbanned", "email", email)
	return nil
}

// Get returns the registry entry for an email, ErrNotFound when absent.
func (s *Service) Get(ctx context.Context, email string) (*domain.BannedEmail, error) {
	entry, err := s.emails.GetBannedEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// List returns all registry entries.
func (s *Service) List(ctx context.Context) ([]domain.BannedEmail, error) {
	return s.emails.ListBannedEmails(ctx)
}
