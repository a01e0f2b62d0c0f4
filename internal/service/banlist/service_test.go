package banlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

type stubBanRepo struct {
	entries   map[string]domain.BannedEmail
	createErr error
}

func newStubBanRepo() *stubBanRepo {
	return &stubBanRepo{entries: make(map[string]domain.BannedEmail)}
}

func (s *stubBanRepo) CreateBannedEmail(ctx context.Context, banned *domain.BannedEmail) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.entries[banned.Email]; ok {
		return &repository.DuplicateError{Constraint: "banned_emails_pkey"}
	}
	s.entries[banned.Email] = *banned
	return nil
}

func (s *stubBanRepo) DeleteBannedEmail(ctx context.Context, email string) error {
	if _, ok := s.entries[email]; !ok {
		return repository.ErrNotFound
	}
	delete(s.entries, email)
	return nil
}

func (s *stubBanRepo) GetBannedEmail(ctx context.Context, email string) (*domain.BannedEmail, error) {
	if e, ok := s.entries[email]; ok {
		return &e, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubBanRepo) BannedEmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := s.entries[email]
	return ok, nil
}

func (s *stubBanRepo) ListBannedEmails(ctx context.Context) ([]domain.BannedEmail, error) {
	out := make([]domain.BannedEmail, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func newTestService() (*Service, *stubBanRepo) {
	repo := newStubBanRepo()
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestBanAndUnbanRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	actor := "admin-1"

	entry, err := svc.Ban(context.Background(), "spam@example.com", "abuse", &actor)
	if err != nil {
		t.Fatalf("Ban returned error: %v", err)
	}
	if entry.Email != "spam@example.com" || entry.Reason != "abuse" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.BannedAt.IsZero() {
		t.Error("entry must carry a ban timestamp")
	}

	if ok, _ := svc.IsBanned(context.Background(), "spam@example.com"); !ok {
		t.Error("banned email must be reported as banned")
	}
	if ok, _ := svc.IsBanned(context.Background(), "clean@example.com"); ok {
		t.Error("unknown email must not be reported as banned")
	}

	if err := svc.Unban(context.Background(), "spam@example.com"); err != nil {
		t.Fatalf("Unban returned error: %v", err)
	}
	if ok, _ := svc.IsBanned(context.Background(), "spam@example.com"); ok {
		t.Error("unbanned email must no longer be reported as banned")
	}
}

func TestBanAlreadyBanned(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Ban(context.Background(), "spam@example.com", "abuse", nil); err != nil {
		t.Fatalf("seed ban: %v", err)
	}
	if _, err := svc.Ban(context.Background(), "spam@example.com", "again", nil); !errors.Is(err, domain.ErrAlreadyBanned) {
		t.Fatalf("expected ErrAlreadyBanned, got %v", err)
	}
}

func TestBanMapsConstraintRaceToAlreadyBanned(t *testing.T) {
	svc, repo := newTestService()
	// A concurrent insert wins between the existence check and ours.
	repo.createErr = &repository.DuplicateError{Constraint: "banned_emails_pkey"}
	if _, err := svc.Ban(context.Background(), "spam@example.com", "abuse", nil); !errors.Is(err, domain.ErrAlreadyBanned) {
		t.Fatalf("expected ErrAlreadyBanned, got %v", err)
	}
}

func TestUnbanAbsentEntry(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Unban(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrNotBanned) {
		t.Fatalf("expected ErrNotBanned, got %v", err)
	}
}

func TestGetMapsAbsenceToNotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Get(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
