package note

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/repository"
)

type memoryNoteRepo struct {
	notes map[string]domain.Note
}

func newMemoryNoteRepo() *memoryNoteRepo {
	return &memoryNoteRepo{notes: make(map[string]domain.Note)}
}

func (m *memoryNoteRepo) CreateNote(ctx context.Context, note *domain.Note) error {
	m.notes[note.ID] = *note
	return nil
}

func (m *memoryNoteRepo) UpdateNote(ctx context.Context, note *domain.Note) error {
	if _, ok := m.notes[note.ID]; !ok {
		return repository.ErrNotFound
	}
	m.notes[note.ID] = *note
	return nil
}

func (m *memoryNoteRepo) DeleteNote(ctx context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryNoteRepo) GetNoteByID(ctx context.Context, id string) (*domain.Note, error) {
	if n, ok := m.notes[id]; ok {
		return &n, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryNoteRepo) ListNotesByOwner(ctx context.Context, ownerID string) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range m.notes {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListVisibleNotes mirrors the storage predicate with the in-memory
// visibility rule so both stay in lockstep.
func (m *memoryNoteRepo) ListVisibleNotes(ctx context.Context, userID, username string) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range m.notes {
		if n.VisibleTo(userID, username) {
			out = append(out, n)
		}
	}
	return out, nil
}

type captureStreamer struct {
	feeds    []string
	payloads [][]byte
}

func (c *captureStreamer) Broadcast(feed string, payload []byte) {
	c.feeds = append(c.feeds, feed)
	c.payloads = append(c.payloads, payload)
}

func newTestService() (*Service, *memoryNoteRepo, *captureStreamer) {
	repo := newMemoryNoteRepo()
	stream := &captureStreamer{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, stream, log), repo, stream
}

var (
	alice = domain.Identity{UserID: "user-alice", Username: "alice"}
	bob   = domain.Identity{UserID: "user-bob", Username: "bob"}
	carol = domain.Identity{UserID: "user-carol", Username: "carol"}
	admin = domain.Identity{UserID: "user-admin", Username: "root", IsAdmin: true}
)

func seedBoard(repo *memoryNoteRepo) {
	repo.notes["n-own"] = domain.Note{
		ID: "n-own", Title: "Alice private", OwnerID: alice.UserID,
		Privacy: domain.PrivacyPrivate, Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}
	repo.notes["n-pub"] = domain.Note{
		ID: "n-pub", Title: "Bob public", OwnerID: bob.UserID,
		Privacy: domain.PrivacyEveryone, Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}
	repo.notes["n-shared"] = domain.Note{
		ID: "n-shared", Title: "Bob shared", OwnerID: bob.UserID,
		Privacy: domain.PrivacySomePeople, SharedWith: " alice, dave ",
		Type: domain.NoteTypeText, Editing: domain.EditingCollaborative,
	}
	repo.notes["n-hidden"] = domain.Note{
		ID: "n-hidden", Title: "Carol private", OwnerID: carol.UserID,
		Privacy: domain.PrivacyPrivate, Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}
}

func noteIDs(notes []domain.Note) map[string]int {
	ids := make(map[string]int, len(notes))
	for _, n := range notes {
		ids[n.ID]++
	}
	return ids
}

func TestListVisibleResolvesUnion(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	visible, err := svc.ListVisible(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListVisible returned error: %v", err)
	}
	ids := noteIDs(visible)
	for _, want := range []string{"n-own", "n-pub", "n-shared"} {
		if ids[want] != 1 {
			t.Errorf("note %s must appear exactly once, appeared %d times", want, ids[want])
		}
	}
	if ids["n-hidden"] != 0 {
		t.Error("another account's private note must not be visible")
	}
	if len(visible) != 3 {
		t.Errorf("visible set size = %d, want 3", len(visible))
	}
}

func TestListVisibleOwnedPublicNoteAppearsOnce(t *testing.T) {
	svc, repo, _ := newTestService()
	// Owned and shared-with-everyone at the same time.
	repo.notes["n-both"] = domain.Note{
		ID: "n-both", OwnerID: alice.UserID, Privacy: domain.PrivacyEveryone,
		Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}

	visible, err := svc.ListVisible(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListVisible returned error: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("a note matching several visibility arms must appear once, got %d", len(visible))
	}
}

func TestListVisibleAppliesReadTimeDefaults(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.notes["n-bare"] = domain.Note{
		ID: "n-bare", OwnerID: alice.UserID, Privacy: domain.PrivacyPrivate,
		Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}

	visible, err := svc.ListVisible(context.Background(), alice)
	if err != nil || len(visible) != 1 {
		t.Fatalf("ListVisible: %d notes, err=%v", len(visible), err)
	}
	got := visible[0]
	if got.PositionX == nil || *got.PositionX != domain.DefaultPositionX ||
		got.PositionY == nil || *got.PositionY != domain.DefaultPositionY {
		t.Errorf("missing position must default to (%d,%d): %+v", domain.DefaultPositionX, domain.DefaultPositionY, got)
	}
	if got.Color != domain.DefaultColor {
		t.Errorf("missing color must default to %s, got %q", domain.DefaultColor, got.Color)
	}
}

func TestListVisibleEmptyIdentity(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	visible, err := svc.ListVisible(context.Background(), domain.Identity{})
	if err != nil {
		t.Fatalf("empty identity must not error: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("empty identity must yield an empty set, got %d notes", len(visible))
	}
}

func TestSearchFiltersVisibleSet(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	matched, err := svc.Search(context.Background(), alice, "BOB")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	ids := noteIDs(matched)
	if len(matched) != 2 || ids["n-pub"] != 1 || ids["n-shared"] != 1 {
		t.Errorf("case-insensitive search over the visible set, got %v", ids)
	}

	all, err := svc.Search(context.Background(), alice, "   ")
	if err != nil || len(all) != 3 {
		t.Errorf("blank term must return the full visible set, got %d err=%v", len(all), err)
	}

	hidden, err := svc.Search(context.Background(), alice, "Carol")
	if err != nil || len(hidden) != 0 {
		t.Errorf("search must never surface invisible notes, got %d err=%v", len(hidden), err)
	}
}

func TestGetEnforcesVisibility(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	if _, err := svc.Get(context.Background(), alice, "n-shared"); err != nil {
		t.Errorf("listed reader must load a shared note: %v", err)
	}
	if _, err := svc.Get(context.Background(), carol, "n-shared"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("unlisted reader must get ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), alice, "no-such-note"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing note must get ErrNotFound, got %v", err)
	}
}

func TestCreateAppliesEnumFallbacks(t *testing.T) {
	svc, repo, stream := newTestService()

	created, err := svc.Create(context.Background(), alice, CreateInput{Title: "plain"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Type != domain.NoteTypeText || created.Privacy != domain.PrivacyPrivate || created.Editing != domain.EditingCreatorOnly {
		t.Errorf("zero enums must default to text/private/creator_only: %+v", created)
	}
	if created.HasImages {
		t.Error("HasImages must be false without image paths")
	}
	stored := repo.notes[created.ID]
	if stored.OwnerID != alice.UserID {
		t.Errorf("owner = %s, want %s", stored.OwnerID, alice.UserID)
	}
	if len(stream.feeds) != 1 || stream.feeds[0] != alice.UserID {
		t.Errorf("create must broadcast to the owner feed, got %v", stream.feeds)
	}
	var event struct {
		Type   string `json:"type"`
		NoteID string `json:"noteId"`
	}
	if err := json.Unmarshal(stream.payloads[0], &event); err != nil {
		t.Fatalf("event payload: %v", err)
	}
	if event.Type != "note.created" || event.NoteID != created.ID {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestCreateRejectsUnknownEnums(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Create(context.Background(), alice, CreateInput{Privacy: "public"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown privacy level must fail validation, got %v", err)
	}
	if _, err := svc.Create(context.Background(), domain.Identity{}, CreateInput{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("anonymous create must be forbidden, got %v", err)
	}
}

func TestCreateTracksImages(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), alice, CreateInput{
		Title:      "pics",
		ImagePaths: []string{"/img/a.png", "/img/b.png"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.HasImages || len(created.ImagePaths) != 2 {
		t.Errorf("image paths must set HasImages: %+v", created)
	}
}

func TestUpdateHonorsEditingPermission(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)
	title := "renamed"

	// alice is a listed reader on the collaborative note n-shared.
	updated, err := svc.Update(context.Background(), alice, "n-shared", UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("collaborative edit by a reader must succeed: %v", err)
	}
	if updated.Title != "renamed" {
		t.Errorf("title = %q, want renamed", updated.Title)
	}

	// n-pub is creator_only; alice can read but not edit.
	if _, err := svc.Update(context.Background(), alice, "n-pub", UpdateInput{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("creator_only must block a non-owner, got %v", err)
	}

	// carol cannot even read n-shared.
	if _, err := svc.Update(context.Background(), carol, "n-shared", UpdateInput{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("collaborative must not grant edit without visibility, got %v", err)
	}
}

func TestUpdateIsPartial(t *testing.T) {
	svc, repo, _ := newTestService()
	x, y := 5, 7
	repo.notes["n-1"] = domain.Note{
		ID: "n-1", Title: "keep", Tag: "tagged", Content: "body", OwnerID: alice.UserID,
		PositionX: &x, PositionY: &y, Color: "#112233",
		Privacy: domain.PrivacyPrivate, Type: domain.NoteTypeText, Editing: domain.EditingCreatorOnly,
	}

	content := "new body"
	updated, err := svc.Update(context.Background(), alice, "n-1", UpdateInput{Content: &content})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Title != "keep" || updated.Tag != "tagged" || updated.Color != "#112233" {
		t.Errorf("nil fields must stay untouched: %+v", updated)
	}
	if updated.Content != "new body" {
		t.Errorf("content = %q, want new body", updated.Content)
	}

	empty := []string{}
	updated, err = svc.Update(context.Background(), alice, "n-1", UpdateInput{ImagePaths: &empty})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.HasImages {
		t.Error("clearing image paths must clear HasImages")
	}
}

func TestMoveUpdatesOnlyPosition(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	moved, err := svc.Move(context.Background(), alice, "n-own", 120, 240)
	if err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if *moved.PositionX != 120 || *moved.PositionY != 240 {
		t.Errorf("position = (%d,%d), want (120,240)", *moved.PositionX, *moved.PositionY)
	}
	if moved.Title != "Alice private" {
		t.Error("move must not touch other fields")
	}
	if _, err := svc.Move(context.Background(), carol, "n-own", 1, 1); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("move shares edit authorization, got %v", err)
	}
}

func TestDeleteRequiresOwnerOrAdmin(t *testing.T) {
	svc, repo, stream := newTestService()
	seedBoard(repo)

	// n-shared is collaborative, but delete is not an edit.
	if err := svc.Delete(context.Background(), alice, "n-shared"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("collaborative reader must not delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), bob, "n-shared"); err != nil {
		t.Errorf("owner must delete: %v", err)
	}
	if err := svc.Delete(context.Background(), admin, "n-hidden"); err != nil {
		t.Errorf("admin must delete any note: %v", err)
	}
	if _, ok := repo.notes["n-hidden"]; ok {
		t.Error("deleted note must be gone")
	}
	if err := svc.Delete(context.Background(), alice, "n-shared"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("double delete must yield ErrNotFound, got %v", err)
	}

	var deletions int
	for _, p := range stream.payloads {
		var event struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(p, &event) == nil && event.Type == "note.deleted" {
			deletions++
		}
	}
	if deletions != 2 {
		t.Errorf("expected 2 delete events, got %d", deletions)
	}
}

func TestCanEdit(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	cases := []struct {
		who    domain.Identity
		noteID string
		want   bool
	}{
		{bob, "n-shared", true},   // owner
		{alice, "n-shared", true}, // listed reader, collaborative
		{carol, "n-shared", false},
		{alice, "n-pub", false}, // visible but creator_only
		{bob, "n-pub", true},
	}
	for _, tc := range cases {
		got, err := svc.CanEdit(context.Background(), tc.who, tc.noteID)
		if err != nil {
			t.Fatalf("CanEdit(%s, %s): %v", tc.who.Username, tc.noteID, err)
		}
		if got != tc.want {
			t.Errorf("CanEdit(%s, %s) = %v, want %v", tc.who.Username, tc.noteID, got, tc.want)
		}
	}
}

func TestListPublicByOwner(t *testing.T) {
	svc, repo, _ := newTestService()
	seedBoard(repo)

	public, err := svc.ListPublicByOwner(context.Background(), bob.UserID)
	if err != nil {
		t.Fatalf("ListPublicByOwner returned error: %v", err)
	}
	if len(public) != 1 || public[0].ID != "n-pub" {
		t.Errorf("only everyone notes belong on a profile, got %v", noteIDs(public))
	}
}

func TestNilStreamerIsSafe(t *testing.T) {
	repo := newMemoryNoteRepo()
	svc := New(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := svc.Create(context.Background(), alice, CreateInput{Title: "quiet"}); err != nil {
		t.Fatalf("create without a streamer must work: %v", err)
	}
}
