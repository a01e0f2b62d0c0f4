package domain

import (
	"reflect"
	"testing"
)

func TestSharedWithListNormalizesTokens(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"bob", []string{"bob"}},
		{" bob, carol ", []string{"bob", "carol"}},
		{"bob,,carol,", []string{"bob", "carol"}},
		{"bob , bob", []string{"bob", "bob"}},
	}
	for _, tc := range cases {
		n := Note{SharedWith: tc.raw}
		if got := n.SharedWithList(); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SharedWithList(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	note := Note{
		OwnerID:    "owner-1",
		Privacy:    PrivacySomePeople,
		SharedWith: " bob, carol ",
	}

	if !note.VisibleTo("owner-1", "alice") {
		t.Error("owner must always see their own note")
	}
	if !note.VisibleTo("user-2", "bob") {
		t.Error("listed username must see a some_people note")
	}
	if note.VisibleTo("user-3", "bo") {
		t.Error("share list membership must be an exact match, not a prefix")
	}
	if note.VisibleTo("user-4", "dave") {
		t.Error("unlisted username must not see a some_people note")
	}

	note.Privacy = PrivacyEveryone
	if !note.VisibleTo("user-4", "dave") {
		t.Error("everyone note must be visible to any account")
	}

	note.Privacy = PrivacyPrivate
	if note.VisibleTo("user-2", "bob") {
		t.Error("private note must only be visible to the owner")
	}
}

func TestEditableBy(t *testing.T) {
	note := Note{
		OwnerID:    "owner-1",
		Privacy:    PrivacySomePeople,
		SharedWith: "bob",
		Editing:    EditingCreatorOnly,
	}

	if !note.EditableBy("owner-1", "alice") {
		t.Error("owner must always be able to edit")
	}
	if note.EditableBy("user-2", "bob") {
		t.Error("creator_only must block a non-owner reader")
	}

	note.Editing = EditingCollaborative
	if !note.EditableBy("user-2", "bob") {
		t.Error("collaborative must allow a visible reader to edit")
	}
	if note.EditableBy("user-3", "dave") {
		t.Error("collaborative must not grant edit to accounts who cannot read")
	}
}

func TestMatchesSearch(t *testing.T) {
	note := Note{Title: "Groceries", Tag: "Home", Content: "Buy MILK and eggs"}

	if !note.MatchesSearch("milk") {
		t.Error("search must be case insensitive over content")
	}
	if !note.MatchesSearch("GROC") {
		t.Error("search must be case insensitive over title")
	}
	if !note.MatchesSearch("home") {
		t.Error("search must cover the tag")
	}
	if !note.MatchesSearch("  ") {
		t.Error("blank term must match everything")
	}
	if note.MatchesSearch("bread") {
		t.Error("non-substring term must not match")
	}
}

func TestWithDefaultsFillsAndIsIdempotent(t *testing.T) {
	note := Note{OwnerID: "owner-1"}

	got := note.WithDefaults()
	if got.PositionX == nil || *got.PositionX != DefaultPositionX {
		t.Fatalf("PositionX = %v, want %d", got.PositionX, DefaultPositionX)
	}
	if got.PositionY == nil || *got.PositionY != DefaultPositionY {
		t.Fatalf("PositionY = %v, want %d", got.PositionY, DefaultPositionY)
	}
	if got.Color != DefaultColor {
		t.Fatalf("Color = %q, want %q", got.Color, DefaultColor)
	}
	if note.PositionX != nil || note.Color != "" {
		t.Error("WithDefaults must not mutate the receiver")
	}

	again := got.WithDefaults()
	if *again.PositionX != *got.PositionX || *again.PositionY != *got.PositionY || again.Color != got.Color {
		t.Error("WithDefaults applied twice must yield the same note")
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	x, y := 10, 640
	note := Note{PositionX: &x, PositionY: &y, Color: "#112233"}

	got := note.WithDefaults()
	if *got.PositionX != 10 || *got.PositionY != 640 || got.Color != "#112233" {
		t.Errorf("explicit values must survive: %+v", got)
	}
}

func TestParseEnumsRejectUnknownValues(t *testing.T) {
	if _, err := ParsePrivacyLevel("public"); err == nil {
		t.Error("ParsePrivacyLevel must reject unknown values")
	}
	if _, err := ParseNoteType("markdown"); err == nil {
		t.Error("ParseNoteType must reject unknown values")
	}
	if _, err := ParseEditingPermission("anyone"); err == nil {
		t.Error("ParseEditingPermission must reject unknown values")
	}
	if level, err := ParsePrivacyLevel("some_people"); err != nil || level != PrivacySomePeople {
		t.Errorf("ParsePrivacyLevel(some_people) = %v, %v", level, err)
	}
}
