package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/services"
)

func TestSharedWithMeCollapsesChildrenOfSharedParents(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	file := h.mustFile(t, "file", "alice", &folder.ID, "a.txt", "text/plain")
	loose := h.mustFile(t, "loose", "alice", &home.ID, "b.txt", "text/plain")

	h.mustGrant(t, folder.ID, "bob", models.Capabilities{Read: true})
	h.mustGrant(t, file.ID, "bob", models.Capabilities{Read: true, Write: true})
	h.mustGrant(t, loose.ID, "bob", models.Capabilities{Read: true})

	got, err := h.listing.SharedWithMe(ctx, models.User("bob"), services.SharedWithMeOptions{})
	if err != nil {
		t.Fatalf("SharedWithMe: %v", err)
	}

	ids := make(map[string]bool)
	for _, s := range got {
		ids[s.ID] = true
	}
	if !ids[folder.ID] || !ids[loose.ID] {
		t.Errorf("shared roots missing: %v", ids)
	}
	if ids[file.ID] {
		t.Error("child of a shared folder should collapse into the folder")
	}

	// IncludeAll surfaces the child too
	all, err := h.listing.SharedWithMe(ctx, models.User("bob"), services.SharedWithMeOptions{IncludeAll: true})
	if err != nil {
		t.Fatalf("SharedWithMe: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("IncludeAll returned %d entries, want 3", len(all))
	}
}

func TestSharedWithMeDropsCallerOwnedAndTrashed(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	mine := h.mustFile(t, "mine", "bob", &home.ID, "mine.txt", "text/plain")
	gone := h.mustFile(t, "gone", "alice", &home.ID, "gone.txt", "text/plain")
	kept := h.mustFile(t, "kept", "alice", &home.ID, "kept.txt", "text/plain")

	h.mustGrant(t, mine.ID, "bob", models.Capabilities{Read: true, Write: true})
	h.mustGrant(t, gone.ID, "bob", models.Capabilities{Read: true})
	h.mustGrant(t, kept.ID, "bob", models.Capabilities{Read: true})
	h.entities.SetActive(ctx, gone.ID, false)

	got, err := h.listing.SharedWithMe(ctx, models.User("bob"), services.SharedWithMeOptions{})
	if err != nil {
		t.Fatalf("SharedWithMe: %v", err)
	}
	if len(got) != 1 || got[0].ID != kept.ID {
		t.Errorf("got %d entries, want only %s", len(got), kept.ID)
	}
	if !got[0].Access.Read || got[0].Access.Write {
		t.Errorf("access = %+v, want read-only", got[0].Access)
	}
}

func TestSharedWithMeSorting(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, f := range []struct {
		id    string
		title string
		size  int64
	}{
		{"f1", "cherry", 30},
		{"f2", "apple", 10},
		{"f3", "banana", 20},
	} {
		e := h.mustFile(t, f.id, "alice", &home.ID, f.title, "text/plain")
		e.FileSize = f.size
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		e.UpdatedAt = base.Add(time.Duration(3-i) * time.Hour)
		if err := h.entities.Update(ctx, e); err != nil {
			t.Fatalf("seed: %v", err)
		}
		h.mustGrant(t, f.id, "bob", models.Capabilities{Read: true})
	}

	tests := []struct {
		name string
		opts services.SharedWithMeOptions
		want []string
	}{
		{"title ascending", services.SharedWithMeOptions{}, []string{"f2", "f3", "f1"}},
		{"title descending", services.SharedWithMeOptions{Descending: true}, []string{"f1", "f3", "f2"}},
		{"created", services.SharedWithMeOptions{SortField: "created"}, []string{"f1", "f2", "f3"}},
		{"modified descending", services.SharedWithMeOptions{SortField: "modified", Descending: true}, []string{"f1", "f2", "f3"}},
		{"size", services.SharedWithMeOptions{SortField: "size"}, []string{"f2", "f3", "f1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.listing.SharedWithMe(ctx, models.User("bob"), tt.opts)
			if err != nil {
				t.Fatalf("SharedWithMe: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSharedWithMeGuestIsEmpty(t *testing.T) {
	h := newHarness()
	got, err := h.listing.SharedWithMe(context.Background(), models.GuestCaller(), services.SharedWithMeOptions{})
	if err != nil {
		t.Fatalf("SharedWithMe: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("guest saw %d shared entries", len(got))
	}
}

func TestAllMyEntitiesUnionWithoutHomeOrDuplicates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	homeA := h.mustFolder(t, "home-a", "alice", nil, "Home")
	homeB := h.mustFolder(t, "home-b", "bob", nil, "Home")
	owned := h.mustFile(t, "owned", "bob", &homeB.ID, "owned.txt", "text/plain")
	shared := h.mustFile(t, "shared", "alice", &homeA.ID, "shared.txt", "text/plain")

	h.mustGrant(t, shared.ID, "bob", models.Capabilities{Read: true})
	// a share record on something bob already owns must not duplicate it
	h.mustGrant(t, owned.ID, "bob", models.Capabilities{Read: true, Write: true})

	got, err := h.listing.AllMyEntities(ctx, models.User("bob"))
	if err != nil {
		t.Fatalf("AllMyEntities: %v", err)
	}

	ids := make(map[string]int)
	for _, e := range got {
		ids[e.ID]++
	}
	if ids[homeB.ID] != 0 {
		t.Error("home container leaked into the listing")
	}
	if ids[owned.ID] != 1 || ids[shared.ID] != 1 {
		t.Errorf("listing = %v, want owned and shared exactly once", ids)
	}
}

func TestFileWithPermissionsGate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	file := h.mustFile(t, "file", "alice", &folder.ID, "a.txt", "text/plain")
	h.mustGrant(t, file.ID, "bob", models.Capabilities{Read: true, Write: true})
	h.mustGrant(t, folder.ID, "bob", models.Capabilities{Read: true})

	got, err := h.listing.FileWithPermissions(ctx, models.User("bob"), file.ID)
	if err != nil {
		t.Fatalf("FileWithPermissions: %v", err)
	}
	if !got.Access.Read || !got.Access.Write {
		t.Errorf("access = %+v", got.Access)
	}
	if got.Entity.ID != file.ID {
		t.Errorf("entity = %s", got.Entity.ID)
	}

	t.Run("no record is denied", func(t *testing.T) {
		_, err := h.listing.FileWithPermissions(ctx, models.User("carol"), file.ID)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("record with read unset still passes the gate", func(t *testing.T) {
		h.mustGrant(t, file.ID, "dave", models.Capabilities{Comment: true})
		got, err := h.listing.FileWithPermissions(ctx, models.User("dave"), file.ID)
		if err != nil {
			t.Fatalf("FileWithPermissions: %v", err)
		}
		if got.Access.Read {
			t.Error("read should be unset on the surfaced access")
		}
	})

	t.Run("folder target", func(t *testing.T) {
		_, err := h.listing.FileWithPermissions(ctx, models.User("bob"), folder.ID)
		if !errors.Is(err, domain.ErrIsADirectory) {
			t.Errorf("error = %v, want ErrIsADirectory", err)
		}
	})

	t.Run("trashed target", func(t *testing.T) {
		h.entities.SetActive(ctx, file.ID, false)
		defer h.entities.SetActive(ctx, file.ID, true)
		_, err := h.listing.FileWithPermissions(ctx, models.User("bob"), file.ID)
		if !errors.Is(err, domain.ErrInactive) {
			t.Errorf("error = %v, want ErrInactive", err)
		}
	})

	t.Run("trashed ancestor", func(t *testing.T) {
		h.entities.SetActive(ctx, folder.ID, false)
		defer h.entities.SetActive(ctx, folder.ID, true)
		_, err := h.listing.FileWithPermissions(ctx, models.User("bob"), file.ID)
		if !errors.Is(err, domain.ErrParentDeleted) {
			t.Errorf("error = %v, want ErrParentDeleted", err)
		}
	})
}

func TestFileWithPermissionsGuestUsesGeneralAccess(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	file := h.mustFile(t, "file", "alice", &home.ID, "pub.txt", "text/plain")

	if _, err := h.listing.FileWithPermissions(ctx, models.GuestCaller(), file.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied before publishing", err)
	}

	h.mustGrant(t, file.ID, models.Everyone, models.Capabilities{Read: true})
	got, err := h.listing.FileWithPermissions(ctx, models.GuestCaller(), file.ID)
	if err != nil {
		t.Fatalf("FileWithPermissions: %v", err)
	}
	if !got.Access.Read || got.Access.Write {
		t.Errorf("access = %+v, want public read-only", got.Access)
	}
}

func TestDocumentWithPermissions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	h.docs.Create(ctx, &models.Document{ID: "doc-1", Title: "notes", Content: "# hi"})
	docID := "doc-1"
	mime := "frappe_doc"
	note := &models.Entity{
		ID: "note", Title: "notes", ParentID: &home.ID,
		Owner: "alice", IsActive: true, MimeType: &mime, DocumentID: &docID,
	}
	if err := h.entities.Create(ctx, note); err != nil {
		t.Fatalf("seed: %v", err)
	}
	plain := h.mustFile(t, "plain", "alice", &home.ID, "plain.txt", "text/plain")

	h.mustGrant(t, note.ID, "bob", models.Capabilities{Read: true})
	h.mustGrant(t, plain.ID, "bob", models.Capabilities{Read: true})

	got, err := h.listing.DocumentWithPermissions(ctx, models.User("bob"), note.ID)
	if err != nil {
		t.Fatalf("DocumentWithPermissions: %v", err)
	}
	if got.Document.Content != "# hi" {
		t.Errorf("content = %q", got.Document.Content)
	}

	if _, err := h.listing.DocumentWithPermissions(ctx, models.User("bob"), plain.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for a byte-backed file", err)
	}
}
