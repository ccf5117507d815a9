package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cumulus/internal/domain"
	"cumulus/internal/domain/models"
	"cumulus/internal/domain/services"
)

func TestShareAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		caller  models.Caller
		setup   func(h *harness)
		wantErr error
	}{
		{
			name:   "owner may share",
			caller: models.User("alice"),
		},
		{
			name:   "holder of share capability may share",
			caller: models.User("carol"),
			setup: func(h *harness) {
				h.mustGrant(t, "folder", "carol", models.Capabilities{Read: true, Share: true})
			},
		},
		{
			name:    "read-only grantee may not share",
			caller:  models.User("carol"),
			wantErr: domain.ErrPermissionDenied,
			setup: func(h *harness) {
				h.mustGrant(t, "folder", "carol", models.Capabilities{Read: true})
			},
		},
		{
			name:    "stranger may not share",
			caller:  models.User("mallory"),
			wantErr: domain.ErrPermissionDenied,
		},
		{
			name:    "guest may not share",
			caller:  models.GuestCaller(),
			wantErr: domain.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			home := h.mustFolder(t, "home", "alice", nil, "Home")
			h.mustFolder(t, "folder", "alice", &home.ID, "docs")
			if tt.setup != nil {
				tt.setup(h)
			}

			_, err := h.shares.Share(context.Background(), tt.caller, "folder", "bob", models.Full())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Share: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Share error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Owning any strict ancestor authorizes sharing a descendant, even
// without a record on the descendant itself.
func TestShareAllowedForAncestorOwner(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	// bob owns a file that physically lives in alice's folder
	h.mustFile(t, "file", "bob", &folder.ID, "f.txt", "text/plain")

	if _, err := h.shares.Share(ctx, models.User("alice"), "file", "carol", models.Full()); err != nil {
		t.Fatalf("ancestor owner share: %v", err)
	}
}

func TestSharePartialUpdateMerge(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := models.User("alice")

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	h.mustFolder(t, "folder", "alice", &home.ID, "docs")

	// Fresh record: absent fields default to false.
	perm, err := h.shares.Share(ctx, alice, "folder", "bob", models.CapabilityUpdate{Read: models.Bool(true)})
	if err != nil {
		t.Fatalf("first share: %v", err)
	}
	want := models.Capabilities{Read: true}
	if perm.Capabilities != want {
		t.Fatalf("after first share got %+v, want %+v", perm.Capabilities, want)
	}

	// Second update flips write only; read must survive untouched.
	perm, err = h.shares.Share(ctx, alice, "folder", "bob", models.CapabilityUpdate{Write: models.Bool(true)})
	if err != nil {
		t.Fatalf("second share: %v", err)
	}
	want = models.Capabilities{Read: true, Write: true}
	if perm.Capabilities != want {
		t.Errorf("after partial update got %+v, want %+v", perm.Capabilities, want)
	}

	// Explicit false overwrites.
	perm, err = h.shares.Share(ctx, alice, "folder", "bob", models.CapabilityUpdate{Read: models.Bool(false)})
	if err != nil {
		t.Fatalf("third share: %v", err)
	}
	want = models.Capabilities{Write: true}
	if perm.Capabilities != want {
		t.Errorf("after revoking read got %+v, want %+v", perm.Capabilities, want)
	}
}

func TestUnshareCascadesOverSubtree(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	sub := h.mustFolder(t, "sub", "alice", &folder.ID, "sub")
	file := h.mustFile(t, "file", "alice", &sub.ID, "f.txt", "text/plain")

	for _, id := range []string{folder.ID, sub.ID, file.ID} {
		h.mustGrant(t, id, "bob", models.Capabilities{Read: true})
	}

	if err := h.shares.Unshare(ctx, models.User("alice"), folder.ID, "bob"); err != nil {
		t.Fatalf("Unshare: %v", err)
	}

	for _, id := range []string{folder.ID, sub.ID, file.ID} {
		perm, err := h.perms.Get(ctx, id, "bob")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if perm != nil {
			t.Errorf("record on %s survived the cascade", id)
		}
	}
}

func TestUnshareIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := models.User("alice")

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	h.mustGrant(t, folder.ID, "bob", models.Capabilities{Read: true})

	if err := h.shares.Unshare(ctx, alice, folder.ID, "bob"); err != nil {
		t.Fatalf("first Unshare: %v", err)
	}
	if err := h.shares.Unshare(ctx, alice, folder.ID, "bob"); err != nil {
		t.Fatalf("second Unshare: %v", err)
	}
}

// Unsharing must fail when the grantee owns a strict ancestor, at any
// depth: their access flows from ownership, not from the record.
func TestUnshareRejectedForAncestorOwner(t *testing.T) {
	for depth := 1; depth <= 4; depth++ {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			h := newHarness()
			ctx := context.Background()

			parent := h.mustFolder(t, "d0", "bob", nil, "Home")
			for i := 1; i < depth; i++ {
				parent = h.mustFolder(t, fmt.Sprintf("d%d", i), "alice", &parent.ID, fmt.Sprintf("level %d", i))
			}
			leaf := h.mustFile(t, "leaf", "alice", &parent.ID, "f.txt", "text/plain")
			h.mustGrant(t, leaf.ID, "bob", models.Capabilities{Read: true})

			err := h.shares.Unshare(ctx, models.User("alice"), leaf.ID, "bob")
			if !errors.Is(err, domain.ErrPermissionDenied) {
				t.Errorf("Unshare error = %v, want ErrPermissionDenied", err)
			}

			perm, _ := h.perms.Get(ctx, leaf.ID, "bob")
			if perm == nil {
				t.Error("record was deleted despite the rejection")
			}
		})
	}
}

// Descending into a folder the grantee owns must abort the cascade
// before that folder's children are touched.
func TestUnshareStopsAtGranteeOwnedFolder(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	bobs := h.mustFolder(t, "bobs", "bob", &folder.ID, "bobs stuff")
	h.mustFile(t, "inner", "bob", &bobs.ID, "f.txt", "text/plain")
	h.mustGrant(t, folder.ID, "bob", models.Capabilities{Read: true})

	err := h.shares.Unshare(ctx, models.User("alice"), folder.ID, "bob")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Unshare error = %v, want ErrPermissionDenied", err)
	}
}

func TestSetGeneralAccess(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	alice := models.User("alice")

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")

	req := &services.GeneralAccessRequest{Read: true, Write: true}
	if err := h.shares.SetGeneralAccess(ctx, alice, folder.ID, req); err != nil {
		t.Fatalf("SetGeneralAccess: %v", err)
	}

	access, err := h.access.GetGeneralAccess(ctx, folder.ID)
	if err != nil {
		t.Fatalf("GetGeneralAccess: %v", err)
	}
	if access == nil || !access.Read || !access.Write {
		t.Fatalf("general access = %+v, want {Read:true Write:true}", access)
	}

	// Share capability never lands on the everyone record.
	perm, _ := h.perms.Get(ctx, folder.ID, models.Everyone)
	if perm == nil || perm.Share {
		t.Errorf("everyone record = %+v, want Share:false", perm)
	}

	// Read=false revokes entirely.
	if err := h.shares.SetGeneralAccess(ctx, alice, folder.ID, &services.GeneralAccessRequest{}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	access, _ = h.access.GetGeneralAccess(ctx, folder.ID)
	if access != nil {
		t.Errorf("general access survived revocation: %+v", access)
	}
}

func TestSetGeneralAccessOwnerOnly(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	h.mustGrant(t, folder.ID, "bob", models.FullCapabilities())

	err := h.shares.SetGeneralAccess(ctx, models.User("bob"), folder.ID, &services.GeneralAccessRequest{Read: true})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("SetGeneralAccess error = %v, want ErrPermissionDenied", err)
	}
}

func TestSharedWithFiltersSpecialGrantees(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	home := h.mustFolder(t, "home", "alice", nil, "Home")
	folder := h.mustFolder(t, "folder", "alice", &home.ID, "docs")
	h.mustGrant(t, folder.ID, "bob", models.Capabilities{Read: true})
	h.mustGrant(t, folder.ID, "carol", models.Capabilities{Read: true, Write: true})
	h.mustGrant(t, folder.ID, models.Everyone, models.Capabilities{Read: true})
	h.mustGrant(t, folder.ID, "alice", models.FullCapabilities())

	entries, err := h.shares.SharedWith(ctx, models.User("alice"), folder.ID)
	if err != nil {
		t.Fatalf("SharedWith: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (bob and carol)", len(entries))
	}
	for _, e := range entries {
		if e.User == "alice" || e.User == models.Everyone {
			t.Errorf("entry for %s should have been filtered", e.User)
		}
	}
}
