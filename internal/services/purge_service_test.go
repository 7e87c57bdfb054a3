package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/catalogix/backend/internal/models"
)

// seedStoredRendition seeds a rendition row and writes its storage object.
func seedStoredRendition(t *testing.T, ts *testStack, assetID uuid.UUID, preset, storageKey string) {
	t.Helper()
	ctx := context.Background()
	if _, err := ts.store.Put(ctx, storageKey, []byte("jpeg payload")); err != nil {
		t.Fatalf("failed to seed storage object: %v", err)
	}
	seedRendition(t, ts, uuid.New(), assetID, preset, storageKey, strings.Repeat("0", 16))
}

func TestPurgeDryRunNeverMutates(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	unused := seedAsset(t, ts, "t1", strings.Repeat("a", 64), 0)
	seedStoredRendition(t, ts, unused.ID, "thumb", "renditions/aa/thumb.jpg")
	inUse := seedAsset(t, ts, "t1", strings.Repeat("b", 64), 2)
	seedStoredRendition(t, ts, inUse.ID, "thumb", "renditions/bb/thumb.jpg")

	result, err := ts.purge.Purge(context.Background(), true, "")
	if err != nil {
		t.Fatalf("Purge dry run error: %v", err)
	}

	if !result.DryRun {
		t.Error("result.DryRun = false")
	}
	if result.DeletedCount != 0 {
		t.Errorf("dry run deleted %d assets", result.DeletedCount)
	}
	if len(result.Candidates) != 1 || result.Candidates[0] != unused.ContentHash {
		t.Errorf("candidates = %v, want [%s]", result.Candidates, unused.ContentHash)
	}
	if got := ts.countRows(t, &models.Asset{}); got != 2 {
		t.Errorf("asset rows = %d after dry run, want 2", got)
	}
	if got := ts.countStorageObjects(t); got != 2 {
		t.Errorf("storage objects = %d after dry run, want 2", got)
	}
}

func TestPurgeRequiresConfirmToken(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	seedAsset(t, ts, "t1", strings.Repeat("a", 64), 0)

	for _, token := range []string{"", "wrong-token"} {
		_, err := ts.purge.Purge(context.Background(), false, token)
		if !errors.Is(err, ErrBadConfirmToken) {
			t.Errorf("Purge(token=%q) error = %v, want ErrBadConfirmToken", token, err)
		}
	}
	if got := ts.countRows(t, &models.Asset{}); got != 1 {
		t.Errorf("asset rows = %d after refused purge, want 1", got)
	}
}

func TestPurgeDeletesOnlyUnreferencedAssets(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	unused := seedAsset(t, ts, "t1", strings.Repeat("a", 64), 0)
	seedStoredRendition(t, ts, unused.ID, "thumb", "renditions/aa/thumb.jpg")
	seedStoredRendition(t, ts, unused.ID, "card", "renditions/aa/card.jpg")
	inUse := seedAsset(t, ts, "t1", strings.Repeat("b", 64), 1)
	seedStoredRendition(t, ts, inUse.ID, "thumb", "renditions/bb/thumb.jpg")

	result, err := ts.purge.Purge(ctx, false, "DELETE_CONFIRMED")
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}

	if result.DeletedCount != 1 {
		t.Errorf("deleted count = %d, want 1", result.DeletedCount)
	}
	if got := ts.countRows(t, &models.Asset{}); got != 1 {
		t.Errorf("asset rows = %d, want 1", got)
	}
	var remaining models.Asset
	if err := ts.db.First(&remaining).Error; err != nil {
		t.Fatalf("failed to load remaining asset: %v", err)
	}
	if remaining.ID != inUse.ID {
		t.Errorf("remaining asset = %s, want the referenced one %s", remaining.ID, inUse.ID)
	}

	if got := ts.countRows(t, &models.Rendition{}); got != 1 {
		t.Errorf("rendition rows = %d, want 1 (cascade removed the candidate's)", got)
	}

	for key, want := range map[string]bool{
		"renditions/aa/thumb.jpg": false,
		"renditions/aa/card.jpg":  false,
		"renditions/bb/thumb.jpg": true,
	} {
		exists, err := ts.store.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists error: %v", err)
		}
		if exists != want {
			t.Errorf("storage object %s exists = %v, want %v", key, exists, want)
		}
	}
}

func TestPurgeRevalidatesCountAtDeletion(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	asset := seedAsset(t, ts, "t1", strings.Repeat("a", 64), 0)
	seedStoredRendition(t, ts, asset.ID, "thumb", "renditions/aa/thumb.jpg")

	candidates, err := ts.purge.ListPurgeCandidates()
	if err != nil {
		t.Fatalf("ListPurgeCandidates error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidate count = %d, want 1", len(candidates))
	}

	// A collaborator attaches the asset after listing but before deletion.
	if err := ts.db.Model(&models.Asset{}).Where("id = ?", asset.ID).Update("in_use_count", 1).Error; err != nil {
		t.Fatalf("failed to bump in_use_count: %v", err)
	}

	_, err = ts.purge.deleteCandidate(&candidates[0])
	if !errors.Is(err, errCandidateInUse) {
		t.Fatalf("deleteCandidate error = %v, want errCandidateInUse", err)
	}
	if got := ts.countRows(t, &models.Asset{}); got != 1 {
		t.Errorf("asset rows = %d after skipped candidate, want 1", got)
	}
	if got := ts.countRows(t, &models.Rendition{}); got != 1 {
		t.Errorf("rendition rows = %d after skipped candidate, want 1", got)
	}
	exists, err := ts.store.Exists(context.Background(), "renditions/aa/thumb.jpg")
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if !exists {
		t.Error("storage object deleted for a skipped candidate")
	}
}

func TestPurgePreservesSharedStorageLocations(t *testing.T) {
	t.Parallel()

	ts := newTestStack(t)
	ctx := context.Background()
	sharedKey := "renditions/aa/thumb.jpg"

	unused := seedAsset(t, ts, "t1", strings.Repeat("a", 64), 0)
	seedStoredRendition(t, ts, unused.ID, "thumb", sharedKey)

	// The second asset aliases the same storage object, the way the
	// near-duplicate path does, and is still referenced.
	inUse := seedAsset(t, ts, "t1", strings.Repeat("b", 64), 1)
	seedRendition(t, ts, uuid.New(), inUse.ID, "thumb", sharedKey, strings.Repeat("0", 16))

	result, err := ts.purge.Purge(ctx, false, "DELETE_CONFIRMED")
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if result.DeletedCount != 1 {
		t.Errorf("deleted count = %d, want 1", result.DeletedCount)
	}

	exists, err := ts.store.Exists(ctx, sharedKey)
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if !exists {
		t.Fatal("shared storage object deleted while another rendition row references it")
	}

	// Once the survivor is released, a second purge removes the object.
	if err := ts.db.Model(&models.Asset{}).Where("id = ?", inUse.ID).Update("in_use_count", 0).Error; err != nil {
		t.Fatalf("failed to release asset: %v", err)
	}
	if _, err := ts.purge.Purge(ctx, false, "DELETE_CONFIRMED"); err != nil {
		t.Fatalf("second Purge error: %v", err)
	}
	exists, err = ts.store.Exists(ctx, sharedKey)
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if exists {
		t.Error("shared storage object survived after its last reference was purged")
	}
}
