package catalog_test

import (
	"context"
	"testing"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/services"
	"packflow/internal/testsupport"
)

func TestInsertAndGetRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	pkg := &catalog.Package{
		State:            catalog.StatePending,
		LastState:        catalog.StatePending,
		LastTransition:   catalog.TransitionCopyPackage,
		OriginalFileName: "lecture-01.mp4",
		PackageType:      "video",
		Type:             "main",
		MediaIDs:         []string{"m-1", "m-2"},
		Metadata:         &catalog.Metadata{Duration: 5400, RichMedia: true},
		Tags:             []string{"poi-1"},
		Timecodes: []catalog.Timecode{{
			ID:       "poi-1",
			Timecode: 1500,
			Image: catalog.TimecodeImage{
				Large: "images/poi-1.jpg",
				Small: catalog.SpriteRef{URL: "images/sprite-0.jpg", X: 142, Y: 0},
			},
		}},
	}
	if err := store.Insert(ctx, pkg); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if pkg.ID == 0 {
		t.Fatal("Insert did not assign an id")
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for existing package")
	}
	if got.State != catalog.StatePending || got.LastTransition != catalog.TransitionCopyPackage {
		t.Fatalf("unexpected state fields: %+v", got)
	}
	if len(got.MediaIDs) != 2 || got.MediaIDs[0] != "m-1" {
		t.Fatalf("media ids not preserved: %v", got.MediaIDs)
	}
	if got.Metadata == nil || got.Metadata.Duration != 5400 || !got.Metadata.RichMedia {
		t.Fatalf("metadata not preserved: %+v", got.Metadata)
	}
	if len(got.Timecodes) != 1 || got.Timecodes[0].Image.Small.X != 142 {
		t.Fatalf("timecodes not preserved: %+v", got.Timecodes)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	got, err := store.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing package, got %+v", got)
	}
}

func TestSameNameOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewPackage(t, store, "talk.mp4", "video")
	second := testsupport.NewPackage(t, store, "talk.mp4", "video")
	testsupport.NewPackage(t, store, "other.mp4", "video")

	candidates, err := store.SameName(ctx, "talk.mp4", second.ID)
	if err != nil {
		t.Fatalf("SameName: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != first.ID {
		t.Fatalf("expected only the older sibling, got %+v", candidates)
	}

	if err := store.Remove(ctx, first.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	candidates, err = store.SameName(ctx, "talk.mp4", second.ID)
	if err != nil {
		t.Fatalf("SameName after remove: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("removed packages must not be merge candidates: %+v", candidates)
	}
}

func TestUpdateUploadResultWritesBothFields(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	pkg := testsupport.NewPackage(t, store, "clip.mp4", "video")

	if err := store.UpdateUploadResult(ctx, pkg.ID, []string{"m-7"}, "/media/m-7"); err != nil {
		t.Fatalf("UpdateUploadResult: %v", err)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.MediaIDs) != 1 || got.MediaIDs[0] != "m-7" {
		t.Fatalf("media ids not persisted: %v", got.MediaIDs)
	}
	if got.Link != "/media/m-7" {
		t.Fatalf("link not persisted: %q", got.Link)
	}
}

func TestNarrowSetters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	pkg := testsupport.NewPackage(t, store, "clip.mp4", "video")

	if err := store.UpdateState(ctx, pkg.ID, catalog.StateCopying); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := store.UpdateLastState(ctx, pkg.ID, catalog.StateCopied); err != nil {
		t.Fatalf("UpdateLastState: %v", err)
	}
	if err := store.UpdateLastTransition(ctx, pkg.ID, catalog.TransitionDefragmentMp4); err != nil {
		t.Fatalf("UpdateLastTransition: %v", err)
	}
	if err := store.UpdateErrorCode(ctx, pkg.ID, services.CodeCopy); err != nil {
		t.Fatalf("UpdateErrorCode: %v", err)
	}
	if err := store.UpdateMediaIDs(ctx, pkg.ID, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("UpdateMediaIDs: %v", err)
	}
	if err := store.UpdateLink(ctx, pkg.ID, "https://media.example/clip"); err != nil {
		t.Fatalf("UpdateLink: %v", err)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateCopying {
		t.Fatalf("state = %s", got.State)
	}
	if got.LastState != catalog.StateCopied {
		t.Fatalf("lastState = %s", got.LastState)
	}
	if got.LastTransition != catalog.TransitionDefragmentMp4 {
		t.Fatalf("lastTransition = %s", got.LastTransition)
	}
	if got.ErrorCode != services.CodeCopy {
		t.Fatalf("errorCode = %d", got.ErrorCode)
	}
	if len(got.MediaIDs) != 3 {
		t.Fatalf("media ids = %v", got.MediaIDs)
	}
	if got.Link != "https://media.example/clip" {
		t.Fatalf("link = %s", got.Link)
	}
}

func TestLockIsExclusive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	target := testsupport.NewPackage(t, store, "merge.mp4", "video")
	if err := store.UpdateState(ctx, target.ID, catalog.StateReady); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	ok, err := store.Lock(ctx, target.ID, 100)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !ok {
		t.Fatal("first lock should succeed")
	}

	ok, err = store.Lock(ctx, target.ID, 200)
	if err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	if ok {
		t.Fatal("second locker must not steal an existing lock")
	}

	// Re-locking by the holder is idempotent.
	ok, err = store.Lock(ctx, target.ID, 100)
	if err != nil {
		t.Fatalf("re-Lock: %v", err)
	}
	if !ok {
		t.Fatal("holder should be able to re-acquire its own lock")
	}

	got, err := store.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateWaitingForMerge || got.LockedByID != 100 {
		t.Fatalf("locked package state = %s lockedBy = %d", got.State, got.LockedByID)
	}

	if err := store.ReleaseLock(ctx, target.ID, catalog.StateReady); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
	got, err = store.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID after release: %v", err)
	}
	if got.State != catalog.StateReady || got.LockedByID != 0 {
		t.Fatalf("released package state = %s lockedBy = %d", got.State, got.LockedByID)
	}
}

func TestLockedByFindsParkedPackage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	target := testsupport.NewPackage(t, store, "merge.mp4", "video")
	locker := testsupport.NewPackage(t, store, "merge.mp4", "video")

	if ok, err := store.Lock(ctx, target.ID, locker.ID); err != nil || !ok {
		t.Fatalf("Lock: ok=%v err=%v", ok, err)
	}

	got, err := store.LockedBy(ctx, "merge.mp4", locker.ID)
	if err != nil {
		t.Fatalf("LockedBy: %v", err)
	}
	if got == nil || got.ID != target.ID {
		t.Fatalf("expected locked package %d, got %+v", target.ID, got)
	}

	none, err := store.LockedBy(ctx, "merge.mp4", 999)
	if err != nil {
		t.Fatalf("LockedBy stranger: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no package locked by stranger, got %+v", none)
	}
}

func TestResumableExcludesTerminalStates(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	inFlight := testsupport.NewPackage(t, store, "a.mp4", "video")
	if err := store.UpdateState(ctx, inFlight.ID, catalog.StateCopied); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	for _, parked := range []catalog.State{
		catalog.StateReady,
		catalog.StateWaitingForUpload,
		catalog.StateWaitingForMerge,
		catalog.StateError,
	} {
		pkg := testsupport.NewPackage(t, store, "b.mp4", "video")
		if err := store.UpdateState(ctx, pkg.ID, parked); err != nil {
			t.Fatalf("UpdateState(%s): %v", parked, err)
		}
	}

	resumable, err := store.Resumable(ctx)
	if err != nil {
		t.Fatalf("Resumable: %v", err)
	}
	if len(resumable) != 1 || resumable[0].ID != inFlight.ID {
		t.Fatalf("expected only the in-flight package, got %+v", resumable)
	}
}

func TestRetryErroredRestoresLastState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	pkg := testsupport.NewPackage(t, store, "bad.mp4", "video")
	if err := store.UpdateLastState(ctx, pkg.ID, catalog.StateCopied); err != nil {
		t.Fatalf("UpdateLastState: %v", err)
	}
	if err := store.UpdateState(ctx, pkg.ID, catalog.StateError); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := store.UpdateErrorCode(ctx, pkg.ID, services.CodeCopy); err != nil {
		t.Fatalf("UpdateErrorCode: %v", err)
	}

	count, err := store.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}
	if count != 1 {
		t.Fatalf("retried %d packages, want 1", count)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateCopied {
		t.Fatalf("state after retry = %s, want %s", got.State, catalog.StateCopied)
	}
	if got.ErrorCode != services.CodeNoError {
		t.Fatalf("error code after retry = %d", got.ErrorCode)
	}
}

func TestUpdateDateAndTitle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	pkg := testsupport.NewPackage(t, store, "dated.mp4", "video")

	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := store.UpdateDate(ctx, pkg.ID, date); err != nil {
		t.Fatalf("UpdateDate: %v", err)
	}
	if err := store.UpdateTitle(ctx, pkg.ID, "Pi Day Keynote"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Date.Equal(date) {
		t.Fatalf("date = %v, want %v", got.Date, date)
	}
	if got.Title != "Pi Day Keynote" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestPointsLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	pkg := testsupport.NewPackage(t, store, "points.tar", "tar")

	points := []catalog.PointOfInterest{
		{ID: "p-2", PackageID: pkg.ID, Name: "Question", Value: 9000},
		{ID: "p-1", PackageID: pkg.ID, Name: "Intro", Value: 100, File: &catalog.FileInfo{
			OriginalName: "slide.jpg",
			MimeType:     "image/jpeg",
			FileName:     "p-1.jpg",
			Size:         2048,
		}},
	}
	if err := store.AddPoints(ctx, points); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}

	stored, err := store.PointsForPackage(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("PointsForPackage: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d points, want 2", len(stored))
	}
	if stored[0].ID != "p-1" || stored[1].ID != "p-2" {
		t.Fatalf("points not ordered by timecode: %+v", stored)
	}
	if stored[0].File == nil || stored[0].File.FileName != "p-1.jpg" {
		t.Fatalf("point file not preserved: %+v", stored[0].File)
	}

	point, ok, err := store.GetPoint(ctx, "p-2")
	if err != nil || !ok {
		t.Fatalf("GetPoint: ok=%v err=%v", ok, err)
	}
	if point.Name != "Question" {
		t.Fatalf("point name = %q", point.Name)
	}

	if err := store.RemovePointsForPackage(ctx, pkg.ID); err != nil {
		t.Fatalf("RemovePointsForPackage: %v", err)
	}
	stored, err = store.PointsForPackage(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("PointsForPackage after remove: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("points not removed: %+v", stored)
	}
}

func TestStatsGroupsByState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewPackage(t, store, "one.mp4", "video")
	testsupport.NewPackage(t, store, "two.mp4", "video")
	third := testsupport.NewPackage(t, store, "three.mp4", "video")
	if err := store.UpdateState(ctx, third.ID, catalog.StateReady); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[catalog.StatePending] != 2 || stats[catalog.StateReady] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
