package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewItemDefaults(t *testing.T) {
	it, err := NewItem(ItemPatch{Title: Ptr("Hook reel")}, "id-1", "owner", t0)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if it.Status != StatusIdea || it.Format != FormatCarousel || it.Objective != ObjectiveAttract || it.Distribution != DistributionInstagram {
		t.Fatalf("unexpected defaults: %+v", it)
	}
	if !it.CreatedAt.Equal(t0) || !it.UpdatedAt.Equal(t0) {
		t.Fatalf("timestamps not set: %+v", it)
	}
	if it.Tags == nil {
		t.Fatalf("tags should be empty, not nil")
	}
}

func TestNewItemRequiresTitle(t *testing.T) {
	_, err := NewItem(ItemPatch{}, "id-1", "owner", t0)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
}

func TestApplyPartialPatch(t *testing.T) {
	it, err := NewItem(ItemPatch{
		Title:       Ptr("A"),
		Description: Ptr("desc"),
		Tags:        &[]string{" b", "a", "b", ""},
		EquipmentID: Ptr("eq-1"),
		ScriptID:    Ptr("s-1"),
		Script:      &ScriptSnapshot{Title: "Script"},
	}, "id-1", "owner", t0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(it.Tags, []string{"a", "b"}) {
		t.Fatalf("tags not normalized: %v", it.Tags)
	}
	if it.Script == nil || it.Script.ID != "s-1" {
		t.Fatalf("script snapshot not linked: %+v", it.Script)
	}

	later := t0.Add(time.Hour)
	if err := it.Apply(ItemPatch{Title: Ptr("B"), ScriptID: Ptr(""), EquipmentID: Ptr("")}, later); err != nil {
		t.Fatal(err)
	}
	if it.Title != "B" || it.Description != "desc" {
		t.Fatalf("patch leaked: %+v", it)
	}
	if it.ScriptID != nil || it.Script != nil || it.EquipmentID != nil {
		t.Fatalf("associations not cleared: %+v", it)
	}
	if !it.UpdatedAt.Equal(later) {
		t.Fatalf("updated_at not refreshed")
	}
}

func TestApplyRelinkedScriptDropsOldSnapshot(t *testing.T) {
	it, err := NewItem(ItemPatch{
		Title:    Ptr("A"),
		ScriptID: Ptr("s1"),
		Script:   &ScriptSnapshot{Title: "Old script"},
	}, "id-1", "owner", t0)
	if err != nil {
		t.Fatal(err)
	}
	if err := it.Apply(ItemPatch{ScriptID: Ptr("s1")}, t0); err != nil {
		t.Fatal(err)
	}
	if it.Script == nil || it.Script.Title != "Old script" {
		t.Fatalf("same script id should keep snapshot: %+v", it.Script)
	}
	if err := it.Apply(ItemPatch{ScriptID: Ptr("s2")}, t0); err != nil {
		t.Fatal(err)
	}
	if it.ScriptID == nil || *it.ScriptID != "s2" {
		t.Fatalf("script id not updated: %v", it.ScriptID)
	}
	if it.Script != nil {
		t.Fatalf("stale snapshot kept: %+v", it.Script)
	}
	if err := it.Apply(ItemPatch{ScriptID: Ptr("s3"), Script: &ScriptSnapshot{Title: "New"}}, t0); err != nil {
		t.Fatal(err)
	}
	if it.Script == nil || it.Script.ID != "s3" || it.Script.Title != "New" {
		t.Fatalf("new snapshot not linked: %+v", it.Script)
	}
}

func TestScriptSnapshotRequiresScriptID(t *testing.T) {
	cases := []ItemPatch{
		{Title: Ptr("A"), Script: &ScriptSnapshot{Title: "x"}},
		{Title: Ptr("A"), ScriptID: Ptr(" "), Script: &ScriptSnapshot{Title: "x"}},
	}
	for _, p := range cases {
		_, err := NewItem(p, "id-1", "owner", t0)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "script" {
			t.Fatalf("expected script validation error, got %v", err)
		}
	}
	it, _ := NewItem(ItemPatch{Title: Ptr("A")}, "id-1", "owner", t0)
	if err := it.Apply(ItemPatch{Script: &ScriptSnapshot{Title: "x"}}, t0); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if it.Script != nil {
		t.Fatalf("rejected patch mutated item: %+v", it.Script)
	}
}

func TestApplyRejectsUnknownStatus(t *testing.T) {
	it, _ := NewItem(ItemPatch{Title: Ptr("A")}, "id-1", "owner", t0)
	bad := Status("not_a_real_status")
	if err := it.Apply(ItemPatch{Status: &bad}, t0); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if it.Status != StatusIdea {
		t.Fatalf("status changed on rejected patch")
	}
}

func TestApplyNeverMovesUpdatedAtBeforeCreatedAt(t *testing.T) {
	it, _ := NewItem(ItemPatch{Title: Ptr("A")}, "id-1", "owner", t0)
	if err := it.Apply(ItemPatch{Title: Ptr("B")}, t0.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if it.UpdatedAt.Before(it.CreatedAt) {
		t.Fatalf("updated_at before created_at")
	}
}

func TestWrapStorePreservesTaxonomy(t *testing.T) {
	if !errors.Is(WrapStore("update", ErrNotFound), ErrNotFound) {
		t.Fatalf("not found lost")
	}
	var serr *StoreError
	if !errors.As(WrapStore("list", errors.New("boom")), &serr) || serr.Op != "list" {
		t.Fatalf("expected store error")
	}
	if WrapStore("x", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
