package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"

	"contentplanner/internal/domain"
)

func TestItemFlagsPatchOnlyChanged(t *testing.T) {
	var f itemFlags
	fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
	f.bind(fs)
	if err := fs.Parse([]string{"--title", "Launch", "--format", "reels", "--equipment-id", "", "--scheduled", "2026-03-01"}); err != nil {
		t.Fatal(err)
	}
	p, err := f.patch(fs)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title == nil || *p.Title != "Launch" {
		t.Fatalf("title not patched: %+v", p)
	}
	if p.Format == nil || *p.Format != domain.Format("reels") {
		t.Fatalf("format not patched: %+v", p)
	}
	if p.EquipmentID == nil || *p.EquipmentID != "" {
		t.Fatalf("empty equipment flag should clear: %+v", p.EquipmentID)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if p.ScheduledDate == nil || !p.ScheduledDate.Equal(want) {
		t.Fatalf("unexpected scheduled date %v", p.ScheduledDate)
	}
	if p.Description != nil || p.Status != nil || p.Tags != nil || p.ResponsibleID != nil {
		t.Fatalf("unset flags leaked into patch: %+v", p)
	}
}

func TestItemFlagsRejectUnknownEnum(t *testing.T) {
	var f itemFlags
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	f.bind(fs)
	if err := fs.Parse([]string{"--status", "archived"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.patch(fs); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFilterFlags(t *testing.T) {
	var f filterFlags
	fs := pflag.NewFlagSet("board", pflag.ContinueOnError)
	f.bind(fs)
	if err := fs.Parse([]string{"--status", "idea,approved", "--from", "2026-01-01", "--responsible-id", "r1"}); err != nil {
		t.Fatal(err)
	}
	flt, err := f.filter()
	if err != nil {
		t.Fatal(err)
	}
	if len(flt.Statuses) != 2 || flt.Statuses[1] != domain.Status("approved") {
		t.Fatalf("unexpected statuses %v", flt.Statuses)
	}
	if flt.DateFrom == nil || flt.DateTo != nil {
		t.Fatalf("unexpected date range %v %v", flt.DateFrom, flt.DateTo)
	}
	if flt.ResponsibleID == nil || *flt.ResponsibleID != "r1" || flt.EquipmentID != nil {
		t.Fatalf("unexpected ids %+v", flt)
	}

	bad := filterFlags{to: "03/01/2026"}
	if _, err := bad.filter(); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
