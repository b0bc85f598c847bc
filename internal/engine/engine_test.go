package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"contentplanner/internal/db"
	"contentplanner/internal/diagnostic"
	"contentplanner/internal/domain"
	"contentplanner/internal/engine"
	"contentplanner/internal/filter"
	"contentplanner/internal/migrate"
	"contentplanner/internal/notify"
	"contentplanner/internal/planner"
	"contentplanner/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	n := 0
	eng.NewID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func TestCreateItemDefaultsAndEvent(t *testing.T) {
	env := newTestEnv(t)
	it, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("Hydra facial reel")}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.Status != domain.StatusIdea || it.Format != domain.FormatCarousel || it.Objective != domain.ObjectiveAttract || it.Distribution != domain.DistributionInstagram {
		t.Fatalf("unexpected defaults %+v", it)
	}
	if it.CreatedByID != "tester" || it.CreatedAt.IsZero() || it.UpdatedAt.Before(it.CreatedAt) {
		t.Fatalf("audit fields wrong %+v", it)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{EntityID: it.ID})
	if err != nil || len(evts) != 1 || evts[0].Type != "item.created" {
		t.Fatalf("events: %v %+v", err, evts)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{}, "tester"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePartialPatchAndTimestamps(t *testing.T) {
	env := newTestEnv(t)
	when := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	it, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{
		Title:         domain.Ptr("orig"),
		Description:   domain.Ptr("body"),
		Tags:          &[]string{"b", "a"},
		ScheduledDate: &when,
		ScriptID:      domain.Ptr("script-1"),
		Script:        &domain.ScriptSnapshot{Title: "Roteiro", Content: "..."},
	}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	env.Engine.Now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }
	got, err := env.Engine.UpdateItem(env.Ctx, it.ID, domain.ItemPatch{Title: domain.Ptr("X")}, "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "X" || got.Description != "body" || len(got.Tags) != 2 || got.Tags[0] != "a" {
		t.Fatalf("unexpected item %+v", got)
	}
	if got.ScheduledDate == nil || !got.ScheduledDate.Equal(when) {
		t.Fatalf("scheduled date lost %+v", got.ScheduledDate)
	}
	if got.Script == nil || got.Script.ID != "script-1" || got.Script.Title != "Roteiro" {
		t.Fatalf("script snapshot lost %+v", got.Script)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at not refreshed")
	}

	cleared, err := env.Engine.UpdateItem(env.Ctx, it.ID, domain.ItemPatch{ScriptID: domain.Ptr(""), ScheduledDate: &time.Time{}}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if cleared.ScriptID != nil || cleared.Script != nil || cleared.ScheduledDate != nil {
		t.Fatalf("associations not cleared %+v", cleared)
	}
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpdateItem(env.Ctx, "nope", domain.ItemPatch{Title: domain.Ptr("x")}, "tester"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if err := env.Engine.DeleteItem(env.Ctx, "nope", "tester"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
}

func TestMoveAnyToAny(t *testing.T) {
	env := newTestEnv(t)
	it, _ := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("a")}, "tester")
	for _, to := range []domain.Status{domain.StatusPublished, domain.StatusIdea, domain.StatusScheduled} {
		got, err := env.Engine.MoveItem(env.Ctx, it.ID, to, "tester")
		if err != nil || got.Status != to {
			t.Fatalf("move to %s: %v", to, err)
		}
	}
	if _, err := env.Engine.MoveItem(env.Ctx, it.ID, "not_a_real_status", "tester"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	evts, _ := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{Type: "item.moved"})
	if len(evts) != 3 {
		t.Fatalf("expected 3 move events, got %d", len(evts))
	}
}

func TestReferencesValidatedAgainstCatalog(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("a"), EquipmentID: domain.Ptr("ghost")}, "tester"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	eq, err := env.Engine.CreateEquipment(env.Ctx, "Ultraformer", "HIFU", "tester")
	if err != nil {
		t.Fatal(err)
	}
	who, err := env.Engine.CreateResponsible(env.Ctx, "Ana", "editor", "tester")
	if err != nil {
		t.Fatal(err)
	}
	it, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("a"), EquipmentID: &eq.ID, ResponsibleID: &who.ID}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.EquipmentName == nil || *it.EquipmentName != "Ultraformer" || it.ResponsibleName == nil || *it.ResponsibleName != "Ana" {
		t.Fatalf("names not denormalized %+v", it)
	}
	if _, err := env.Engine.UpdateItem(env.Ctx, it.ID, domain.ItemPatch{ResponsibleID: domain.Ptr("ghost")}, "tester"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	eqs, _ := env.Engine.ListEquipments(env.Ctx)
	people, _ := env.Engine.ListResponsibles(env.Ctx)
	if len(eqs) != 1 || len(people) != 1 {
		t.Fatalf("catalog sizes %d %d", len(eqs), len(people))
	}
}

func TestListMatchesFilterEngine(t *testing.T) {
	env := newTestEnv(t)
	eq, _ := env.Engine.CreateEquipment(env.Ctx, "Laser", "", "tester")
	day := func(d int) *time.Time {
		v := time.Date(2024, 3, d, 18, 0, 0, 0, time.UTC)
		return &v
	}
	patches := []domain.ItemPatch{
		{Title: domain.Ptr("a")},
		{Title: domain.Ptr("b"), Status: domain.Ptr(domain.StatusApproved), ScheduledDate: day(5), EquipmentID: &eq.ID},
		{Title: domain.Ptr("c"), Objective: domain.Ptr(domain.ObjectiveConvert), ScheduledDate: day(15)},
		{Title: domain.Ptr("d"), Format: domain.Ptr(domain.FormatReels), Distribution: domain.Ptr(domain.DistributionYouTube), ScheduledDate: day(25)},
	}
	for _, p := range patches {
		if _, err := env.Engine.CreateItem(env.Ctx, p, "tester"); err != nil {
			t.Fatal(err)
		}
	}
	all, err := env.Engine.ListItems(env.Ctx, domain.Filter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("list all: %v %d", err, len(all))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if all[i].Title != want {
			t.Fatalf("insertion order broken at %d: %s", i, all[i].Title)
		}
	}
	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	filters := []domain.Filter{
		{Statuses: []domain.Status{domain.StatusApproved}},
		{Statuses: []domain.Status{domain.StatusIdea, domain.StatusApproved}},
		{Objective: domain.Ptr(domain.ObjectiveConvert)},
		{Format: domain.Ptr(domain.FormatReels)},
		{Distribution: domain.Ptr(domain.DistributionYouTube)},
		{EquipmentID: &eq.ID},
		{DateFrom: &from, DateTo: &to},
		{DateFrom: &to},
		{DateTo: &from},
	}
	for i, f := range filters {
		got, err := env.Engine.ListItems(env.Ctx, f)
		if err != nil {
			t.Fatalf("filter %d: %v", i, err)
		}
		want := filter.Apply(all, f)
		if len(got) != len(want) {
			t.Fatalf("filter %d: sql returned %d, filter engine %d", i, len(got), len(want))
		}
		for j := range got {
			if got[j].ID != want[j].ID {
				t.Fatalf("filter %d: mismatch at %d", i, j)
			}
		}
	}
}

func TestCountByStatus(t *testing.T) {
	env := newTestEnv(t)
	for _, st := range []domain.Status{domain.StatusIdea, domain.StatusIdea, domain.StatusPublished} {
		if _, err := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("x"), Status: domain.Ptr(st)}, "tester"); err != nil {
			t.Fatal(err)
		}
	}
	counts, err := env.Engine.CountByStatus(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[domain.StatusIdea] != 2 || counts[domain.StatusPublished] != 1 || counts[domain.StatusApproved] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestDeleteRecordsEvent(t *testing.T) {
	env := newTestEnv(t)
	it, _ := env.Engine.CreateItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("a")}, "tester")
	if err := env.Engine.DeleteItem(env.Ctx, it.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.GetItem(env.Ctx, it.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	last, err := env.Engine.Repo.LatestEventID(env.Ctx)
	if err != nil || last == 0 {
		t.Fatalf("latest event id: %v %d", err, last)
	}
	after, _ := env.Engine.Repo.EventsAfter(env.Ctx, 10, last-1)
	if len(after) != 1 || after[0].Type != "item.deleted" {
		t.Fatalf("unexpected events %+v", after)
	}
}

func TestPlannerOverEngine(t *testing.T) {
	env := newTestEnv(t)
	rec := &notify.Recorder{}
	p := planner.New(engine.ItemStore{Engine: env.Engine, ActorID: "tester"}, planner.WithNotifier(rec))
	it := p.AddItem(env.Ctx, domain.ItemPatch{Title: domain.Ptr("board")})
	if it == nil {
		t.Fatalf("add failed: %+v", rec.All())
	}
	if p.MoveItem(env.Ctx, it.ID, domain.StatusScheduled) == nil {
		t.Fatalf("move failed: %+v", rec.All())
	}
	p.RemoveItem(env.Ctx, it.ID)
	p.RemoveItem(env.Ctx, it.ID)
	if rec.Count(notify.Error) != 1 {
		t.Fatalf("expected one not-found notification, got %+v", rec.All())
	}
	fresh := planner.New(engine.ItemStore{Engine: env.Engine, ActorID: "tester"})
	if !fresh.Load(env.Ctx) || len(fresh.Items()) != 0 {
		t.Fatalf("store not in sync")
	}
}

func TestDiagnosticStoreSQL(t *testing.T) {
	env := newTestEnv(t)
	store := repo.DiagnosticStore{Repo: env.Engine.Repo}
	if err := store.Delete(env.Ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	svc := diagnostic.NewService(store)
	svc.Now = env.Engine.Now
	sess, err := svc.Start(env.Ctx, "owner-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	step := 2
	if _, err := svc.Advance(env.Ctx, sess.ID, diagnostic.Update{Step: &step, Answers: map[string]string{"clinic": "Estetica"}}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	got, err := store.Load(env.Ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answers["clinic"] != "Estetica" || got.Step != 2 || got.OwnerID != "owner-1" {
		t.Fatalf("unexpected session %+v", got)
	}
	if err := svc.Discard(env.Ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
}
