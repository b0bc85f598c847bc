package app

import (
	"context"
	"testing"

	"contentplanner/internal/config"
	"contentplanner/internal/domain"
	"contentplanner/internal/notify"
	"contentplanner/internal/planner"
	"contentplanner/internal/suggest"
)

func TestNewSuggester(t *testing.T) {
	s, err := NewSuggester(config.Suggestions{Provider: "static"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*suggest.Static); !ok {
		t.Fatalf("expected static suggester, got %T", s)
	}
	if _, err := NewSuggester(config.Suggestions{Provider: "openai"}); err == nil {
		t.Fatalf("openai without key should fail")
	}
	s, err = NewSuggester(config.Suggestions{Provider: "OpenAI", APIKey: "sk-test", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*suggest.OpenAI); !ok {
		t.Fatalf("expected openai suggester, got %T", s)
	}
	if _, err := NewSuggester(config.Suggestions{Provider: "oracle"}); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}

func TestOpenRuntimeAndPlan(t *testing.T) {
	ctx := context.Background()
	rt, err := OpenWithConfig(ctx, t.TempDir(), config.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	rec := &notify.Recorder{}
	p := rt.Planner("tester", planner.WithNotifier(rec))
	if !p.Load(ctx) {
		t.Fatalf("load failed: %+v", rec.All())
	}
	added := p.GenerateSuggestions(ctx, 2, nil, nil)
	if len(added) != 2 {
		t.Fatalf("expected 2 suggestions, got %d (%+v)", len(added), rec.All())
	}
	items, err := rt.Engine.ListItems(ctx, domain.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].CreatedByID != "tester" {
		t.Fatalf("suggestions not persisted: %+v", items)
	}
}
