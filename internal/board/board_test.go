package board_test

import (
	"testing"

	"contentplanner/internal/board"
	"contentplanner/internal/domain"
	"contentplanner/internal/filter"
)

func items() []domain.Item {
	return []domain.Item{
		{ID: "1", Status: domain.StatusIdea, Objective: domain.ObjectiveAttract},
		{ID: "2", Status: domain.StatusPublished, Objective: domain.ObjectiveConvert},
		{ID: "3", Status: domain.StatusIdea, Objective: domain.ObjectiveConvert},
		{ID: "4", Status: domain.StatusScheduled, Objective: domain.ObjectiveBrand},
		{ID: "5", Status: domain.StatusIdea, Objective: domain.ObjectiveConvert},
	}
}

func TestProjectAlwaysFiveColumnsInOrder(t *testing.T) {
	filters := []domain.Filter{
		{},
		{Statuses: []domain.Status{domain.StatusApproved}},
		{Objective: domain.Ptr(domain.ObjectiveConnect)},
	}
	want := domain.Statuses()
	for _, input := range [][]domain.Item{nil, items()} {
		for _, f := range filters {
			cols := board.Project(input, f)
			if len(cols) != 5 {
				t.Fatalf("got %d columns", len(cols))
			}
			for i, c := range cols {
				if c.Status != want[i] {
					t.Fatalf("column %d is %s, want %s", i, c.Status, want[i])
				}
				if c.Title == "" || c.Icon == "" {
					t.Fatalf("column %s missing title or icon", c.Status)
				}
				if c.Items == nil {
					t.Fatalf("column %s items nil", c.Status)
				}
			}
		}
	}
}

func TestProjectPartitionsMatchingItems(t *testing.T) {
	in := items()
	filters := []domain.Filter{
		{},
		{Objective: domain.Ptr(domain.ObjectiveConvert)},
		{Statuses: []domain.Status{domain.StatusIdea, domain.StatusScheduled}},
		{Format: domain.Ptr(domain.FormatVideo)},
	}
	for _, f := range filters {
		cols := board.Project(in, f)
		if got, want := board.Count(cols), len(filter.Apply(in, f)); got != want {
			t.Fatalf("column total %d, matching %d", got, want)
		}
		seen := map[string]int{}
		for _, c := range cols {
			for _, it := range c.Items {
				if it.Status != c.Status {
					t.Fatalf("item %s in wrong column %s", it.ID, c.Status)
				}
				seen[it.ID]++
			}
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("item %s appears %d times", id, n)
			}
		}
	}
}

func TestProjectPreservesInputOrder(t *testing.T) {
	cols := board.Project(items(), domain.Filter{})
	idea := cols[0].Items
	if len(idea) != 3 || idea[0].ID != "1" || idea[1].ID != "3" || idea[2].ID != "5" {
		t.Fatalf("unexpected idea column order: %+v", idea)
	}
}
