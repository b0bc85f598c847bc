// Package board projects items into the five pipeline columns.
package board

import (
	"contentplanner/internal/domain"
	"contentplanner/internal/filter"
)

type columnMeta struct {
	title string
	icon  string
}

var meta = map[domain.Status]columnMeta{
	domain.StatusIdea:            {"Ideias", "💡"},
	domain.StatusScriptGenerated: {"Roteiro Gerado", "📝"},
	domain.StatusApproved:        {"Aprovado", "✅"},
	domain.StatusScheduled:       {"Agendado", "📅"},
	domain.StatusPublished:       {"Publicado", "🚀"},
}

// Title returns the column title for a status.
func Title(s domain.Status) string { return meta[s].title }

// Icon returns the column icon for a status.
func Icon(s domain.Status) string { return meta[s].icon }

// Empty returns the five columns with no items.
func Empty() []domain.Column {
	statuses := domain.Statuses()
	cols := make([]domain.Column, len(statuses))
	for i, s := range statuses {
		cols[i] = domain.Column{Status: s, Title: Title(s), Icon: Icon(s), Items: []domain.Item{}}
	}
	return cols
}

// Project filters items and groups the survivors by status, keeping input
// order within each column. All five columns are always returned.
func Project(items []domain.Item, f domain.Filter) []domain.Column {
	cols := Empty()
	index := make(map[domain.Status]int, len(cols))
	for i, c := range cols {
		index[c.Status] = i
	}
	for _, it := range items {
		if !filter.Matches(it, f) {
			continue
		}
		i, ok := index[it.Status]
		if !ok {
			continue
		}
		cols[i].Items = append(cols[i].Items, it.Clone())
	}
	return cols
}

// Count returns the number of items across columns.
func Count(cols []domain.Column) int {
	n := 0
	for _, c := range cols {
		n += len(c.Items)
	}
	return n
}
