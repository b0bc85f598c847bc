// Package suggest produces content ideas for the planner.
package suggest

import (
	"context"
	"fmt"
	"sync"

	"contentplanner/internal/domain"
)

var hooks = map[domain.Objective][]string{
	domain.ObjectiveAttract: {
		"3 mitos sobre %s que ninguém te contou",
		"O que acontece na pele durante %s",
		"Antes e depois: %s em 30 segundos",
	},
	domain.ObjectiveConnect: {
		"Bastidores de um dia de %s na clínica",
		"Dúvidas reais de pacientes sobre %s",
		"Por que escolhemos trabalhar com %s",
	},
	domain.ObjectiveConvert: {
		"Condição especial de %s para este mês",
		"Como agendar sua sessão de %s",
		"Quanto tempo dura o resultado de %s",
	},
	domain.ObjectiveReactivate: {
		"Faz tempo que você não faz %s?",
		"Manutenção de %s: quando voltar",
		"Novidades em %s que você ainda não viu",
	},
	domain.ObjectiveBrand: {
		"Nosso protocolo exclusivo de %s",
		"Depoimento: a experiência com %s",
		"Segurança em primeiro lugar: %s",
	},
}

var rotation = []domain.Format{
	domain.FormatReels,
	domain.FormatCarousel,
	domain.FormatStory,
	domain.FormatVideo,
	domain.FormatText,
}

// Static builds suggestions from fixed templates. Output depends only on the
// call arguments and how many suggestions were produced before.
type Static struct {
	Topics []string

	mu   sync.Mutex
	next int
}

var defaultTopics = []string{"harmonização facial", "limpeza de pele", "bioestimuladores", "laser"}

func NewStatic(topics ...string) *Static {
	if len(topics) == 0 {
		topics = defaultTopics
	}
	return &Static{Topics: topics}
}

func (s *Static) Suggest(ctx context.Context, count int, objective *domain.Objective, format *domain.Format) ([]domain.ItemPatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	if objective != nil && len(hooks[*objective]) == 0 {
		return nil, domain.Invalid("objective", "unknown objective "+string(*objective))
	}
	topics := s.Topics
	if len(topics) == 0 {
		topics = defaultTopics
	}
	s.mu.Lock()
	start := s.next
	s.next += count
	s.mu.Unlock()

	objectives := domain.Objectives()
	out := make([]domain.ItemPatch, 0, count)
	for i := 0; i < count; i++ {
		n := start + i
		obj := objectives[n%len(objectives)]
		if objective != nil {
			obj = *objective
		}
		f := rotation[n%len(rotation)]
		if format != nil {
			f = *format
		}
		templates := hooks[obj]
		topic := topics[n%len(topics)]
		title := fmt.Sprintf(templates[n%len(templates)], topic)
		out = append(out, domain.ItemPatch{
			Title:       domain.Ptr(title),
			Description: domain.Ptr(fmt.Sprintf("Ideia gerada para %s com foco em %s.", topic, obj)),
			Tags:        &[]string{topic},
			Objective:   domain.Ptr(obj),
			Format:      domain.Ptr(f),
		})
	}
	return out, nil
}
