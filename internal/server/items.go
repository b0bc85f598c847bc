package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"contentplanner/internal/board"
	"contentplanner/internal/domain"
	"contentplanner/internal/engine"
	"contentplanner/internal/filter"
	"contentplanner/internal/notify"
	"contentplanner/internal/planner"
	"contentplanner/internal/repo"
)

// ItemFilterQuery is shared by GET /items and GET /board.
type ItemFilterQuery struct {
	Status        string `query:"status" doc:"Comma separated statuses"`
	Objective     string `query:"objective"`
	Distribution  string `query:"distribution"`
	Format        string `query:"format"`
	EquipmentID   string `query:"equipment_id"`
	ResponsibleID string `query:"responsible_id"`
	From          string `query:"from" doc:"YYYY-MM-DD, inclusive"`
	To            string `query:"to" doc:"YYYY-MM-DD, inclusive"`
}

func (q ItemFilterQuery) toFilter() (domain.Filter, error) {
	var f domain.Filter
	if q.Status != "" {
		for _, raw := range strings.Split(q.Status, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			s, err := domain.ParseStatus(raw)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if q.Objective != "" {
		o, err := domain.ParseObjective(q.Objective)
		if err != nil {
			return f, err
		}
		f.Objective = &o
	}
	if q.Distribution != "" {
		d, err := domain.ParseDistribution(q.Distribution)
		if err != nil {
			return f, err
		}
		f.Distribution = &d
	}
	if q.Format != "" {
		fm, err := domain.ParseFormat(q.Format)
		if err != nil {
			return f, err
		}
		f.Format = &fm
	}
	if q.EquipmentID != "" {
		f.EquipmentID = domain.Ptr(q.EquipmentID)
	}
	if q.ResponsibleID != "" {
		f.ResponsibleID = domain.Ptr(q.ResponsibleID)
	}
	var err error
	if f.DateFrom, err = queryDate("from", q.From); err != nil {
		return f, err
	}
	if f.DateTo, err = queryDate("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

func queryDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, domain.Invalid(field, "expected YYYY-MM-DD")
	}
	return &t, nil
}

// nullableFields may be cleared with an explicit JSON null.
var nullableFields = []string{"script_id", "equipment_id", "responsible_id", "scheduled_date", "calendar_event_id"}

func applyExplicitNulls(ctx context.Context, req *ItemRequest) {
	raw := rawBodyMap(ctx)
	empty := ""
	for _, field := range nullableFields {
		v, ok := raw[field]
		if !ok || !isNullRaw(v) {
			continue
		}
		switch field {
		case "script_id":
			req.ScriptID = &empty
		case "equipment_id":
			req.EquipmentID = &empty
		case "responsible_id":
			req.ResponsibleID = &empty
		case "scheduled_date":
			req.ScheduledDate = &empty
		case "calendar_event_id":
			req.CalendarEventID = &empty
		}
	}
}

func registerItems(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-item",
		Method:        http.MethodPost,
		Path:          "/items",
		Summary:       "Create item",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		patch, err := toPatch(input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		it, err := e.CreateItem(ctx, patch, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/items",
		Summary:     "List items in insertion order",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ItemFilterQuery
	}) (*struct {
		Body paginatedItems `json:"body"`
	}, error) {
		f, err := input.toFilter()
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListItems(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedItems `json:"body"`
		}{Body: paginatedItems{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/items/{id}",
		Summary:     "Get item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		it, err := e.GetItem(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-item",
		Method:      http.MethodPatch,
		Path:        "/items/{id}",
		Summary:     "Update item",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body ItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		req := input.Body
		applyExplicitNulls(ctx, &req)
		patch, err := toPatch(req)
		if err != nil {
			return nil, handleError(err)
		}
		it, err := e.UpdateItem(ctx, input.ID, patch, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-item",
		Method:      http.MethodPost,
		Path:        "/items/{id}/move",
		Summary:     "Move item to another status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body MoveItemRequest `json:"body"`
	}) (*struct {
		Body ItemResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		status, err := domain.ParseStatus(input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		it, err := e.MoveItem(ctx, input.ID, status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ItemResponse `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-item",
		Method:      http.MethodDelete,
		Path:        "/items/{id}",
		Summary:     "Delete item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteItem(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerBoard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Items grouped into the five status columns",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ItemFilterQuery
	}) (*struct {
		Body BoardResponse `json:"body"`
	}, error) {
		f, err := input.toFilter()
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListItems(ctx, domain.Filter{})
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := e.CountByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BoardResponse `json:"body"`
		}{Body: boardResponse(board.Project(items, f), filter.HasActiveFilters(f), counts)}, nil
	})
}

func registerSuggestions(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-suggestions",
		Method:      http.MethodPost,
		Path:        "/suggestions",
		Summary:     "Generate idea items",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		Body SuggestionsRequest `json:"body"`
	}) (*struct {
		Body SuggestionsResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if cfg.MaxSuggestions > 0 && input.Body.Count > cfg.MaxSuggestions {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "count exceeds the configured maximum", map[string]any{"max": cfg.MaxSuggestions})
		}
		var objective *domain.Objective
		if input.Body.Objective != nil {
			o, err := domain.ParseObjective(*input.Body.Objective)
			if err != nil {
				return nil, handleError(err)
			}
			objective = &o
		}
		var format *domain.Format
		if input.Body.Format != nil {
			f, err := domain.ParseFormat(*input.Body.Format)
			if err != nil {
				return nil, handleError(err)
			}
			format = &f
		}
		rec := &notify.Recorder{}
		p := planner.New(
			engine.ItemStore{Engine: cfg.Engine, ActorID: actorID},
			planner.WithSuggester(cfg.Suggester),
			planner.WithNotifier(notify.Multi{rec, notify.Log{Logger: cfg.logger()}}),
			planner.WithLogger(cfg.logger()),
		)
		defer p.Close()
		items := p.GenerateSuggestions(ctx, input.Body.Count, objective, format)
		return &struct {
			Body SuggestionsResponse `json:"body"`
		}{Body: SuggestionsResponse{
			Items:         nonNilSlice(items),
			Notifications: nonNilSlice(rec.All()),
		}}, nil
	})
}

func repoEventFilters(evtType, kind, entityID string, before int64, limit int) repo.EventFilters {
	return repo.EventFilters{
		Type:       evtType,
		EntityKind: kind,
		EntityID:   entityID,
		Before:     before,
		Limit:      limit,
	}
}

func diagnosticStore(e engine.Engine) repo.DiagnosticStore {
	return repo.DiagnosticStore{Repo: e.Repo}
}
