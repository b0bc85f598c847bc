package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"contentplanner/internal/diagnostic"
	"contentplanner/internal/domain"
	"contentplanner/internal/engine"
)

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-equipment",
		Method:        http.MethodPost,
		Path:          "/equipments",
		Summary:       "Register equipment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateEquipmentRequest `json:"body"`
	}) (*struct {
		Body domain.Equipment `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		eq, err := e.CreateEquipment(ctx, strings.TrimSpace(input.Body.Name), strings.TrimSpace(input.Body.Category), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Equipment `json:"body"`
		}{Body: eq}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-equipments",
		Method:      http.MethodGet,
		Path:        "/equipments",
		Summary:     "List equipment",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Equipment `json:"body"`
	}, error) {
		items, err := e.ListEquipments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Equipment `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-responsible",
		Method:        http.MethodPost,
		Path:          "/responsibles",
		Summary:       "Register responsible person",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateResponsibleRequest `json:"body"`
	}) (*struct {
		Body domain.Responsible `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		r, err := e.CreateResponsible(ctx, strings.TrimSpace(input.Body.Name), strings.TrimSpace(input.Body.Role), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Responsible `json:"body"`
		}{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-responsibles",
		Method:      http.MethodGet,
		Path:        "/responsibles",
		Summary:     "List responsible people",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Responsible `json:"body"`
	}, error) {
		items, err := e.ListResponsibles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Responsible `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})
}

// ownedSession loads a session and hides sessions of other actors.
func ownedSession(ctx context.Context, svc *diagnostic.Service, id string) (diagnostic.Session, error) {
	actorID, authErr := actorIDFromContext(ctx)
	if authErr != nil {
		return diagnostic.Session{}, authErr
	}
	s, err := svc.Get(ctx, id)
	if err != nil {
		return diagnostic.Session{}, err
	}
	if s.OwnerID != actorID {
		return diagnostic.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func registerDiagnostics(api huma.API, svc *diagnostic.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-diagnostic-session",
		Method:        http.MethodPost,
		Path:          "/diagnostic-sessions",
		Summary:       "Start a diagnostic session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body DiagnosticSessionResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := svc.Start(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DiagnosticSessionResponse `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-diagnostic-session",
		Method:      http.MethodGet,
		Path:        "/diagnostic-sessions/{id}",
		Summary:     "Get a diagnostic session",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DiagnosticSessionResponse `json:"body"`
	}, error) {
		s, err := ownedSession(ctx, svc, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DiagnosticSessionResponse `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-diagnostic-session",
		Method:      http.MethodPut,
		Path:        "/diagnostic-sessions/{id}",
		Summary:     "Save answers of a diagnostic step",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body DiagnosticUpdateRequest `json:"body"`
	}) (*struct {
		Body DiagnosticSessionResponse `json:"body"`
	}, error) {
		if _, err := ownedSession(ctx, svc, input.ID); err != nil {
			return nil, handleError(err)
		}
		s, err := svc.Advance(ctx, input.ID, diagnostic.Update{
			Step:      input.Body.Step,
			Answers:   input.Body.Answers,
			Completed: input.Body.Completed,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DiagnosticSessionResponse `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "discard-diagnostic-session",
		Method:      http.MethodDelete,
		Path:        "/diagnostic-sessions/{id}",
		Summary:     "Discard a diagnostic session",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, err := ownedSession(ctx, svc, input.ID); err != nil {
			return nil, handleError(err)
		}
		if err := svc.Discard(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
