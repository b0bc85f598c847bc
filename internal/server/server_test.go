package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"contentplanner/internal/db"
	"contentplanner/internal/domain"
	"contentplanner/internal/engine"
	"contentplanner/internal/migrate"
	"contentplanner/internal/notify"
	"contentplanner/internal/suggest"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, mutate ...func(*Config)) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	cfg := Config{
		Engine:         e,
		BasePath:       "/v0",
		Auth:           AuthConfig{AllowLegacyActorHeader: true},
		Suggester:      suggest.NewStatic(),
		MaxSuggestions: 10,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	handler, err := New(cfg)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

var asAlice = map[string]string{"X-Actor-Id": "alice"}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %T: %v (%s)", out, err, string(data))
	}
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func TestHealthIsPublicAndItemsRequireAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/items", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("unexpected code %q", code)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/items", nil, map[string]string{"Authorization": "Basic abc"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer auth, got %d", res.StatusCode)
	}
}

func TestItemLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0"

	res, data := doJSON(t, client, http.MethodPost, base+"/equipments", map[string]any{"name": "Ring light"}, asAlice)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create equipment status %d: %s", res.StatusCode, string(data))
	}
	eq := decode[domain.Equipment](t, data)

	res, data = doJSON(t, client, http.MethodPost, base+"/items", map[string]any{
		"title":          "Mitos do botox",
		"tags":           []string{"botox", " botox ", "pele"},
		"equipment_id":   eq.ID,
		"scheduled_date": "2024-05-10",
	}, asAlice)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create item status %d: %s", res.StatusCode, string(data))
	}
	created := decode[domain.Item](t, data)
	if created.Status != domain.StatusIdea || created.Format != domain.FormatCarousel || created.CreatedByID != "alice" {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if len(created.Tags) != 2 {
		t.Fatalf("tags not normalized: %v", created.Tags)
	}
	if created.EquipmentName == nil || *created.EquipmentName != "Ring light" {
		t.Fatalf("equipment name not resolved: %+v", created.EquipmentName)
	}

	res, data = doJSON(t, client, http.MethodPatch, base+"/items/"+created.ID, `{"equipment_id": null, "description": "roteiro curto"}`, asAlice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	patched := decode[domain.Item](t, data)
	if patched.EquipmentID != nil || patched.EquipmentName != nil {
		t.Fatalf("equipment not cleared: %+v", patched)
	}
	if patched.Description != "roteiro curto" || patched.Title != created.Title {
		t.Fatalf("partial update lost fields: %+v", patched)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/items/"+created.ID+"/move", map[string]any{"status": "approved"}, asAlice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move status %d: %s", res.StatusCode, string(data))
	}
	if moved := decode[domain.Item](t, data); moved.Status != domain.StatusApproved {
		t.Fatalf("move not applied: %s", moved.Status)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/board", nil, asAlice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("board status %d: %s", res.StatusCode, string(data))
	}
	b := decode[BoardResponse](t, data)
	if len(b.Columns) != 5 || b.Total != 1 || b.HasActiveFilters {
		t.Fatalf("unexpected board %+v", b)
	}
	if b.Columns[2].Status != string(domain.StatusApproved) || b.Columns[2].Count != 1 {
		t.Fatalf("item not in approved column: %+v", b.Columns[2])
	}

	res, data = doJSON(t, client, http.MethodDelete, base+"/items/"+created.ID, nil, asAlice)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/items/"+created.ID, nil, asAlice)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "not_found" {
		t.Fatalf("expected not_found after delete, got %d: %s", res.StatusCode, string(data))
	}
}

func TestItemValidationErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	base := srv.URL + "/v0"

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing title", http.MethodPost, "/items", map[string]any{"description": "x"}, http.StatusBadRequest},
		{"unknown format", http.MethodPost, "/items", map[string]any{"title": "a", "format": "hologram"}, http.StatusBadRequest},
		{"unknown objective", http.MethodPost, "/items", map[string]any{"title": "a", "objective": "nope"}, http.StatusBadRequest},
		{"unknown equipment", http.MethodPost, "/items", map[string]any{"title": "a", "equipment_id": "missing"}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/items", map[string]any{"title": "a", "scheduled_date": "10/05/2024"}, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/items", nil, http.StatusBadRequest},
		{"move unknown item", http.MethodPost, "/items/nope/move", map[string]any{"status": "published"}, http.StatusNotFound},
		{"move to unknown status", http.MethodPost, "/items/nope/move", map[string]any{"status": "archived"}, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/items?status=idea,archived", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, data := doJSON(t, srv.Client(), tc.method, base+tc.path, tc.body, asAlice)
			if res.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, res.StatusCode, string(data))
			}
			if code := errorCode(t, data); code == "" {
				t.Fatalf("missing error code: %s", string(data))
			}
		})
	}
}

func TestListFiltersAndBoardProjection(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	base := srv.URL + "/v0"
	for _, body := range []map[string]any{
		{"title": "A", "format": "reels", "scheduled_date": "2024-05-01"},
		{"title": "B", "format": "story", "status": "scheduled", "scheduled_date": "2024-05-15"},
		{"title": "C", "format": "reels", "status": "published"},
	} {
		if res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/items", body, asAlice); res.StatusCode != http.StatusCreated {
			t.Fatalf("seed %v: %d %s", body["title"], res.StatusCode, string(data))
		}
	}

	_, data := doJSON(t, srv.Client(), http.MethodGet, base+"/items?format=reels", nil, asAlice)
	list := decode[paginatedItems](t, data)
	if len(list.Items) != 2 || list.Items[0].Title != "A" || list.Items[1].Title != "C" {
		t.Fatalf("unexpected list %+v", list.Items)
	}

	_, data = doJSON(t, srv.Client(), http.MethodGet, base+"/items?from=2024-05-10&to=2024-05-31", nil, asAlice)
	list = decode[paginatedItems](t, data)
	if len(list.Items) != 1 || list.Items[0].Title != "B" {
		t.Fatalf("date range mismatch %+v", list.Items)
	}

	_, data = doJSON(t, srv.Client(), http.MethodGet, base+"/board?status=idea,published", nil, asAlice)
	b := decode[BoardResponse](t, data)
	if !b.HasActiveFilters || b.Total != 2 || len(b.Columns) != 5 {
		t.Fatalf("unexpected filtered board %+v", b)
	}
	if b.Columns[3].Count != 0 {
		t.Fatalf("scheduled column should be empty under the filter")
	}
	if b.Columns[3].Unfiltered != 1 || b.Columns[0].Unfiltered != 1 || b.Columns[4].Unfiltered != 1 {
		t.Fatalf("unfiltered counts wrong %+v", b.Columns)
	}
}

func TestSuggestionsCreateIdeaItems(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	base := srv.URL + "/v0"

	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/suggestions", map[string]any{
		"count":     3,
		"objective": string(domain.ObjectiveConvert),
	}, asAlice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("suggestions status %d: %s", res.StatusCode, string(data))
	}
	out := decode[SuggestionsResponse](t, data)
	if len(out.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out.Items))
	}
	for _, it := range out.Items {
		if it.Status != domain.StatusIdea || !it.AIGenerated || it.Objective != domain.ObjectiveConvert {
			t.Fatalf("suggested item has wrong shape %+v", it)
		}
	}
	var success int
	for _, n := range out.Notifications {
		if n.Kind == notify.Success {
			success++
		}
	}
	if success != 1 {
		t.Fatalf("expected one summary notification, got %+v", out.Notifications)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, base+"/suggestions", map[string]any{"count": 50}, asAlice)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected cap to reject count, got %d", res.StatusCode)
	}
}

func TestEventsPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	base := srv.URL + "/v0"
	for _, title := range []string{"one", "two", "three"} {
		doJSON(t, srv.Client(), http.MethodPost, base+"/items", map[string]any{"title": title}, asAlice)
	}

	_, data := doJSON(t, srv.Client(), http.MethodGet, base+"/events?limit=2", nil, asAlice)
	page := decode[paginatedEvents](t, data)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Items[0].ID <= page.Items[1].ID {
		t.Fatalf("events should be newest first")
	}
	_, data = doJSON(t, srv.Client(), http.MethodGet, base+"/events?limit=2&cursor="+page.NextCursor, nil, asAlice)
	next := decode[paginatedEvents](t, data)
	if len(next.Items) != 1 || next.NextCursor != "" {
		t.Fatalf("unexpected second page %+v", next)
	}
	if next.Items[0].Type != "item.created" || next.Items[0].Payload == nil {
		t.Fatalf("unexpected event %+v", next.Items[0])
	}

	res, _ := doJSON(t, srv.Client(), http.MethodGet, base+"/events?cursor=abc", nil, asAlice)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad cursor to fail, got %d", res.StatusCode)
	}
}

func TestDiagnosticSessionsAreOwnerScoped(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	base := srv.URL + "/v0"

	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/diagnostic-sessions", nil, asAlice)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("start status %d: %s", res.StatusCode, string(data))
	}
	sess := decode[DiagnosticSessionResponse](t, data)

	res, data = doJSON(t, srv.Client(), http.MethodPut, base+"/diagnostic-sessions/"+sess.ID, map[string]any{
		"step":    1,
		"answers": map[string]string{"clinic": "Bella"},
	}, asAlice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d: %s", res.StatusCode, string(data))
	}
	if got := decode[DiagnosticSessionResponse](t, data); got.Step != 1 || got.Answers["clinic"] != "Bella" {
		t.Fatalf("answers not saved %+v", got)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/diagnostic-sessions/"+sess.ID, nil, map[string]string{"X-Actor-Id": "bob"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("other actors should not see the session, got %d", res.StatusCode)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodDelete, base+"/diagnostic-sessions/"+sess.ID, nil, asAlice)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("discard status %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/diagnostic-sessions/"+sess.ID, nil, asAlice)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after discard, got %d", res.StatusCode)
	}
}

func TestDevLoginIssuesUsableToken(t *testing.T) {
	srv, cleanup := newTestServer(t, func(c *Config) {
		c.Auth = AuthConfig{JWTSecret: "test-secret", DevLogin: true}
	})
	defer cleanup()
	base := srv.URL + "/v0"

	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/auth/dev/login", map[string]any{"actor_id": "carol"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	token := decode[DevLoginResponse](t, data).Token
	if strings.Count(token, ".") != 2 {
		t.Fatalf("not a jwt: %q", token)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, base+"/me", nil, map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	me := decode[WhoAmIResponse](t, data)
	if me.ActorID != "carol" || me.Source != "jwt" {
		t.Fatalf("unexpected principal %+v", me)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/me", nil, map[string]string{"X-Actor-Id": "mallory"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("legacy header must be refused when disabled, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/me", nil, map[string]string{"Authorization": "Bearer " + token + "x"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tampered token accepted, got %d", res.StatusCode)
	}
}

func TestOpenAPIDocumentsBearerAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	if !bytes.Contains(data, []byte("bearerAuth")) || !bytes.Contains(data, []byte("/v0/items")) {
		t.Fatalf("openapi missing expected entries")
	}
}
