package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeps) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg fakeConfig) (*fakeAPI, *easytemplate.Client, *testClock, *sleeps) {
	t.Helper()

	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	api := newFakeAPI(testLogger(), cfg)
	api.now = clock.Now
	api.seed()

	srv := httptest.NewServer(api.routes())
	t.Cleanup(srv.Close)

	sl := &sleeps{}
	c := easytemplate.New(
		easytemplate.WithBaseURL(srv.URL),
		easytemplate.WithNowFunc(clock.Now),
		easytemplate.WithSleepFunc(sl.Sleep),
	)
	return api, c, clock, sl
}

func TestFakeAPI_Login(t *testing.T) {
	t.Parallel()

	_, c, _, _ := newTestServer(t, fakeConfig{clientID: "id", clientSecret: "secret"})
	ctx := context.Background()

	err := c.Login(ctx, "id", "wrong")
	if !easytemplate.IsKind(err, easytemplate.KindAuth) {
		t.Fatalf("login with wrong secret: got %v, want auth error", err)
	}

	if err := c.Login(ctx, "id", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := c.State(); got != easytemplate.StateValid {
		t.Errorf("state=%s, want valid", got)
	}
}

func TestFakeAPI_Articles(t *testing.T) {
	t.Parallel()

	_, c, _, _ := newTestServer(t, fakeConfig{})
	ctx := context.Background()
	if err := c.Login(ctx, "any", "any"); err != nil {
		t.Fatalf("login: %v", err)
	}

	list, err := c.ListItems(ctx, easytemplate.ListItemsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 2 || list.Total != 3 {
		t.Fatalf("got %d items of %d, want 2 of 3", len(list.Items), list.Total)
	}
	if id := list.Items[0].ID(); id != 1003 {
		t.Errorf("first id=%d, want 1003 (newest first)", id)
	}

	created, err := c.CreateItem(ctx, easytemplate.Article{"Title": "Desk lamp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ArticleID != 1004 {
		t.Errorf("articleId=%d, want 1004", created.ArticleID)
	}

	if _, err := c.UpdateItem(ctx, created.ArticleID, easytemplate.Article{"SalePrice": 12.5}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := c.GetItem(ctx, created.ArticleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title() != "Desk lamp" || got.SalePrice() != "12.5" {
		t.Errorf("got title=%q price=%q", got.Title(), got.SalePrice())
	}

	_, err = c.GetItem(ctx, 9999)
	if !errors.Is(err, easytemplate.ErrNotFound) {
		t.Errorf("missing article: got %v, want not found", err)
	}
}

func TestFakeAPI_Ebay(t *testing.T) {
	t.Parallel()

	_, c, clock, _ := newTestServer(t, fakeConfig{})
	ctx := context.Background()
	if err := c.Login(ctx, "any", "any"); err != nil {
		t.Fatalf("login: %v", err)
	}
	start := clock.Now()
	clock.Advance(time.Second)

	res, err := c.SendToEbay(ctx, 1001, easytemplate.SendOptions{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.OK() || res.ItemID != "110555001001" {
		t.Fatalf("send result=%+v", res)
	}

	item, err := c.GetEbayItem(ctx, res.ItemID)
	if err != nil {
		t.Fatalf("ebay item: %v", err)
	}
	var listing map[string]any
	if err := json.Unmarshal(item, &listing); err != nil {
		t.Fatalf("decoding item: %v", err)
	}
	if listing["Title"] != "Brass desk lamp" {
		t.Errorf("title=%v", listing["Title"])
	}

	events, err := c.GetSellerEvents(ctx, start)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var list []sellerEvent
	if err := json.Unmarshal(events, &list); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	if len(list) != 1 || list[0].Type != "ItemListed" {
		t.Errorf("events=%+v, want one ItemListed", list)
	}

	sent, err := c.SendTemplateByItemIDs(ctx, []int64{110555001001, 110555009999})
	if err != nil {
		t.Fatalf("send template: %v", err)
	}
	if sent.SendItems != 1 {
		t.Errorf("sendItems=%d, want 1", sent.SendItems)
	}

	tmpl, err := c.GetTemplate(ctx, easytemplate.TemplateRequest{EbayItemID: res.ItemID, TemplateID: 4})
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	var rendered struct {
		TemplateID int    `json:"templateId"`
		HTML       string `json:"html"`
	}
	if err := json.Unmarshal(tmpl, &rendered); err != nil {
		t.Fatalf("decoding template: %v", err)
	}
	if rendered.TemplateID != 4 || rendered.HTML == "" {
		t.Errorf("template=%+v", rendered)
	}
}

func TestFakeAPI_RefreshAndExpiry(t *testing.T) {
	t.Parallel()

	api, c, clock, _ := newTestServer(t, fakeConfig{accessTTL: time.Hour, refreshTTL: 2 * time.Hour})
	ctx := context.Background()
	if err := c.Login(ctx, "any", "any"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Inside the refresh margin.
	clock.Advance(59*time.Minute + 30*time.Second)
	if _, err := c.ListItems(ctx, easytemplate.ListItemsRequest{}); err != nil {
		t.Fatalf("list after refresh: %v", err)
	}
	api.mu.Lock()
	issued := api.seq
	api.mu.Unlock()
	if issued != 2 {
		t.Errorf("token pairs issued=%d, want 2", issued)
	}

	clock.Advance(3 * time.Hour)
	err := c.EnsureValid(ctx)
	if !easytemplate.IsKind(err, easytemplate.KindAuth) {
		t.Fatalf("after refresh expiry: got %v, want auth error", err)
	}
	if got := c.State(); got != easytemplate.StateExpired {
		t.Errorf("state=%s, want expired", got)
	}
}

func TestFakeAPI_Throttle(t *testing.T) {
	t.Parallel()

	_, c, _, sl := newTestServer(t, fakeConfig{throttleEvery: 2, retryAfter: 3})
	ctx := context.Background()
	if err := c.Login(ctx, "any", "any"); err != nil {
		t.Fatalf("login: %v", err)
	}

	for i := range 2 {
		if _, err := c.GetItem(ctx, 1001); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.delays) != 1 || sl.delays[0] != 3*time.Second {
		t.Errorf("delays=%v, want [3s]", sl.delays)
	}
}

func TestFakeAPI_RejectsUnknownToken(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(testLogger(), fakeConfig{})
	req := httptest.NewRequest(http.MethodGet, "/Items", http.NoBody)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()

	api.routes().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["message"] != "invalid access token" {
		t.Errorf("message=%q", body["message"])
	}
}
