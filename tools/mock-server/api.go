package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type fakeConfig struct {
	clientID      string
	clientSecret  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	throttleEvery int
	retryAfter    int
}

type listing struct {
	itemID    string
	articleID int64
	status    string
}

type sellerEvent struct {
	Type      string `json:"type"`
	ItemID    string `json:"ItemID"`
	ArticleID int64  `json:"articleId"`
	Timestamp int64  `json:"timestamp"`
}

// fakeAPI is an in-memory Easy-Template server.
type fakeAPI struct {
	cfg fakeConfig
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	seq      int
	calls    int
	access   map[string]time.Time
	refresh  map[string]time.Time
	articles map[int64]map[string]any
	nextID   int64
	listings map[string]*listing
	events   []sellerEvent
}

func newFakeAPI(logger *slog.Logger, cfg fakeConfig) *fakeAPI {
	if cfg.accessTTL <= 0 {
		cfg.accessTTL = time.Hour
	}
	if cfg.refreshTTL <= 0 {
		cfg.refreshTTL = 24 * time.Hour
	}
	return &fakeAPI{
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
		access:   make(map[string]time.Time),
		refresh:  make(map[string]time.Time),
		articles: make(map[int64]map[string]any),
		nextID:   1000,
		listings: make(map[string]*listing),
	}
}

// seed adds a few sample articles.
func (f *fakeAPI) seed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range []map[string]any{
		{"Title": "Brass desk lamp", "SalePrice": 39.9, "Quantity": 3, "images": []any{}},
		{"Title": "Oak bookshelf", "SalePrice": 129.0, "Quantity": 1, "images": []any{}},
		{"Title": "Ceramic vase", "SalePrice": 24.5, "Quantity": 7, "images": []any{}},
	} {
		f.insertLocked(a)
	}
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", f.handleLogin)
	mux.HandleFunc("POST /refreshToken", f.handleRefresh)

	mux.HandleFunc("GET /Items", f.authed(f.handleListItems))
	mux.HandleFunc("GET /Item", f.authed(f.handleGetItem))
	mux.HandleFunc("POST /Item", f.authed(f.handleCreateItem))
	mux.HandleFunc("PUT /Item", f.authed(f.handleUpdateItem))
	mux.HandleFunc("POST /Item/sendToEbay", f.authed(f.handleSendToEbay))
	mux.HandleFunc("GET /eBayItem/{id}", f.authed(f.handleEbayItem))
	mux.HandleFunc("GET /eBaySellerEvents/{since}", f.authed(f.handleSellerEvents))
	mux.HandleFunc("POST /template/sendToEbay/ids", f.authed(f.handleSendTemplate))
	mux.HandleFunc("GET /template", f.authed(f.handleGetTemplate))
	return mux
}

// --- auth ---

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "missing client credentials")
		return
	}
	if (f.cfg.clientID != "" && id != f.cfg.clientID) ||
		(f.cfg.clientSecret != "" && secret != f.cfg.clientSecret) {
		writeMessage(w, http.StatusUnauthorized, "invalid client credentials")
		return
	}
	f.issueTokens(w)
	f.log.Info("issued token pair", "client_id", id)
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := bearer(r)
	f.mu.Lock()
	exp, known := f.refresh[token]
	if known {
		delete(f.refresh, token)
	}
	f.mu.Unlock()

	if !ok || !known || !f.now().Before(exp) {
		writeMessage(w, http.StatusUnauthorized, "refresh token invalid or expired")
		return
	}
	f.issueTokens(w)
	f.log.Info("refreshed token pair")
}

func (f *fakeAPI) issueTokens(w http.ResponseWriter) {
	now := f.now()

	f.mu.Lock()
	f.seq++
	access := fmt.Sprintf("fake-access-%d", f.seq)
	refresh := fmt.Sprintf("fake-refresh-%d", f.seq)
	accessExp := now.Add(f.cfg.accessTTL)
	refreshExp := now.Add(f.cfg.refreshTTL)
	f.access[access] = accessExp
	f.refresh[refresh] = refreshExp
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":         access,
		"refreshToken":        refresh,
		"tokenExpires":        accessExp.Unix(),
		"refreshTokenExpires": refreshExp.Unix(),
	})
}

// authed checks the bearer token and applies throttling.
func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)

		f.mu.Lock()
		exp, known := f.access[token]
		f.calls++
		throttled := f.cfg.throttleEvery > 0 && f.calls%f.cfg.throttleEvery == 0
		f.mu.Unlock()

		if !ok || !known {
			writeMessage(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		if !f.now().Before(exp) {
			writeMessage(w, http.StatusUnauthorized, "access token expired")
			return
		}
		if throttled {
			w.Header().Set("Retry-After", strconv.Itoa(f.cfg.retryAfter))
			writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			f.log.Info("throttled call", "path", r.URL.Path)
			return
		}
		next(w, r)
	}
}

// --- articles ---

func (f *fakeAPI) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := atoiDefault(q.Get("offset"), 0)
	limit := atoiDefault(q.Get("limit"), 20)
	ascending := q.Get("orderDirection") == "1"

	var filter map[int64]bool
	if ids := q.Get("articleIds"); ids != "" {
		filter = make(map[int64]bool)
		for _, s := range strings.Split(ids, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				filter[id] = true
			}
		}
	}

	f.mu.Lock()
	ids := make([]int64, 0, len(f.articles))
	for id := range f.articles {
		if filter == nil || filter[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if ascending {
			return ids[i] < ids[j]
		}
		return ids[i] > ids[j]
	})
	total := len(ids)
	list := make([]map[string]any, 0, limit)
	for i := offset; i < len(ids) && len(list) < limit; i++ {
		list = append(list, maps.Clone(f.articles[ids[i]]))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"list": list, "total": total})
}

func (f *fakeAPI) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("articleId"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "articleId is required")
		return
	}

	f.mu.Lock()
	a, ok := f.articles[id]
	a = maps.Clone(a)
	f.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (f *fakeAPI) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Article map[string]any `json:"article"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Article) == 0 {
		writeMessage(w, http.StatusBadRequest, "article is required")
		return
	}

	f.mu.Lock()
	id := f.insertLocked(body.Article)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"articleId": id, "template_id": 1})
	f.log.Info("created article", "article_id", id)
}

func (f *fakeAPI) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArticleID int64          `json:"articleId"`
		Article   map[string]any `json:"article"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ArticleID == 0 {
		writeMessage(w, http.StatusBadRequest, "articleId and article are required")
		return
	}

	f.mu.Lock()
	a, ok := f.articles[body.ArticleID]
	if ok {
		for k, v := range body.Article {
			a[k] = v
		}
	}
	f.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "articleId": body.ArticleID})
}

func (f *fakeAPI) insertLocked(a map[string]any) int64 {
	f.nextID++
	id := f.nextID
	a["articleId"] = id
	f.articles[id] = a
	return id
}

// --- eBay ---

func (f *fakeAPI) handleSendToEbay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArticleID int64 `json:"articleId"`
		TestMode  bool  `json:"testMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.articles[body.ArticleID]; !ok {
		writeMessage(w, http.StatusNotFound, "article not found")
		return
	}
	if body.TestMode {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ebayStatus": "Verified"})
		return
	}

	itemID := fmt.Sprintf("110555%06d", body.ArticleID)
	eventType := "ItemRevised"
	if _, ok := f.listings[itemID]; !ok {
		eventType = "ItemListed"
		f.listings[itemID] = &listing{itemID: itemID, articleID: body.ArticleID, status: "Active"}
	}
	f.events = append(f.events, sellerEvent{
		Type:      eventType,
		ItemID:    itemID,
		ArticleID: body.ArticleID,
		Timestamp: f.now().Unix(),
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ItemID": itemID, "ebayStatus": "Active"})
}

func (f *fakeAPI) handleEbayItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	l, ok := f.listings[r.PathValue("id")]
	var title any
	if ok {
		title = f.articles[l.articleID]["Title"]
	}
	f.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "eBay item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ItemID":        l.itemID,
		"articleId":     l.articleID,
		"Title":         title,
		"ListingStatus": l.status,
	})
}

func (f *fakeAPI) handleSellerEvents(w http.ResponseWriter, r *http.Request) {
	since, err := strconv.ParseInt(r.PathValue("since"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "since must be a Unix timestamp")
		return
	}

	f.mu.Lock()
	events := make([]sellerEvent, 0, len(f.events))
	for _, e := range f.events {
		if e.Timestamp > since {
			events = append(events, e)
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, events)
}

func (f *fakeAPI) handleSendTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemIDs []int64 `json:"ItemIDs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.ItemIDs) == 0 {
		writeMessage(w, http.StatusBadRequest, "ItemIDs is required")
		return
	}

	f.mu.Lock()
	sent := 0
	for _, id := range body.ItemIDs {
		if _, ok := f.listings[strconv.FormatInt(id, 10)]; ok {
			sent++
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"sendItems": sent})
}

func (f *fakeAPI) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID := q.Get("ebayItemId")

	f.mu.Lock()
	l, ok := f.listings[itemID]
	var title any
	if ok {
		title = f.articles[l.articleID]["Title"]
	}
	f.mu.Unlock()

	if !ok {
		writeMessage(w, http.StatusNotFound, "eBay item not found")
		return
	}

	templateID := atoiDefault(q.Get("templateId"), 1)
	writeJSON(w, http.StatusOK, map[string]any{
		"ebayItemId": itemID,
		"templateId": templateID,
		"html":       fmt.Sprintf("<div class=\"et-template-%d\"><h1>%v</h1></div>", templateID, title),
	})
}

// --- helpers ---

func bearer(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
