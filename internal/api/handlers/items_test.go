package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/internal/api/handlers"
	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

func newItemsAPI(t *testing.T, m *mockClient) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterItemRoutes(api, handlers.NewItemsHandler(m))
	return api
}

func TestItemsHandler_List(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		setupMock  func(*mockClient)
		wantStatus int
		wantBody   string
	}{
		{
			name:  "defaults",
			query: "",
			setupMock: func(m *mockClient) {
				m.On("ListItems", mock.Anything, easytemplate.ListItemsRequest{}).
					Return(&easytemplate.ItemList{
						Items: []easytemplate.Article{{"articleId": 1, "Title": "Lamp"}},
						Total: 1,
					}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"total":1`,
		},
		{
			name:  "paging and ids",
			query: "?offset=20&limit=10&article_ids=5,6",
			setupMock: func(m *mockClient) {
				m.On("ListItems", mock.Anything, mock.MatchedBy(func(r easytemplate.ListItemsRequest) bool {
					return r.Offset == 20 && r.Limit == 10 && len(r.ArticleIDs) == 2 && r.ArticleIDs[1] == 6
				})).Return(&easytemplate.ItemList{Items: []easytemplate.Article{}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"items":[]`,
		},
		{
			name:       "bad ids",
			query:      "?article_ids=5,x",
			setupMock:  func(*mockClient) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid article id",
		},
		{
			name:       "limit above page size",
			query:      "?limit=500",
			setupMock:  func(*mockClient) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:  "session expired",
			query: "",
			setupMock: func(m *mockClient) {
				m.On("ListItems", mock.Anything, mock.Anything).Return(nil, authErr()).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "session expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &mockClient{}
			tt.setupMock(m)
			api := newItemsAPI(t, m)

			resp := api.Get("/api/v1/items" + tt.query)
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestItemsHandler_Get(t *testing.T) {
	t.Parallel()

	m := &mockClient{}
	m.On("GetItem", mock.Anything, int64(42)).
		Return(easytemplate.Article{"articleId": 42, "Title": "Desk lamp"}, nil).Once()
	m.On("GetItem", mock.Anything, int64(7)).Return(nil, notFoundErr()).Once()
	api := newItemsAPI(t, m)

	resp := api.Get("/api/v1/items/42")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"Title":"Desk lamp"`)

	resp = api.Get("/api/v1/items/7")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "article not found")
	m.AssertExpectations(t)
}

func TestItemsHandler_Create(t *testing.T) {
	t.Parallel()

	tid := int64(3)
	m := &mockClient{}
	m.On("CreateItem", mock.Anything, mock.MatchedBy(func(a easytemplate.Article) bool {
		return a.Title() == "Lamp"
	})).Return(&easytemplate.CreateItemResult{ArticleID: 99, TemplateID: &tid}, nil).Once()
	api := newItemsAPI(t, m)

	resp := api.Post("/api/v1/items", map[string]any{"Title": "Lamp", "SalePrice": "19.99"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var body struct {
		ArticleID  int64 `json:"articleId"`
		TemplateID int64 `json:"template_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(99), body.ArticleID)
	assert.Equal(t, int64(3), body.TemplateID)
	m.AssertExpectations(t)
}

func TestItemsHandler_CreateInvalid(t *testing.T) {
	t.Parallel()

	m := &mockClient{}
	m.On("CreateItem", mock.Anything, mock.Anything).Return(nil, &easytemplate.Error{
		Kind:   easytemplate.KindRemote,
		Op:     "create item",
		Detail: "article must not be empty",
		Err:    easytemplate.ErrInvalidRequest,
	}).Once()
	api := newItemsAPI(t, m)

	resp := api.Post("/api/v1/items", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "must not be empty")
}

func TestItemsHandler_Update(t *testing.T) {
	t.Parallel()

	m := &mockClient{}
	m.On("UpdateItem", mock.Anything, int64(42), mock.MatchedBy(func(a easytemplate.Article) bool {
		return len(a.Images()) == 1
	})).Return(json.RawMessage(`{"status":"ok"}`), nil).Once()
	m.On("UpdateItem", mock.Anything, int64(43), mock.Anything).Return(json.RawMessage(nil), nil).Once()
	api := newItemsAPI(t, m)

	resp := api.Put("/api/v1/items/42", map[string]any{"images": []string{"https://img/1.jpg"}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

	resp = api.Put("/api/v1/items/43", map[string]any{"Title": "x"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{}`, resp.Body.String())
	m.AssertExpectations(t)
}
