package mcpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
	"github.com/GV888/easy-template-mcp/internal/mcpserver"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Login(ctx context.Context, id, secret string) error {
	return m.Called(ctx, id, secret).Error(0)
}

func (m *mockAPI) EnsureValid(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockAPI) State() easytemplate.State { return m.Called().Get(0).(easytemplate.State) }

func (m *mockAPI) Expiries() (access, refresh time.Time) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Get(1).(time.Time)
}

func (m *mockAPI) ListItems(ctx context.Context, req easytemplate.ListItemsRequest) (*easytemplate.ItemList, error) {
	args := m.Called(ctx, req)
	list, _ := args.Get(0).(*easytemplate.ItemList)
	return list, args.Error(1)
}

func (m *mockAPI) GetItem(ctx context.Context, id int64) (easytemplate.Article, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(easytemplate.Article)
	return a, args.Error(1)
}

func (m *mockAPI) CreateItem(ctx context.Context, a easytemplate.Article) (*easytemplate.CreateItemResult, error) {
	args := m.Called(ctx, a)
	res, _ := args.Get(0).(*easytemplate.CreateItemResult)
	return res, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, id int64, a easytemplate.Article) (json.RawMessage, error) {
	args := m.Called(ctx, id, a)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockAPI) SendToEbay(
	ctx context.Context,
	id int64,
	opts easytemplate.SendOptions,
) (*easytemplate.SendResult, error) {
	args := m.Called(ctx, id, opts)
	res, _ := args.Get(0).(*easytemplate.SendResult)
	return res, args.Error(1)
}

func (m *mockAPI) GetEbayItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	args := m.Called(ctx, itemID)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockAPI) GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error) {
	args := m.Called(ctx, since)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockAPI) SendTemplateByItemIDs(ctx context.Context, ids []int64) (*easytemplate.TemplateSendResult, error) {
	args := m.Called(ctx, ids)
	res, _ := args.Get(0).(*easytemplate.TemplateSendResult)
	return res, args.Error(1)
}

func (m *mockAPI) GetTemplate(ctx context.Context, req easytemplate.TemplateRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

// toolResult is the wire shape of a tools/call result.
type toolResult struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

func (r toolResult) text() string {
	if len(r.Result.Content) == 0 {
		return ""
	}
	return r.Result.Content[0].Text
}

func callTool(t *testing.T, s *mcpserver.Server, name string, args map[string]any) toolResult {
	t.Helper()

	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":%s}`, params)

	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(msg))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out toolResult
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func newServer(api *mockAPI) *mcpserver.Server {
	return mcpserver.New(api, "test", slog.New(slog.DiscardHandler))
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	s := newServer(&mockAPI{})
	resp := s.MCP().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out struct {
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))

	names := make([]string, 0, len(out.Result.Tools))
	for _, tool := range out.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"et_login", "et_list_items", "et_get_item", "et_create_item", "et_update_item",
		"et_send_to_ebay", "et_get_ebay_item", "et_get_seller_events",
		"et_send_template_to_ebay", "et_get_template",
	}, names)
}

func TestTools(t *testing.T) {
	t.Parallel()

	tid := int64(7)
	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		setupMock func(*mockAPI)
		wantError bool
		wantText  []string
	}{
		{
			name: "login",
			tool: "et_login",
			args: map[string]any{"clientId": "id", "clientSecret": "secret"},
			setupMock: func(m *mockAPI) {
				m.On("Login", mock.Anything, "id", "secret").Return(nil).Once()
			},
			wantText: []string{"Successfully authenticated"},
		},
		{
			name:      "login without secret",
			tool:      "et_login",
			args:      map[string]any{"clientId": "id"},
			setupMock: func(*mockAPI) {},
			wantError: true,
			wantText:  []string{"Error: clientSecret is required"},
		},
		{
			name: "list items with defaults",
			tool: "et_list_items",
			args: map[string]any{},
			setupMock: func(m *mockAPI) {
				m.On("ListItems", mock.Anything, easytemplate.ListItemsRequest{Limit: 10}).
					Return(&easytemplate.ItemList{Items: []easytemplate.Article{{"Title": "Lamp"}}, Total: 1}, nil).Once()
			},
			wantText: []string{"Found 1 item(s):", `"Title": "Lamp"`},
		},
		{
			name: "list items with filters",
			tool: "et_list_items",
			args: map[string]any{"offset": 5, "limit": 3, "orderField": "id", "orderDirection": 1, "articleIds": "1, 2"},
			setupMock: func(m *mockAPI) {
				m.On("ListItems", mock.Anything, easytemplate.ListItemsRequest{
					Offset: 5, Limit: 3, OrderField: "id", OrderDirection: 1, ArticleIDs: []int64{1, 2},
				}).Return(&easytemplate.ItemList{Items: []easytemplate.Article{}}, nil).Once()
			},
			wantText: []string{"Found 0 item(s):"},
		},
		{
			name: "get item surfaces API error",
			tool: "et_get_item",
			args: map[string]any{"articleId": 9},
			setupMock: func(m *mockAPI) {
				m.On("GetItem", mock.Anything, int64(9)).Return(nil, &easytemplate.Error{
					Kind: easytemplate.KindRemote, Op: "get item", StatusCode: 404,
					Detail: "article not found", Err: easytemplate.ErrNotFound,
				}).Once()
			},
			wantError: true,
			wantText:  []string{"Error: get item failed: article not found"},
		},
		{
			name:      "get item with fractional id",
			tool:      "et_get_item",
			args:      map[string]any{"articleId": 1.5},
			setupMock: func(*mockAPI) {},
			wantError: true,
			wantText:  []string{"articleId"},
		},
		{
			name: "create item",
			tool: "et_create_item",
			args: map[string]any{"article": map[string]any{"Title": "Lamp"}},
			setupMock: func(m *mockAPI) {
				m.On("CreateItem", mock.Anything, easytemplate.Article{"Title": "Lamp"}).
					Return(&easytemplate.CreateItemResult{ArticleID: 321, TemplateID: &tid}, nil).Once()
			},
			wantText: []string{"articleId: 321", "template_id: 7"},
		},
		{
			name: "create item without template",
			tool: "et_create_item",
			args: map[string]any{"article": map[string]any{"Title": "Lamp"}},
			setupMock: func(m *mockAPI) {
				m.On("CreateItem", mock.Anything, mock.Anything).
					Return(&easytemplate.CreateItemResult{ArticleID: 322}, nil).Once()
			},
			wantText: []string{"template_id: auto-assigned"},
		},
		{
			name: "update item",
			tool: "et_update_item",
			args: map[string]any{"articleId": 321, "article": map[string]any{"Quantity": 2}},
			setupMock: func(m *mockAPI) {
				m.On("UpdateItem", mock.Anything, int64(321), mock.Anything).
					Return(json.RawMessage(`{"status":"ok"}`), nil).Once()
			},
			wantText: []string{"Article updated.", `"status": "ok"`},
		},
		{
			name: "send to eBay maps flags",
			tool: "et_send_to_ebay",
			args: map[string]any{"articleId": 321, "testMode": true, "template_id": 7, "html": false, "Specifics": true},
			setupMock: func(m *mockAPI) {
				m.On("SendToEbay", mock.Anything, int64(321), mock.MatchedBy(func(o easytemplate.SendOptions) bool {
					return *o.TestMode && *o.TemplateID == 7 && !*o.HTML && *o.Specifics && o.Price == nil
				})).Return(&easytemplate.SendResult{
					Status: "ok", ItemID: "1655", Raw: json.RawMessage(`{"status":"ok","ItemID":"1655"}`),
				}, nil).Once()
			},
			wantText: []string{"Status: ok", "eBay ItemID: 1655", "ebayStatus: N/A"},
		},
		{
			name: "get eBay item accepts numeric id",
			tool: "et_get_ebay_item",
			args: map[string]any{"itemID": 165775527034},
			setupMock: func(m *mockAPI) {
				m.On("GetEbayItem", mock.Anything, "165775527034").Return(json.RawMessage(`{"Title":"Lamp"}`), nil).Once()
			},
			wantText: []string{`"Title": "Lamp"`},
		},
		{
			name: "seller events from unix seconds",
			tool: "et_get_seller_events",
			args: map[string]any{"startTime": 1772359200},
			setupMock: func(m *mockAPI) {
				m.On("GetSellerEvents", mock.Anything, time.Unix(1772359200, 0)).
					Return(json.RawMessage(`[]`), nil).Once()
			},
			wantText: []string{"[]"},
		},
		{
			name: "send template",
			tool: "et_send_template_to_ebay",
			args: map[string]any{"itemIDs": []any{165775527034, 166448190120}},
			setupMock: func(m *mockAPI) {
				m.On("SendTemplateByItemIDs", mock.Anything, []int64{165775527034, 166448190120}).
					Return(&easytemplate.TemplateSendResult{SendItems: 2, Raw: json.RawMessage(`{"sendItems":2}`)}, nil).Once()
			},
			wantText: []string{"Template sent to 2 item(s):"},
		},
		{
			name: "get template",
			tool: "et_get_template",
			args: map[string]any{"ebayItemId": "1655", "templateId": 4},
			setupMock: func(m *mockAPI) {
				m.On("GetTemplate", mock.Anything, easytemplate.TemplateRequest{EbayItemID: "1655", TemplateID: 4}).
					Return(json.RawMessage(`{"html":"<p/>"}`), nil).Once()
			},
			wantText: []string{`"html": "<p/>"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := &mockAPI{}
			tt.setupMock(api)

			res := callTool(t, newServer(api), tt.tool, tt.args)
			assert.Equal(t, tt.wantError, res.Result.IsError)
			for _, want := range tt.wantText {
				assert.Contains(t, res.text(), want)
			}
			api.AssertExpectations(t)
		})
	}
}

func TestServer_AutoLogin(t *testing.T) {
	t.Parallel()

	api := &mockAPI{}
	api.On("Login", mock.Anything, "id", "secret").Return(easytemplate.ErrUnauthorized).Once()
	s := newServer(api)

	s.AutoLogin(context.Background(), "", "")
	s.AutoLogin(context.Background(), "id", "secret")
	api.AssertNumberOfCalls(t, "Login", 1)
}
