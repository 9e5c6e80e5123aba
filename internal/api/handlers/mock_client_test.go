package handlers_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Login(ctx context.Context, id, secret string) error {
	return m.Called(ctx, id, secret).Error(0)
}

func (m *mockClient) EnsureValid(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) State() easytemplate.State {
	return m.Called().Get(0).(easytemplate.State)
}

func (m *mockClient) Expiries() (access, refresh time.Time) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Get(1).(time.Time)
}

func (m *mockClient) ListItems(ctx context.Context, req easytemplate.ListItemsRequest) (*easytemplate.ItemList, error) {
	args := m.Called(ctx, req)
	list, _ := args.Get(0).(*easytemplate.ItemList)
	return list, args.Error(1)
}

func (m *mockClient) GetItem(ctx context.Context, id int64) (easytemplate.Article, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(easytemplate.Article)
	return a, args.Error(1)
}

func (m *mockClient) CreateItem(ctx context.Context, a easytemplate.Article) (*easytemplate.CreateItemResult, error) {
	args := m.Called(ctx, a)
	res, _ := args.Get(0).(*easytemplate.CreateItemResult)
	return res, args.Error(1)
}

func (m *mockClient) UpdateItem(ctx context.Context, id int64, a easytemplate.Article) (json.RawMessage, error) {
	args := m.Called(ctx, id, a)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockClient) SendToEbay(
	ctx context.Context,
	id int64,
	opts easytemplate.SendOptions,
) (*easytemplate.SendResult, error) {
	args := m.Called(ctx, id, opts)
	res, _ := args.Get(0).(*easytemplate.SendResult)
	return res, args.Error(1)
}

func (m *mockClient) GetEbayItem(ctx context.Context, itemID string) (json.RawMessage, error) {
	args := m.Called(ctx, itemID)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockClient) GetSellerEvents(ctx context.Context, since time.Time) (json.RawMessage, error) {
	args := m.Called(ctx, since)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockClient) SendTemplateByItemIDs(ctx context.Context, ids []int64) (*easytemplate.TemplateSendResult, error) {
	args := m.Called(ctx, ids)
	res, _ := args.Get(0).(*easytemplate.TemplateSendResult)
	return res, args.Error(1)
}

func (m *mockClient) GetTemplate(ctx context.Context, req easytemplate.TemplateRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func authErr() error {
	return &easytemplate.Error{Kind: easytemplate.KindAuth, Op: "list items", Err: easytemplate.ErrSessionExpired}
}

func notFoundErr() error {
	return &easytemplate.Error{
		Kind:       easytemplate.KindRemote,
		Op:         "get item",
		StatusCode: 404,
		Detail:     "article not found",
		Err:        easytemplate.ErrNotFound,
	}
}
