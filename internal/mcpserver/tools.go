package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

type toolDef struct {
	tool mcp.Tool
	run  toolFunc
}

// sendFlags are the boolean parts of SendOptions, by argument name.
var sendFlags = []struct {
	name string
	desc string
	set  func(*easytemplate.SendOptions, *bool)
}{
	{"article", "Send full article data (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Article = b }},
	{"picture", "Send images (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Picture = b }},
	{"price", "Send price data (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Price = b }},
	{"amount", "Send quantity (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Amount = b }},
	{"title", "Send title (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Title = b }},
	{"sku", "Send SKU/ProductCode (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.SKU = b }},
	{"html", "Render and send template HTML (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.HTML = b }},
	{"Specifics", "Send ItemSpecifics (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.Specifics = b }},
	{"ebaySettings", "Merge eBay profile settings (default: true)", func(o *easytemplate.SendOptions, b *bool) { o.EbaySettings = b }},
	{"uvp", "Send OriginalRetailPrice (UVP)", func(o *easytemplate.SendOptions, b *bool) { o.UVP = b }},
	{"StoreCategoryID", "Send StoreCategoryID", func(o *easytemplate.SendOptions, b *bool) { o.StoreCategoryID = b }},
	{"CategoryID", "Send CategoryID", func(o *easytemplate.SendOptions, b *bool) { o.CategoryID = b }},
	{"ean", "Send EAN", func(o *easytemplate.SendOptions, b *bool) { o.EAN = b }},
}

func (s *Server) tools() []toolDef {
	sendOpts := []mcp.ToolOption{
		mcp.WithDescription("Send an article to eBay. Creates a new listing (AddItem) if no eBay ItemID exists, " +
			"or revises an existing one (ReviseItem). Use testMode=true to verify without creating a real listing."),
		mcp.WithNumber("articleId", mcp.Required(), mcp.Description("Local article ID to send")),
		mcp.WithBoolean("testMode", mcp.Description("If true, uses VerifyAddItem (no real listing created)"),
			mcp.DefaultBool(false)),
		mcp.WithNumber("template_id", mcp.Description("Optional explicit template ID to use for rendering")),
	}
	for _, f := range sendFlags {
		sendOpts = append(sendOpts, mcp.WithBoolean(f.name, mcp.Description(f.desc)))
	}

	return []toolDef{
		{
			tool: mcp.NewTool("et_login",
				mcp.WithDescription("Authenticate with Easy-Template.com API using clientId and clientSecret."),
				mcp.WithString("clientId", mcp.Required(), mcp.Description("Easy-Template Client ID")),
				mcp.WithString("clientSecret", mcp.Required(), mcp.Description("Easy-Template Client Secret")),
			),
			run: s.login,
		},
		{
			tool: mcp.NewTool("et_list_items",
				mcp.WithDescription("List articles from Easy-Template.com with optional pagination and filtering."),
				mcp.WithString("articleIds",
					mcp.Description(`Comma-separated list of article IDs to filter (e.g. "123,456,789")`)),
				mcp.WithNumber("offset", mcp.Description("Pagination offset (default: 0)"), mcp.DefaultNumber(0)),
				mcp.WithNumber("limit", mcp.Description("Number of items to return (default: 10, max: 100)"),
					mcp.DefaultNumber(10), mcp.Min(1), mcp.Max(100)),
				mcp.WithString("orderField", mcp.Description("Field name to order results by (default: id)")),
				mcp.WithNumber("orderDirection",
					mcp.Description("Order direction: 0 = descending, 1 = ascending (default: 0)"),
					mcp.DefaultNumber(0), mcp.Min(0), mcp.Max(1)),
			),
			run: s.listItems,
		},
		{
			tool: mcp.NewTool("et_get_item",
				mcp.WithDescription("Get detailed information about a specific article by its local article ID."),
				mcp.WithNumber("articleId", mcp.Required(), mcp.Description("Local article ID")),
			),
			run: s.getItem,
		},
		{
			tool: mcp.NewTool("et_create_item",
				mcp.WithDescription("Create a new article in Easy-Template.com. Returns the new articleId and assigned template_id."),
				mcp.WithObject("article", mcp.Required(), mcp.Description(
					"Product data. Key fields: Title, ProductCode (SKU), SalePrice, OriginalPrice, Quantity, "+
						"images (array of URLs), shortDescription, longDescription, EAN, Country, Currency, "+
						"CategoryID, ebaySiteId, ConditionID, template_id, Variations.")),
			),
			run: s.createItem,
		},
		{
			tool: mcp.NewTool("et_update_item",
				mcp.WithDescription("Update an existing article. Only provided fields will be changed (partial update)."),
				mcp.WithNumber("articleId", mcp.Required(), mcp.Description("ID of the article to update")),
				mcp.WithObject("article", mcp.Required(), mcp.Description("Partial product data with the fields to update")),
			),
			run: s.updateItem,
		},
		{
			tool: mcp.NewTool("et_send_to_ebay", sendOpts...),
			run:  s.sendToEbay,
		},
		{
			tool: mcp.NewTool("et_get_ebay_item",
				mcp.WithDescription("Get an existing eBay listing by its eBay ItemID."),
				mcp.WithString("itemID", mcp.Required(), mcp.Description(`eBay Item ID (e.g. "165775527034")`)),
			),
			run: s.getEbayItem,
		},
		{
			tool: mcp.NewTool("et_get_seller_events",
				mcp.WithDescription("Get all eBay seller events (sold, revised, relisted items) since a given Unix timestamp."),
				mcp.WithNumber("startTime", mcp.Required(), mcp.Description("Unix timestamp to fetch events from")),
			),
			run: s.getSellerEvents,
		},
		{
			tool: mcp.NewTool("et_send_template_to_ebay",
				mcp.WithDescription("Send rendered template HTML to eBay for existing listings by their eBay ItemIDs (max 10 at once)."),
				mcp.WithArray("itemIDs", mcp.Required(),
					mcp.Description("Array of eBay ItemIDs (max 10)"),
					mcp.Items(map[string]any{"type": "integer"}),
					mcp.MinItems(1), mcp.MaxItems(easytemplate.MaxTemplateItemIDs)),
			),
			run: s.sendTemplate,
		},
		{
			tool: mcp.NewTool("et_get_template",
				mcp.WithDescription("Get the rendered HTML template for an eBay item (optionally specifying a template)."),
				mcp.WithString("ebayItemId", mcp.Required(), mcp.Description("eBay Item ID")),
				mcp.WithNumber("templateId", mcp.Description("Optional template ID (uses default if omitted)")),
			),
			run: s.getTemplate,
		},
	}
}

func (s *Server) login(ctx context.Context, args map[string]any) (string, error) {
	id, err := requireString(args, "clientId")
	if err != nil {
		return "", err
	}
	secret, err := requireString(args, "clientSecret")
	if err != nil {
		return "", err
	}
	if err := s.api.Login(ctx, id, secret); err != nil {
		return "", err
	}
	return "Successfully authenticated with Easy-Template.com", nil
}

func (s *Server) listItems(ctx context.Context, args map[string]any) (string, error) {
	req := easytemplate.ListItemsRequest{Limit: 10}
	for key, dst := range map[string]*int{
		"offset":         &req.Offset,
		"limit":          &req.Limit,
		"orderDirection": &req.OrderDirection,
	} {
		v, ok, err := optInt(args, key)
		if err != nil {
			return "", err
		}
		if ok {
			*dst = int(v)
		}
	}
	req.OrderField, _ = args["orderField"].(string)
	if ids, _ := args["articleIds"].(string); ids != "" {
		parsed, err := easytemplate.ParseArticleIDs(ids)
		if err != nil {
			return "", err
		}
		req.ArticleIDs = parsed
	}

	list, err := s.api.ListItems(ctx, req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Found %d item(s):\n\n%s", len(list.Items), indent(list.Items)), nil
}

func (s *Server) getItem(ctx context.Context, args map[string]any) (string, error) {
	id, err := requireInt(args, "articleId")
	if err != nil {
		return "", err
	}
	item, err := s.api.GetItem(ctx, id)
	if err != nil {
		return "", err
	}
	return indent(item), nil
}

func (s *Server) createItem(ctx context.Context, args map[string]any) (string, error) {
	article, err := requireObject(args, "article")
	if err != nil {
		return "", err
	}
	res, err := s.api.CreateItem(ctx, article)
	if err != nil {
		return "", err
	}
	tid := "auto-assigned"
	if res.TemplateID != nil {
		tid = strconv.FormatInt(*res.TemplateID, 10)
	}
	return fmt.Sprintf("Article created.\narticleId: %d\ntemplate_id: %s", res.ArticleID, tid), nil
}

func (s *Server) updateItem(ctx context.Context, args map[string]any) (string, error) {
	id, err := requireInt(args, "articleId")
	if err != nil {
		return "", err
	}
	article, err := requireObject(args, "article")
	if err != nil {
		return "", err
	}
	raw, err := s.api.UpdateItem(ctx, id, article)
	if err != nil {
		return "", err
	}
	return "Article updated.\n" + indentRaw(raw), nil
}

func (s *Server) sendToEbay(ctx context.Context, args map[string]any) (string, error) {
	id, err := requireInt(args, "articleId")
	if err != nil {
		return "", err
	}

	var opts easytemplate.SendOptions
	if b, ok := args["testMode"].(bool); ok {
		opts.TestMode = easytemplate.Bool(b)
	}
	tid, ok, err := optInt(args, "template_id")
	if err != nil {
		return "", err
	}
	if ok {
		opts.TemplateID = &tid
	}
	for _, f := range sendFlags {
		if b, ok := args[f.name].(bool); ok {
			f.set(&opts, easytemplate.Bool(b))
		}
	}

	res, err := s.api.SendToEbay(ctx, id, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("eBay send result:\nStatus: %s\neBay ItemID: %s\nebayStatus: %s\n\nFull response:\n%s",
		res.Status, orNA(res.ItemID), orNA(res.EbayStatus), indentRaw(res.Raw)), nil
}

func (s *Server) getEbayItem(ctx context.Context, args map[string]any) (string, error) {
	itemID, err := requireID(args, "itemID")
	if err != nil {
		return "", err
	}
	raw, err := s.api.GetEbayItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	return indentRaw(raw), nil
}

func (s *Server) getSellerEvents(ctx context.Context, args map[string]any) (string, error) {
	start, err := requireInt(args, "startTime")
	if err != nil {
		return "", err
	}
	raw, err := s.api.GetSellerEvents(ctx, time.Unix(start, 0))
	if err != nil {
		return "", err
	}
	return indentRaw(raw), nil
}

func (s *Server) sendTemplate(ctx context.Context, args map[string]any) (string, error) {
	arr, ok := args["itemIDs"].([]any)
	if !ok {
		return "", errors.New("itemIDs must be an array of eBay item ids")
	}
	ids := make([]int64, 0, len(arr))
	for i, v := range arr {
		id, err := toInt64(v)
		if err != nil {
			return "", fmt.Errorf("itemIDs[%d]: %w", i, err)
		}
		ids = append(ids, id)
	}

	res, err := s.api.SendTemplateByItemIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Template sent to %d item(s):\n\n%s", res.SendItems, indentRaw(res.Raw)), nil
}

func (s *Server) getTemplate(ctx context.Context, args map[string]any) (string, error) {
	itemID, err := requireID(args, "ebayItemId")
	if err != nil {
		return "", err
	}
	req := easytemplate.TemplateRequest{EbayItemID: itemID}
	tid, ok, err := optInt(args, "templateId")
	if err != nil {
		return "", err
	}
	if ok {
		req.TemplateID = tid
	}
	raw, err := s.api.GetTemplate(ctx, req)
	if err != nil {
		return "", err
	}
	return indentRaw(raw), nil
}

// --- argument helpers ---

func requireString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// requireID accepts a string or a number, since models often send eBay item
// ids unquoted.
func requireID(args map[string]any, key string) (string, error) {
	switch v := args[key].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	return "", fmt.Errorf("%s is required", key)
}

func requireInt(args map[string]any, key string) (int64, error) {
	v, ok, err := optInt(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func optInt(args map[string]any, key string) (int64, bool, error) {
	v, present := args[key]
	if !present || v == nil {
		return 0, false, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func requireObject(args map[string]any, key string) (easytemplate.Article, error) {
	m, ok := args[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return easytemplate.Article(m), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func indentRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return indent(v)
}
