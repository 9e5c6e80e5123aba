package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// sendParts maps --only values to the option they enable.
var sendParts = map[string]func(*easytemplate.SendOptions) **bool{
	"article":        func(o *easytemplate.SendOptions) **bool { return &o.Article },
	"picture":        func(o *easytemplate.SendOptions) **bool { return &o.Picture },
	"price":          func(o *easytemplate.SendOptions) **bool { return &o.Price },
	"amount":         func(o *easytemplate.SendOptions) **bool { return &o.Amount },
	"title":          func(o *easytemplate.SendOptions) **bool { return &o.Title },
	"sku":            func(o *easytemplate.SendOptions) **bool { return &o.SKU },
	"html":           func(o *easytemplate.SendOptions) **bool { return &o.HTML },
	"specifics":      func(o *easytemplate.SendOptions) **bool { return &o.Specifics },
	"ebay-settings":  func(o *easytemplate.SendOptions) **bool { return &o.EbaySettings },
	"uvp":            func(o *easytemplate.SendOptions) **bool { return &o.UVP },
	"store-category": func(o *easytemplate.SendOptions) **bool { return &o.StoreCategoryID },
	"category":       func(o *easytemplate.SendOptions) **bool { return &o.CategoryID },
	"ean":            func(o *easytemplate.SendOptions) **bool { return &o.EAN },
}

func ebayCmd() *cobra.Command {
	ebayRoot := &cobra.Command{
		Use:   "ebay",
		Short: "Work with eBay listings",
	}

	templateRoot := &cobra.Command{
		Use:   "template",
		Short: "Render or push listing templates",
	}
	templateRoot.AddCommand(ebayTemplateSendCmd(), ebayTemplateShowCmd())

	ebayRoot.AddCommand(
		ebaySendCmd(),
		ebayItemCmd(),
		ebayEventsCmd(),
		templateRoot,
	)

	return ebayRoot
}

func ebaySendCmd() *cobra.Command {
	var (
		testMode   bool
		templateID int64
		only       []string
	)

	cmd := &cobra.Command{
		Use:   "send <article-id>",
		Short: "Create or revise the eBay listing of an article",
		Example: `  # Validate without listing
  etctl ebay send 123456 --test

  # Revise only price and quantity
  etctl ebay send 123456 --only price,amount`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			opts, err := buildSendOptions(testMode, templateID, only)
			if err != nil {
				return err
			}

			resp, err := newClient().SendToEbay(context.Background(), id, opts)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}
			return printSendResult(os.Stdout, resp)
		},
	}
	cmd.Flags().BoolVar(&testMode, "test", false, "validate only, do not list")
	cmd.Flags().Int64Var(&templateID, "template-id", 0, "template to render (0 = article default)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "push only these parts ("+strings.Join(sendPartNames(), ", ")+")")

	return cmd
}

func buildSendOptions(testMode bool, templateID int64, only []string) (easytemplate.SendOptions, error) {
	var opts easytemplate.SendOptions
	if testMode {
		opts.TestMode = easytemplate.Bool(true)
	}
	if templateID > 0 {
		opts.TemplateID = &templateID
	}
	for _, part := range only {
		field, ok := sendParts[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return opts, fmt.Errorf("unknown part %q", part)
		}
		*field(&opts) = easytemplate.Bool(true)
	}
	return opts, nil
}

func sendPartNames() []string {
	return slices.Sorted(maps.Keys(sendParts))
}

func ebayItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "item <item-id>",
		Short:   "Show a listing as reported by eBay",
		Example: `  etctl ebay item 110555123456`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := newClient().GetEbayItem(context.Background(), args[0])
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
}

func ebayEventsCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show seller events",
		Example: `  etctl ebay events --since 6h
  etctl ebay events --since 2026-03-01T00:00:00Z`,
		RunE: func(_ *cobra.Command, _ []string) error {
			at, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}

			raw, err := newClient().GetSellerEvents(context.Background(), at)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "duration ago (e.g. 6h) or RFC 3339 time; default one hour")

	return cmd
}

// parseSince accepts a duration before now or an RFC 3339 time. Empty
// returns the zero time so the server default applies.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a duration or RFC 3339 time", s)
	}
	return t, nil
}

func ebayTemplateSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "send <item-id>...",
		Short:   "Regenerate the description of up to 10 listings",
		Example: `  etctl ebay template send 110555123456 110555123457`,
		Args:    cobra.RangeArgs(1, easytemplate.MaxTemplateItemIDs),
		RunE: func(_ *cobra.Command, args []string) error {
			ids, err := easytemplate.ParseArticleIDs(strings.Join(args, ","))
			if err != nil {
				return err
			}

			n, err := newClient().SendTemplate(context.Background(), ids)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(map[string]int{"send_items": n})
			}
			fmt.Printf("Template sent to %d listing(s).\n", n)
			return nil
		},
	}
}

func ebayTemplateShowCmd() *cobra.Command {
	var templateID int64

	cmd := &cobra.Command{
		Use:     "show <item-id>",
		Short:   "Show the rendered template of a listing",
		Example: `  etctl ebay template show 110555123456 --template-id 7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := newClient().GetTemplate(context.Background(), args[0], templateID)
			if err != nil {
				return err
			}
			return outputRaw(raw)
		},
	}
	cmd.Flags().Int64Var(&templateID, "template-id", 0, "template id (0 = account default)")

	return cmd
}
