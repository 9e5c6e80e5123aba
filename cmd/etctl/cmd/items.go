package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	apiclient "github.com/GV888/easy-template-mcp/internal/api/client"
	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

func itemsCmd() *cobra.Command {
	itemsRoot := &cobra.Command{
		Use:   "items",
		Short: "Browse and edit articles",
		Long: "List, inspect, create and update Easy-Template articles through\n" +
			"the API server.",
	}

	itemsRoot.AddCommand(
		itemsListCmd(),
		itemsGetCmd(),
		itemsCreateCmd(),
		itemsUpdateCmd(),
		itemsAddImageCmd(),
	)

	return itemsRoot
}

func itemsListCmd() *cobra.Command {
	var (
		limit      int
		offset     int
		orderField string
		ascending  bool
		ids        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Example: `  # Newest 20 articles
  etctl items list

  # Page through by title, oldest first
  etctl items list --order-field Title --asc --limit 50 --offset 100

  # Specific articles
  etctl items list --ids 123,456`,
		RunE: func(_ *cobra.Command, _ []string) error {
			params := &apiclient.ListItemsParams{
				Offset:     offset,
				Limit:      limit,
				OrderField: orderField,
			}
			if ascending {
				params.OrderDirection = easytemplate.OrderAscending
			}
			if ids != "" {
				parsed, err := easytemplate.ParseArticleIDs(ids)
				if err != nil {
					return err
				}
				params.ArticleIDs = parsed
			}

			resp, err := newClient().ListItems(context.Background(), params)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}

			if len(resp.Items) == 0 {
				fmt.Println("No articles found.")
				return nil
			}

			fmt.Printf("Showing %d of %d articles\n\n", len(resp.Items), resp.Total)
			return printItemsTable(os.Stdout, resp.Items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of results (max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	cmd.Flags().StringVar(&orderField, "order-field", "", "field to sort by")
	cmd.Flags().BoolVar(&ascending, "asc", false, "sort ascending instead of descending")
	cmd.Flags().StringVar(&ids, "ids", "", "comma-separated article ids")

	return cmd
}

func itemsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Short:   "Show article details",
		Example: `  etctl items get 123456`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := newClient().GetItem(context.Background(), id)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(a)
			}
			return printArticle(os.Stdout, a)
		},
	}
}

func itemsCreateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an article from a JSON document",
		Example: `  etctl items create --file lamp.json
  echo '{"Title":"Desk lamp","SalePrice":19.9,"Quantity":1}' | etctl items create --file -`,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := readArticle(file)
			if err != nil {
				return err
			}

			resp, err := newClient().CreateItem(context.Background(), a)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(resp)
			}

			template := "auto-assigned"
			if resp.TemplateID != nil {
				template = strconv.FormatInt(*resp.TemplateID, 10)
			}
			fmt.Printf("Article created: %d (template %s)\n", resp.ArticleID, template)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "article JSON file, - for stdin")
	cobra.CheckErr(cmd.MarkFlagRequired("file"))

	return cmd
}

func itemsUpdateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update article fields from a JSON document",
		Example: `  echo '{"SalePrice":24.9}' | etctl items update 123456 --file -`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := readArticle(file)
			if err != nil {
				return err
			}

			raw, err := newClient().UpdateItem(context.Background(), id, a)
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputRaw(raw)
			}
			fmt.Printf("Article %d updated.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "article JSON file, - for stdin")
	cobra.CheckErr(cmd.MarkFlagRequired("file"))

	return cmd
}

func itemsAddImageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add-image <id> <url>",
		Short:   "Append an image URL to an article",
		Example: `  etctl items add-image 123456 https://res.cloudinary.com/demo/image/upload/lamp.jpg`,
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			c := newClient()

			a, err := c.GetItem(ctx, id)
			if err != nil {
				return err
			}
			images := append(slices.Clip(a.Images()), args[1])

			if _, err := c.UpdateItem(ctx, id, easytemplate.Article{"images": images}); err != nil {
				return err
			}
			fmt.Printf("Image added to article %d (%d total).\n", id, len(images))
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func readArticle(file string) (easytemplate.Article, error) {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var a easytemplate.Article
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding article JSON: %w", err)
	}
	if len(a) == 0 {
		return nil, errors.New("article JSON is empty")
	}
	return a, nil
}
