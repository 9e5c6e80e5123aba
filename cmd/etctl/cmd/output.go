package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	apiclient "github.com/GV888/easy-template-mcp/internal/api/client"
	"github.com/GV888/easy-template-mcp/internal/easytemplate"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printItemsTable(w io.Writer, items []easytemplate.Article) error {
	tw := newTabWriter(w)
	tw.writef("ID\tTITLE\tPRICE\tQTY\tIMAGES\n")
	for _, a := range items {
		tw.writef("%d\t%s\t%s\t%s\t%d\n",
			a.ID(),
			orDash(truncate(a.Title(), 50)),
			orDash(a.SalePrice()),
			orDash(a.Text("Quantity")),
			len(a.Images()),
		)
	}
	return tw.finish()
}

// printArticle prints the well-known fields first, then the rest sorted.
func printArticle(w io.Writer, a easytemplate.Article) error {
	known := []string{"articleId", "Title", "SalePrice", "OriginalPrice", "Quantity", "ProductCode"}

	tw := newTabWriter(w)
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
		if _, ok := a[k]; ok {
			tw.writef("%s:\t%s\n", k, a.Text(k))
		}
	}

	rest := make([]string, 0, len(a))
	for k := range a {
		if !seen[k] && k != "images" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		tw.writef("%s:\t%s\n", k, truncate(flatten(a[k]), 80))
	}

	for i, img := range a.Images() {
		tw.writef("image %d:\t%s\n", i+1, img)
	}
	return tw.finish()
}

func printSendResult(w io.Writer, r *apiclient.SendResponse) error {
	tw := newTabWriter(w)
	tw.writef("Status:\t%s\n", r.Status)
	tw.writef("Accepted:\t%v\n", r.OK)
	if r.ItemID != "" {
		tw.writef("eBay item:\t%s\n", r.ItemID)
	}
	if r.EbayStatus != "" {
		tw.writef("eBay status:\t%s\n", r.EbayStatus)
	}
	return tw.finish()
}

func printSession(w io.Writer, s *apiclient.SessionResponse) error {
	tw := newTabWriter(w)
	tw.writef("State:\t%s\n", s.State)
	if s.AccessExpiresAt != nil {
		tw.writef("Access expires:\t%s\n", s.AccessExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	if s.RefreshExpiresAt != nil {
		tw.writef("Refresh expires:\t%s\n", s.RefreshExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.finish()
}

func printQuota(w io.Writer, q *apiclient.QuotaResponse) error {
	tw := newTabWriter(w)
	if q.Remaining < 0 {
		tw.writef("Daily limit:\tunlimited\n")
		return tw.finish()
	}
	tw.writef("Daily limit:\t%d\n", q.DailyLimit)
	tw.writef("Used:\t%d\n", q.DailyUsed)
	tw.writef("Remaining:\t%d\n", q.Remaining)
	tw.writef("Resets at:\t%s\n", q.ResetAt.Local().Format("2006-01-02 15:04:05"))
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputRaw pretty-prints an upstream JSON document.
func outputRaw(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = os.Stdout.Write(append(raw, '\n'))
		return err
	}
	return outputJSON(v)
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
