package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"budgetmirror/internal/cache"
	"budgetmirror/internal/domain"
	"budgetmirror/internal/service"
)

const memoWidth = 40

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printReport(w io.Writer, report *service.SyncReport, stats cache.Stats) {
	tw := newTable(w)
	fmt.Fprintln(tw, "LISTING\tBUDGET\tINSERTED\tUPDATED\tUNCHANGED\tSKIPPED")
	for _, l := range report.Listings {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", l.Listing, orDash(l.BudgetID), l.Outcome.Inserted, l.Outcome.Updated, l.Outcome.Unchanged, l.Skipped)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryLine(report, stats))
}

// summaryLine is the one-line form of a sync report
func summaryLine(report *service.SyncReport, stats cache.Stats) string {
	totals := report.Totals()
	line := fmt.Sprintf("%s inserted, %s updated, %s unchanged",
		humanize.Comma(int64(totals.Inserted)), humanize.Comma(int64(totals.Updated)), humanize.Comma(int64(totals.Unchanged)))
	if skipped := report.Skipped(); skipped > 0 {
		line += fmt.Sprintf(", %d skipped", skipped)
	}
	return line + fmt.Sprintf(" (cache: %d hits, %d misses)", stats.Hits, stats.Misses)
}

func printBudgets(w io.Writer, budgets []domain.Budget) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tMONTHS\tLAST MODIFIED")
	for _, b := range budgets {
		months := "-"
		if b.FirstMonth != "" {
			months = b.FirstMonth + " .. " + b.LastMonth
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, months, orDash(b.LastModifiedOn))
	}
	tw.Flush()
}

func printAccounts(w io.Writer, accounts []domain.Account) {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tTYPE\tBALANCE\tCLEARED\tUNCLEARED\tON BUDGET")
	var total domain.Milliunits
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.Name, a.Type, a.Balance, a.ClearedBalance, a.UnclearedBalance, yesNo(a.OnBudget))
		total += a.Balance
	}
	fmt.Fprintf(tw, "\t\t%s\t\t\t\n", total)
	tw.Flush()
}

func printCategories(w io.Writer, categories []domain.Category, groupNames map[string]string) {
	tw := newTable(w)
	fmt.Fprintln(tw, "GROUP\tCATEGORY\tBUDGETED\tACTIVITY\tAVAILABLE")
	for _, c := range categories {
		group := groupNames[c.CategoryGroupID]
		if group == "" {
			group = c.CategoryGroupID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", group, c.Name, c.Budgeted, c.Activity, c.Balance)
	}
	tw.Flush()
}

func printTransactions(w io.Writer, txs []domain.Transaction) {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tPAYEE\tCATEGORY\tACCOUNT\tAMOUNT\tCLEARED\tMEMO")
	var total domain.Milliunits
	for _, t := range txs {
		category := domain.StringOrEmpty(t.CategoryName)
		if t.IsTransfer() {
			category = "(transfer)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date,
			orDash(domain.StringOrEmpty(t.PayeeName)),
			orDash(category),
			t.AccountName,
			t.Amount,
			t.Cleared,
			truncate(domain.StringOrEmpty(t.Memo), memoWidth),
		)
		total += t.Amount
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s transaction(s), total %s\n", humanize.Comma(int64(len(txs))), total)
}

func printCacheEntries(w io.Writer, path string, entries []cache.Listing, refresh, maxAge time.Duration, now time.Time) {
	fmt.Fprintf(w, "%s: %d cached response(s), refresh window %s\n\n", path, len(entries), refresh)
	if len(entries) == 0 {
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ENDPOINT\tFETCHED\tSIZE\tSTATE")
	var size uint64
	for _, e := range entries {
		age := now.Sub(e.FetchedAt)
		state := "fresh"
		switch {
		case maxAge > 0 && age >= maxAge:
			state = "expired"
		case age >= refresh:
			state = "stale"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Endpoint, humanize.RelTime(e.FetchedAt, now, "ago", "from now"), humanize.Bytes(uint64(e.Size)), state)
		size += uint64(e.Size)
	}
	tw.Flush()
	fmt.Fprintf(w, "\ntotal %s\n", humanize.Bytes(size))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
