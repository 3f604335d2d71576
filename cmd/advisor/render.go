package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"market-advisor/internal/market"
	"market-advisor/internal/types"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rupees(v float64) string {
	return "₹" + humanize.CommafWithDigits(v, 2)
}

func printReport(w io.Writer, r *types.Report, asJSON bool) error {
	if asJSON {
		return printJSON(w, r)
	}
	rec := r.Recommendation

	title := r.Symbol
	if r.Name != "" {
		title += "  " + r.Name
	}
	fmt.Fprintf(w, "%s  (%s, %s)\n", title, r.AssetClass, r.Period)
	fmt.Fprintf(w, "%s  score %.1f/100  confidence %.0f%%\n", rec.Action, rec.Score, rec.Confidence)
	if r.Indicators.LastClose > 0 {
		fmt.Fprintf(w, "last %s  target %s  horizon %s\n",
			rupees(r.Indicators.LastClose), rupees(rec.TargetPrice.InexactFloat64()), rec.TimeHorizon)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tSCORE\tWEIGHT\t")
	for _, c := range rec.Categories {
		if !c.Available {
			fmt.Fprintf(tw, "%s\t-\t-\t\n", c.Category)
			continue
		}
		fmt.Fprintf(tw, "%s\t%+.2f\t%.0f%%\t\n", c.Category, c.Score, c.Weight*100)
	}
	if len(rec.Factors) > 0 {
		fmt.Fprintln(tw, "\nFACTOR\tDIRECTION\tCONTRIBUTION\tDETAIL")
		for _, f := range rec.Factors {
			fmt.Fprintf(tw, "%s\t%s\t%+.3f\t%s\n", f.Name, f.Direction, f.Contribution, f.Detail)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, u := range rec.Unavailable {
		fmt.Fprintf(w, "  n/a %s: %s\n", u.Category, u.Reason)
	}
	printList(w, "Risks", rec.RiskFactors)
	printList(w, "Strengths", rec.Strengths)
	printList(w, "Weaknesses", rec.Weaknesses)

	if n := len(r.News); n > 0 {
		fmt.Fprintf(w, "\nNews (%d, sentiment %s %+.2f):\n", n, r.Sentiment.Label, r.Sentiment.Score)
		for _, it := range r.News[:min(n, 5)] {
			when := "undated"
			if !it.PublishedAt.IsZero() {
				when = humanize.Time(it.PublishedAt)
			}
			fmt.Fprintf(w, "  - %s (%s, %s)\n", it.Headline, it.Source, when)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func printScreen(w io.Writer, res *types.ScreenResult, asJSON bool) error {
	if asJSON {
		return printJSON(w, res)
	}
	label := "Top picks"
	if res.Side == types.ScreenSell {
		label = "Weakest"
	}
	fmt.Fprintf(w, "%s: %s (%s)\n\n", label, res.AssetClass, res.GeneratedAt.Format("2006-01-02 15:04"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSYMBOL\tNAME\tACTION\tSCORE\tCONFIDENCE\tTARGET")
	for _, e := range res.Entries {
		rec := e.Recommendation
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%.0f%%\t%s\n",
			e.Rank, e.Symbol, truncate(e.Name, 32), rec.Action, rec.Score, rec.Confidence,
			rupees(rec.TargetPrice.InexactFloat64()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "\n%d failed:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Symbol, f.Error)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printOverview(w io.Writer, quotes []market.IndexQuote, asJSON bool) error {
	if asJSON {
		return printJSON(w, quotes)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tCLOSE\tCHANGE\tAS OF")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%s\t%s\t%+.2f%%\t%s\n",
			q.Symbol, humanize.CommafWithDigits(q.Close, 2), q.ChangePct, q.AsOf.In(market.IST).Format("2006-01-02"))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
