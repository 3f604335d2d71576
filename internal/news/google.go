package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/types"
)

const GoogleNewsBaseURL = "https://news.google.com"

// GoogleNews reads the Google News RSS search feed for India.
type GoogleNews struct {
	baseURL string
	timeout time.Duration
	now     func() time.Time
}

var _ interfaces.NewsSource = (*GoogleNews)(nil)

func NewGoogleNews(baseURL string, timeout time.Duration) *GoogleNews {
	if baseURL == "" {
		baseURL = GoogleNewsBaseURL
	}
	return &GoogleNews{baseURL: baseURL, timeout: timeout, now: time.Now}
}

func (g *GoogleNews) Name() string { return "google" }

func (g *GoogleNews) Fetch(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	var items []types.NewsItem

	c := colly.NewCollector(
		colly.AllowedDomains(hostname(g.baseURL)),
		colly.StdlibContext(ctx),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(g.timeout)

	c.OnXML("//item", func(e *colly.XMLElement) {
		if len(items) >= limit {
			return
		}
		title := collapseSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		source := collapseSpace(e.ChildText("source"))
		// feed titles end with " - Publisher"
		if source != "" {
			title = strings.TrimSuffix(title, " - "+source)
		} else {
			source = "GoogleNews"
		}
		ts, _ := parsePublished(e.ChildText("pubDate"), g.now())
		items = append(items, types.NewsItem{
			Headline:    title,
			Source:      source,
			URL:         strings.TrimSpace(e.ChildText("link")),
			PublishedAt: ts,
		})
	})

	q := url.Values{
		"q":    {query + " stock India"},
		"hl":   {"en-IN"},
		"gl":   {"IN"},
		"ceid": {"IN:en"},
	}
	feedURL := g.baseURL + "/rss/search?" + q.Encode()
	if err := c.Visit(feedURL); err != nil {
		return nil, fmt.Errorf("google news: %w", err)
	}
	c.Wait()

	logger.Debug(ctx, "Google News feed read", "query", query, "items", len(items))
	return items, nil
}
