package news

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"market-advisor/internal/interfaces"
	"market-advisor/internal/logger"
	"market-advisor/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Site describes one financial news listing page.
type Site struct {
	Name       string
	BaseURL    string
	SearchPath string // "{query}" is replaced with the slugged query
	Selectors  ArticleSelectors
}

// ArticleSelectors are CSS selectors relative to the article container.
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Summary          string
	PublishedAt      string
}

// DefaultSites lists the Indian financial news listings scraped by default.
func DefaultSites() []Site {
	return []Site{
		{
			Name:       "MoneyControl",
			BaseURL:    "https://www.moneycontrol.com",
			SearchPath: "/news/tags/{query}.html",
			Selectors: ArticleSelectors{
				ArticleContainer: "li.clearfix",
				Title:            "h2 a, h3 a",
				URL:              "h2 a, h3 a",
				Summary:          "p",
				PublishedAt:      "span.ago",
			},
		},
		{
			Name:       "EconomicTimes",
			BaseURL:    "https://economictimes.indiatimes.com",
			SearchPath: "/topic/{query}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.story-box",
				Title:            "a",
				URL:              "a",
				Summary:          "p",
				PublishedAt:      "time",
			},
		},
		{
			Name:       "BusinessStandard",
			BaseURL:    "https://www.business-standard.com",
			SearchPath: "/search?q={query}",
			Selectors: ArticleSelectors{
				ArticleContainer: "div.listing-txt",
				Title:            "a.Hdng",
				URL:              "a.Hdng",
				Summary:          "p",
				PublishedAt:      "span.listing-date",
			},
		},
	}
}

// Scraper collects headlines from listing pages with colly.
type Scraper struct {
	sites   []Site
	timeout time.Duration
	delay   time.Duration
	now     func() time.Time
}

var _ interfaces.NewsSource = (*Scraper)(nil)

func NewScraper(sites []Site, timeout time.Duration) *Scraper {
	return &Scraper{sites: sites, timeout: timeout, delay: 2 * time.Second, now: time.Now}
}

func (s *Scraper) Name() string { return "scraper" }

// Fetch visits every site and splits limit evenly between them. A failing
// site is logged and skipped.
func (s *Scraper) Fetch(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	if len(s.sites) == 0 {
		return nil, nil
	}
	perSite := max(limit/len(s.sites), 1)

	var (
		all     []types.NewsItem
		lastErr error
		failed  int
	)
	for i, site := range s.sites {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		items, err := s.scrapeSite(ctx, site, query, perSite)
		if err != nil {
			logger.Warn(ctx, "Failed to scrape news site", "site", site.Name, "query", query, "error", err)
			lastErr = err
			failed++
			continue
		}
		all = append(all, items...)
	}
	if failed == len(s.sites) {
		return nil, lastErr
	}
	return all, nil
}

func (s *Scraper) scrapeSite(ctx context.Context, site Site, query string, limit int) ([]types.NewsItem, error) {
	var items []types.NewsItem

	c := colly.NewCollector(
		colly.AllowedDomains(hostname(site.BaseURL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnHTML(site.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(items) >= limit {
			return
		}
		title := strings.TrimSpace(e.ChildText(site.Selectors.Title))
		link := e.ChildAttr(site.Selectors.URL, "href")
		if title == "" || link == "" {
			return
		}
		published := e.ChildAttr(site.Selectors.PublishedAt, "datetime")
		if published == "" {
			published = e.ChildText(site.Selectors.PublishedAt)
		}
		ts, _ := parsePublished(published, s.now())

		items = append(items, types.NewsItem{
			Headline:    collapseSpace(title),
			Summary:     firstParagraph(e.DOM, site.Selectors.Summary),
			Source:      site.Name,
			URL:         e.Request.AbsoluteURL(link),
			PublishedAt: ts,
		})
	})

	searchURL := site.BaseURL + strings.ReplaceAll(site.SearchPath, "{query}", slug(query))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", searchURL, err)
	}
	c.Wait()
	return items, nil
}

// firstParagraph returns the first non-trivial paragraph under sel.
func firstParagraph(dom *goquery.Selection, sel string) string {
	var text string
	dom.Find(sel).EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := collapseSpace(p.Text())
		if len(t) > 20 {
			text = t
			return false
		}
		return true
	})
	return text
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	relativeRe = regexp.MustCompile(`(?i)^(\d+)\s*(min|minute|hr|hour|day|week)s?\s+ago`)
)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func slug(query string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(query)), " ", "-")
}

var publishedLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006, 03:04 PM IST",
	"January 2, 2006 15:04 IST",
	"02 Jan 2006, 03:04 PM IST",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.DateOnly,
}

// parsePublished understands absolute dates in the layouts listing pages use
// and relative stamps like "3 hours ago".
func parsePublished(s string, now time.Time) (time.Time, bool) {
	s = collapseSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := time.Minute
		switch strings.ToLower(m[2]) {
		case "hr", "hour":
			unit = time.Hour
		case "day":
			unit = 24 * time.Hour
		case "week":
			unit = 7 * 24 * time.Hour
		}
		return now.Add(-time.Duration(n) * unit), true
	}
	for _, layout := range publishedLayouts {
		if t, err := time.ParseInLocation(layout, s, ist); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var ist = time.FixedZone("IST", 5*3600+1800)

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
