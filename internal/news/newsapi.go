package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market-advisor/internal/api"
	"market-advisor/internal/interfaces"
	"market-advisor/internal/types"
)

const NewsAPIBaseURL = "https://newsapi.org"

// NewsAPI searches the newsapi.org "everything" endpoint.
type NewsAPI struct {
	client *api.Client
	retry  *api.RetryConfig
	apiKey string
}

var _ interfaces.NewsSource = (*NewsAPI)(nil)

func NewNewsAPI(client *api.Client, retry *api.RetryConfig, apiKey string) *NewsAPI {
	return &NewsAPI{client: client, retry: retry, apiKey: apiKey}
}

func (n *NewsAPI) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (n *NewsAPI) Fetch(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	if n.apiKey == "" {
		return nil, errors.New("newsapi: no API key configured")
	}
	q := url.Values{
		"q":        {query},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
		"pageSize": {strconv.Itoa(min(max(limit, 1), 100))},
		"apiKey":   {n.apiKey},
	}
	var resp newsAPIResponse
	if err := n.client.GetJSON(ctx, "/v2/everything", q, n.retry, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", resp.Code, resp.Message)
	}

	items := make([]types.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		item := types.NewsItem{
			Headline: title,
			Summary:  strings.TrimSpace(a.Description),
			Source:   a.Source.Name,
			URL:      a.URL,
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			item.PublishedAt = ts
		}
		items = append(items, item)
	}
	return items, nil
}
