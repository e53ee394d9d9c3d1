package scraper

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"vibecope/internal/domain"
)

type Feed struct {
	client *http.Client
	parser *gofeed.Parser
	now    func() time.Time
}

func NewFeed(client *http.Client) *Feed {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Feed{
		client: client,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

// NitterURL returns the RSS address of an X account on a Nitter instance.
func NitterURL(instance, account string) string {
	return fmt.Sprintf("https://%s/%s/rss", instance, strings.TrimPrefix(account, "@"))
}

// Account fetches the timeline of an X account through a Nitter instance.
func (f *Feed) Account(ctx context.Context, instance, account string) ([]domain.Post, error) {
	return Fetch(ctx, f, AccountSource(instance, account))
}

// Scrape fetches url and returns one post per feed item that has text.
func (f *Feed) Scrape(ctx context.Context, url string) ([]domain.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}

	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", url, err)
	}

	posts := make([]domain.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		content := strings.TrimSpace(item.Title)
		if content == "" {
			content = strings.TrimSpace(item.Description)
		}
		if content == "" {
			continue
		}

		createdAt := f.publishedAt(item)

		externalID := item.GUID
		if externalID == "" {
			externalID = item.Link
		}

		author := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			author = item.Author.Name
		}

		posts = append(posts, domain.Post{
			ID:         generateID(externalID + content),
			ExternalID: externalID,
			Author:     author,
			Content:    content,
			Source:     sourceFor(url),
			CreatedAt:  createdAt,
		})
	}

	return posts, nil
}

// publishedAt falls back to dateparse for dates gofeed could not parse, then
// to the update time, then to now.
func (f *Feed) publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t
		}
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return f.now()
}

func sourceFor(url string) domain.Source {
	if strings.Contains(url, "linkedin.") {
		return domain.SourceLinkedIn
	}
	return domain.SourceFeed
}

func generateID(key string) string {
	hash := md5.Sum([]byte(key))
	return fmt.Sprintf("%x", hash)[:12]
}
