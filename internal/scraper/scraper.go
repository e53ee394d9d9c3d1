// Package scraper pulls posts from RSS and Atom feeds for scoring.
package scraper

import (
	"context"
	"strings"

	"vibecope/internal/domain"
)

type Scraper interface {
	Scrape(ctx context.Context, url string) ([]domain.Post, error)
}

// Source is one place to poll: a feed URL, or an X account read through a
// Nitter instance.
type Source struct {
	URL      string
	Instance string
	Account  string
}

// AccountSource returns the Source of an X account on a Nitter instance.
func AccountSource(instance, account string) Source {
	account = strings.TrimPrefix(account, "@")
	return Source{URL: NitterURL(instance, account), Instance: instance, Account: account}
}

func (s Source) String() string {
	if s.Account != "" {
		return "@" + s.Account
	}
	return s.URL
}

// Fetch scrapes src with s. Posts of an account source carry its username
// and are attributed to X.
func Fetch(ctx context.Context, s Scraper, src Source) ([]domain.Post, error) {
	posts, err := s.Scrape(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	if src.Account != "" {
		for i := range posts {
			posts[i].Username = src.Account
			posts[i].Source = domain.SourceX
		}
	}
	return posts, nil
}
