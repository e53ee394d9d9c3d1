package domain

import "time"

type Label int

const (
	LabelNormal Label = 0
	LabelHustle Label = 1
)

func (l Label) String() string {
	if l == LabelHustle {
		return "hustle"
	}
	return "normal"
}

// Post is a piece of social content pulled from a feed for scoring.
type Post struct {
	ID         string
	ExternalID string
	Author     string
	Username   string
	Content    string
	Source     Source
	CreatedAt  time.Time
}

type Source string

const (
	SourceX        Source = "x"
	SourceLinkedIn Source = "linkedin"
	SourceFeed     Source = "feed"
	SourceInput    Source = "input"
)

// Before reports whether the post was created before cutoff. Posts without a
// creation time, such as texts typed on the command line, never are.
func (p Post) Before(cutoff time.Time) bool {
	return !p.CreatedAt.IsZero() && p.CreatedAt.Before(cutoff)
}

// Handle names who wrote the post: "@username" for X posts, otherwise the
// author given by the feed.
func (p Post) Handle() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.Author
}
