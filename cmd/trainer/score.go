package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vibecope/internal/classifier"
	"vibecope/internal/domain"
	"vibecope/internal/logging"
	"vibecope/internal/scraper"
	"vibecope/internal/worker"
)

var scoreCmd = &cobra.Command{
	Use:   "score [text...]",
	Short: "Score texts with the exported model",
	Long: `Loads vocabulary.json and weights.json from the output directory and prints
the decision score, hustle probability and label of each text. Texts come from
the arguments, from --feed URLs and --account timelines, or one per line on
stdin. Feed posts are shown with their date and author.`,
	RunE: runScore,
}

func init() {
	addScoreFlags(scoreCmd.Flags())
}

func addScoreFlags(fs *pflag.FlagSet) {
	fs.StringArray("feed", nil, "RSS or Atom feed URL to score (repeatable)")
	fs.String("nitter", "", "Nitter instance used with --account")
	fs.StringArray("account", nil, "X account to score through --nitter (repeatable)")
	fs.Int("width", 80, "maximum display width of the text column")
	fs.Duration("watch", 0, "keep polling the feeds at this interval and score new posts")
	fs.Duration("since", 0, "skip feed posts older than this (0 keeps all)")
	fs.Bool("links", false, "print the link of each feed post under its score")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	clf, err := classifier.LoadLinear(cfg.OutputDir(), cfg.Output.Vocabulary, cfg.Output.Weights)
	if err != nil {
		return err
	}

	width, _ := cmd.Flags().GetInt("width")
	since, _ := cmd.Flags().GetDuration("since")
	links, _ := cmd.Flags().GetBool("links")
	out := cmd.OutOrStdout()
	emit := func(post domain.Post, res *classifier.Result) {
		fmt.Fprintln(out, formatPost(post, res, width))
		if links && post.ExternalID != "" {
			fmt.Fprintf(out, "    %s\n", post.ExternalID)
		}
	}

	if interval, _ := cmd.Flags().GetDuration("watch"); interval > 0 {
		sources, err := feedSources(cmd)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("--watch requires --feed or --account")
		}
		log := logging.New(cmd.ErrOrStderr(), "watch", cfg.Log.Color)
		worker.NewWatcher(scraper.NewFeed(nil), clf, sources, interval, log, emit).
			SkipOlderThan(since).
			Start(cmd.Context())
		return nil
	}

	posts, err := collectPosts(cmd, args)
	if err != nil {
		return err
	}
	if since > 0 {
		posts = recent(posts, time.Now().Add(-since))
	}

	for _, post := range posts {
		res, err := clf.Classify(cmd.Context(), post)
		if err != nil {
			return err
		}
		emit(post, res)
	}
	return nil
}

func collectPosts(cmd *cobra.Command, args []string) ([]domain.Post, error) {
	var posts []domain.Post
	for _, text := range args {
		posts = append(posts, domain.Post{Content: text, Source: domain.SourceInput})
	}

	sources, err := feedSources(cmd)
	if err != nil {
		return nil, err
	}

	f := scraper.NewFeed(nil)
	for _, src := range sources {
		fetched, err := scraper.Fetch(cmd.Context(), f, src)
		if err != nil {
			return nil, err
		}
		posts = append(posts, fetched...)
	}

	if len(args) == 0 && len(sources) == 0 {
		lines, err := readLines(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			posts = append(posts, domain.Post{Content: line, Source: domain.SourceInput})
		}
	}
	return posts, nil
}

// feedSources lists the --feed URLs followed by the Nitter timelines of
// --account.
func feedSources(cmd *cobra.Command) ([]scraper.Source, error) {
	feeds, _ := cmd.Flags().GetStringArray("feed")
	accounts, _ := cmd.Flags().GetStringArray("account")
	instance, _ := cmd.Flags().GetString("nitter")
	if len(accounts) > 0 && instance == "" {
		return nil, fmt.Errorf("--account requires --nitter")
	}

	sources := make([]scraper.Source, 0, len(feeds)+len(accounts))
	for _, url := range feeds {
		sources = append(sources, scraper.Source{URL: url})
	}
	for _, account := range accounts {
		sources = append(sources, scraper.AccountSource(instance, account))
	}
	return sources, nil
}

// recent drops posts created before cutoff.
func recent(posts []domain.Post, cutoff time.Time) []domain.Post {
	out := posts[:0]
	for _, p := range posts {
		if !p.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// formatPost prefixes feed posts with their creation time and author.
func formatPost(post domain.Post, res *classifier.Result, width int) string {
	text := post.Content
	if post.Source != domain.SourceInput {
		var meta []string
		if !post.CreatedAt.IsZero() {
			meta = append(meta, post.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		if h := post.Handle(); h != "" {
			meta = append(meta, h)
		}
		if len(meta) > 0 {
			text = strings.Join(meta, " ") + ": " + text
		}
	}
	return formatScore(res, text, width)
}

func formatScore(res *classifier.Result, text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width > 0 {
		text = runewidth.Truncate(text, width, "…")
	}
	pct := int(math.Round(res.Probability * 100))
	return fmt.Sprintf("%+.4f  %3d%%  %-6s  %s", res.Score, pct, res.Label, text)
}
