// Package ingest scrapes platform documentation pages into the local docs
// corpus. It runs as an offline tool, not in the serving path, and keeps its
// own structured logger.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Config configures one ingestion run.
type Config struct {
	OutputDir   string
	Concurrency int
	Timeout     time.Duration
	UseBrowser  bool // render JS-heavy pages through a headless browser
	UserAgent   string
}

// Ingestor fetches documentation pages and writes extracted text into the
// docs corpus directory.
type Ingestor struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger

	browser *rod.Browser
}

// New creates an ingestor.
func New(cfg Config, log *zap.Logger) (*Ingestor, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "askbot-ingest/1.0"
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Ingestor{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

// Run fetches every URL concurrently and writes one markdown file per page.
// Individual page failures are logged and skipped; only systemic failures
// (browser launch, context cancellation) abort the run.
func (in *Ingestor) Run(ctx context.Context, urls []string) error {
	if in.cfg.UseBrowser {
		if err := in.startBrowser(ctx); err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer in.browser.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Concurrency)

	for _, pageURL := range urls {
		g.Go(func() error {
			if err := in.ingestPage(ctx, pageURL); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				in.log.Warn("page skipped", zap.String("url", pageURL), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	in.log.Info("ingestion complete", zap.Int("pages", len(urls)))
	return nil
}

func (in *Ingestor) startBrowser(ctx context.Context) error {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return err
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return err
	}
	in.browser = browser
	return nil
}

func (in *Ingestor) ingestPage(ctx context.Context, pageURL string) error {
	start := time.Now()

	var rawHTML string
	var err error
	if in.cfg.UseBrowser {
		rawHTML, err = in.fetchRendered(pageURL)
	} else {
		rawHTML, err = in.fetchStatic(ctx, pageURL)
	}
	if err != nil {
		return err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)
	sections := extractSections(doc)
	if len(sections) == 0 {
		return fmt.Errorf("no content extracted")
	}

	outPath := filepath.Join(in.cfg.OutputDir, fileNameFor(pageURL))
	if err := writeDoc(outPath, title, pageURL, sections); err != nil {
		return err
	}

	in.log.Info("page ingested",
		zap.String("url", pageURL),
		zap.String("file", outPath),
		zap.Int("sections", len(sections)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (in *Ingestor) fetchStatic(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", in.cfg.UserAgent)

	resp, err := in.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (in *Ingestor) fetchRendered(pageURL string) (string, error) {
	page, err := in.browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	return page.HTML()
}

// writeDoc writes a page's sections as a markdown corpus file. One blank
// line between sections keeps them as separate search snippets.
func writeDoc(path, title, source string, sections []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nSource: %s\n\n", title, source)
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteByte('\n')

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// extractTitle returns the page's <title> text.
func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	if title == "" {
		title = "Untitled"
	}
	return title
}

// extractSections pulls paragraph-sized text blocks from content elements,
// skipping navigation and scripts.
func extractSections(doc *html.Node) []string {
	var sections []string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			case "p", "li", "h1", "h2", "h3", "pre":
				text := textContent(n)
				if len(text) >= 40 {
					sections = append(sections, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return sections
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// fileNameFor derives a stable markdown filename from a URL.
func fileNameFor(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "page.md"
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		name = u.Host
	}
	name = strings.NewReplacer("/", "_", ".", "_").Replace(name)
	return name + ".md"
}
