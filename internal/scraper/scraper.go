// Package scraper collects assessment records from the vendor's product
// catalog. The catalog is a JavaScript-rendered site, so pages are rendered
// in headless Chrome before parsing.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/yamori/assessrec/internal/catalog"
)

const (
	// defaultUserAgent identifies the crawler as a desktop browser; the
	// catalog serves a degraded page to unknown agents.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// pageSize is the catalog's listing page size.
	pageSize = 12

	// maxListingPages caps pagination as a runaway guard.
	maxListingPages = 60

	// fetchRetries is the number of attempts per page.
	fetchRetries = 3
)

// Config holds scraper configuration.
type Config struct {
	// BaseURL is the catalog listing URL.
	BaseURL string

	// PageTimeout bounds rendering of a single page.
	PageTimeout time.Duration

	// Logger for progress reporting.
	Logger *slog.Logger
}

// Scraper crawls the product catalog into assessment records.
type Scraper struct {
	baseURL     *url.URL
	pageTimeout time.Duration
	logger      *slog.Logger
}

// New creates a Scraper.
func New(cfg Config) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}

	timeout := cfg.PageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scraper{
		baseURL:     base,
		pageTimeout: timeout,
		logger:      logger,
	}, nil
}

// Scrape walks the catalog listing pages, then visits each product page for
// its description and attributes. Records are returned in discovery order.
func (s *Scraper) Scrape(ctx context.Context) ([]catalog.Record, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	entries, err := s.crawlListings(browserCtx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog listing crawled", "products", len(entries))

	records := make([]catalog.Record, 0, len(entries))
	for i, entry := range entries {
		rec, err := s.scrapeProduct(browserCtx, entry)
		if err != nil {
			// A single broken product page should not lose the crawl.
			s.logger.Warn("skipping product", "url", entry.URL, "error", err)
			continue
		}
		records = append(records, rec)

		if (i+1)%25 == 0 {
			s.logger.Info("scrape progress", "done", i+1, "total", len(entries))
		}
	}

	if err := catalog.Validate(records); err != nil {
		return nil, fmt.Errorf("scraped catalog invalid: %w", err)
	}
	return records, nil
}

// crawlListings pages through the catalog until a page yields no new products.
func (s *Scraper) crawlListings(ctx context.Context) ([]listingEntry, error) {
	var all []listingEntry
	seen := make(map[string]struct{})

	for page := 0; page < maxListingPages; page++ {
		pageURL := s.listingURL(page)

		pageHTML, err := s.fetchRendered(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch listing page %d: %w", page, err)
		}

		entries, err := parseListing(pageHTML, s.baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse listing page %d: %w", page, err)
		}

		fresh := 0
		for _, e := range entries {
			if _, dup := seen[e.URL]; dup {
				continue
			}
			seen[e.URL] = struct{}{}
			all = append(all, e)
			fresh++
		}

		if fresh == 0 {
			break
		}
	}

	return all, nil
}

// scrapeProduct renders one product page and assembles the full record.
func (s *Scraper) scrapeProduct(ctx context.Context, entry listingEntry) (catalog.Record, error) {
	pageHTML, err := s.fetchRendered(ctx, entry.URL)
	if err != nil {
		return catalog.Record{}, err
	}

	details, err := parseProduct(pageHTML)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("failed to parse product page: %w", err)
	}

	id := slugFromURL(entry.URL)
	if id == "" {
		return catalog.Record{}, fmt.Errorf("no usable slug in url %s", entry.URL)
	}

	return catalog.Record{
		ID:          id,
		Name:        entry.Name,
		URL:         entry.URL,
		Description: details.Description,
		TestTypes:   extractTestTypes(entry.Name + " " + details.Description),
		Duration:    details.Duration,
		Adaptive:    details.Adaptive,
		Remote:      details.Remote,
	}, nil
}

// fetchRendered navigates to a URL in headless Chrome and returns the
// rendered HTML, retrying with exponential backoff.
func (s *Scraper) fetchRendered(ctx context.Context, pageURL string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		pageCtx, cancel := context.WithTimeout(ctx, s.pageTimeout)

		var pageHTML string
		err := chromedp.Run(pageCtx,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{
				"User-Agent": defaultUserAgent,
			}),
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body"),
			chromedp.OuterHTML("html", &pageHTML),
		)
		cancel()

		if err == nil {
			return pageHTML, nil
		}
		lastErr = err
		s.logger.Warn("fetch attempt failed", "url", pageURL, "attempt", attempt+1, "error", err)
	}

	return "", fmt.Errorf("failed to fetch %s after %d attempts: %w", pageURL, fetchRetries, lastErr)
}

// listingURL builds the paginated listing URL.
func (s *Scraper) listingURL(page int) string {
	if page == 0 {
		return s.baseURL.String()
	}
	u := *s.baseURL
	q := u.Query()
	q.Set("start", fmt.Sprintf("%d", page*pageSize))
	u.RawQuery = q.Encode()
	return u.String()
}
