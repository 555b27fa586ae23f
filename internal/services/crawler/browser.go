package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/censeo/internal/common"
	"github.com/ternarybob/censeo/internal/models"
)

// browserSettleDelay allows late JavaScript to run after network idle.
const browserSettleDelay = 500 * time.Millisecond

// BrowserFetcher renders pages in a headless browser before reading the
// DOM, for sites that build their content with JavaScript. Each page gets
// a fresh tab context, released on every exit path.
type BrowserFetcher struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
	logger        arbor.ILogger
}

// NewBrowserFetcher launches a headless browser and verifies it responds.
func NewBrowserFetcher(cfg common.CrawlerConfig, logger arbor.ILogger) (*BrowserFetcher, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	timeout := cfg.JSRenderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	logger.Info().Str("render_timeout", timeout.String()).Msg("Headless browser initialized")

	return &BrowserFetcher{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// Fetch navigates to the URL, waits for network idle plus a settle delay,
// and returns the rendered DOM.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) *models.CrawlResult {
	start := time.Now()

	tabCtx, tabCancel := chromedp.NewContext(f.browserCtx)
	defer tabCancel()

	runCtx, runCancel := context.WithTimeout(tabCtx, f.timeout)
	defer runCancel()

	// Stop rendering early when the crawl is cancelled.
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	var mu sync.Mutex
	statusCode := 0
	headers := make(map[string]string)
	idle := make(chan struct{}, 1)

	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			// Redirect chains emit several document responses; the
			// last one belongs to the final URL.
			if e.Type == network.ResourceTypeDocument {
				mu.Lock()
				statusCode = int(e.Response.Status)
				for name, value := range e.Response.Headers {
					headers[name] = fmt.Sprintf("%v", value)
				}
				mu.Unlock()
			}
		case *page.EventLifecycleEvent:
			if e.Name == "networkIdle" {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		}
	})

	var html, finalURL string
	err := chromedp.Run(runCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-actionCtx.Done():
				return actionCtx.Err()
			}
		}),
		chromedp.Sleep(browserSettleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	loadTime := time.Since(start).Milliseconds()
	if err != nil {
		return &models.CrawlResult{
			URL:        rawURL,
			FinalURL:   rawURL,
			LoadTimeMS: loadTime,
			Error:      err,
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if statusCode == 0 {
		statusCode = 200
	}
	if finalURL == "" {
		finalURL = rawURL
	}

	return &models.CrawlResult{
		URL:           rawURL,
		FinalURL:      finalURL,
		StatusCode:    statusCode,
		HTML:          html,
		Headers:       headers,
		LoadTimeMS:    loadTime,
		PageSizeBytes: len(html),
	}
}

// Close shuts the browser and its allocator down.
func (f *BrowserFetcher) Close() error {
	f.browserCancel()
	f.allocCancel()
	return nil
}
