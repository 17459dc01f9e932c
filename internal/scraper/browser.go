// Copyright 2025 James Ross
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
)

// browserWindowWidth and browserWindowHeight fix the headless viewport per
// §4.2 item 1.
const (
	browserWindowWidth  = 1920
	browserWindowHeight = 1080
)

// Session owns one headless Chrome context for the duration of a single
// job. Sessions are never shared across concurrent jobs — page state is
// not reentrant, per §5.
type Session struct {
	allocCtx   context.Context
	cancelAlloc context.CancelFunc
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewSession opens a fresh headless browser context. When proxy is present
// it is passed to Chrome via --proxy-server.
func NewSession(ctx context.Context, proxy *ProxyConfig) (*Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.Headless,
		chromedp.WindowSize(browserWindowWidth, browserWindowHeight),
	)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)

	if proxy != nil && proxy.URL != "" {
		opts = append(opts, chromedp.ProxyServer(proxy.URL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, wrapDriverError("launch headless session", err)
	}

	return &Session{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		ctx:         tabCtx,
		cancel:      cancel,
	}, nil
}

func (s *Session) Close() {
	s.cancel()
	s.cancelAlloc()
}

// NavigateAndWait loads url and blocks until selector is present or
// timeout elapses. Returns the fully rendered HTML document.
func (s *Session) NavigateAndWait(url, selector string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", wrapNetworkError(fmt.Sprintf("navigate %s", url), err)
	}
	return html, nil
}

// HumanizedDelay sleeps a uniformly random duration in [2000ms, 5000ms],
// per §4.2 item 3, or returns early if ctx is cancelled.
func HumanizedDelay(ctx context.Context) {
	d := time.Duration(2000+rand.Intn(3000)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
