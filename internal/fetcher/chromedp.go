package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeDPRenderer drives a headless browser and waits for the network to go
// quiet before capturing the DOM, so client-rendered overlays and modals are
// present in the returned HTML.
type ChromeDPRenderer struct {
	idleAfter time.Duration

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewChromeDPRenderer starts a browser allocator shared by all renders.
func NewChromeDPRenderer(idleAfter time.Duration, headless bool) (*ChromeDPRenderer, error) {
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeDPRenderer{
		idleAfter: idleAfter,
		allocCtx:  allocCtx,
		cancel:    cancel,
	}, nil
}

// Render navigates to the URL in a fresh tab, waits for network idle, and
// returns the outer HTML of the settled document.
func (r *ChromeDPRenderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	idle := waitNetworkIdle(tabCtx, r.idleAfter)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
	); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-tabCtx.Done():
		return "", tabCtx.Err()
	}

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("capture DOM of %s: %w", url, err)
	}
	return html, nil
}

// Close tears down the browser allocator.
func (r *ChromeDPRenderer) Close() error {
	r.cancel()
	return nil
}

// waitNetworkIdle returns a channel that closes once no request has been in
// flight for the idle window. Requests that started before the listener
// attached are ignored; the timer resets on every response or failure.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idle := make(chan struct{})

	var (
		mu       sync.Mutex
		closed   bool
		inflight = map[network.RequestID]struct{}{}
	)
	timer := time.AfterFunc(idleAfter, func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(idle)
		}
	})

	reset := func() {
		if closed {
			return
		}
		if len(inflight) == 0 {
			timer.Reset(idleAfter)
		} else {
			timer.Stop()
		}
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			inflight[e.RequestID] = struct{}{}
			timer.Stop()
		case *network.EventLoadingFinished:
			delete(inflight, e.RequestID)
			reset()
		case *network.EventLoadingFailed:
			delete(inflight, e.RequestID)
			reset()
		}
	})

	return idle
}
