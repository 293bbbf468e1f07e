package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	consts "github.com/khanhnv2901/seca-headers/internal/shared/constants"
	apperrors "github.com/khanhnv2901/seca-headers/internal/shared/errors"
)

// BrowserFrameProber embeds the target in an iframe of a headless Chrome page
// and inspects where the child frame ended up.
type BrowserFrameProber struct {
	// Wait is how long the frame is given to load (default FrameProbeTimeout).
	Wait time.Duration
	// ExecPath overrides the Chrome binary.
	ExecPath string
}

// Probe returns VerdictVulnerable when the frame rendered the target,
// VerdictProtected when the browser refused it, and VerdictInconclusive
// when the frame never settled.
func (b *BrowserFrameProber) Probe(ctx context.Context, target string) (string, error) {
	wait := b.Wait
	if wait <= 0 {
		wait = consts.FrameProbeTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// keep cross-origin frames in the page's frame tree
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, wait+10*time.Second)
	defer cancelTimeout()

	src, err := json.Marshal(target)
	if err != nil {
		return VerdictInconclusive, fmt.Errorf("encode target: %w", err)
	}
	inject := fmt.Sprintf(`(function() {
		var f = document.createElement('iframe');
		f.src = %s;
		f.width = 800;
		f.height = 600;
		document.body.appendChild(f);
		return true;
	})()`, src)

	var injected bool
	var frameURLs []string
	err = chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(inject, &injected),
		chromedp.Sleep(wait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			frameURLs = childFrameURLs(tree)
			return nil
		}),
	)
	if err != nil {
		return VerdictInconclusive, fmt.Errorf("%w: %v", apperrors.ErrBrowserUnavailable, err)
	}

	return frameVerdict(frameURLs), nil
}

func childFrameURLs(tree *page.FrameTree) []string {
	if tree == nil {
		return nil
	}
	var urls []string
	for _, child := range tree.ChildFrames {
		if child == nil || child.Frame == nil {
			continue
		}
		urls = append(urls, frameURL(child.Frame))
	}
	return urls
}

func frameURL(f *cdp.Frame) string {
	if f.UnreachableURL != "" {
		return "chrome-error://" + f.UnreachableURL
	}
	return f.URL
}

// frameVerdict maps the probe frame's final URL to a verdict. Chrome swaps a
// refused frame for a chrome-error page; a frame left at about:blank never
// navigated and proves nothing.
func frameVerdict(urls []string) string {
	if len(urls) == 0 {
		return VerdictInconclusive
	}
	u := urls[0]
	switch {
	case strings.HasPrefix(u, "chrome-error://"):
		return VerdictProtected
	case u == "" || u == "about:blank":
		return VerdictInconclusive
	default:
		return VerdictVulnerable
	}
}
