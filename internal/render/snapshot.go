package render

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

var (
	headlessMu     sync.Mutex
	headlessProbed bool
	headlessErr    error

	probeHeadless = func(ctx context.Context) error {
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		return chromedp.Run(parent)
	}
)

// EnsureHeadlessAvailable 探测本机 headless Chrome 并缓存结果。
// 因 ctx 超时或取消导致的失败不缓存，下次调用会重新探测。
func EnsureHeadlessAvailable(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	headlessMu.Lock()
	defer headlessMu.Unlock()
	if headlessProbed {
		return headlessErr
	}
	err := probeHeadless(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}
	headlessProbed = true
	headlessErr = err
	return err
}

// renderHTMLToPNG 用 headless Chrome 截取整页 PNG。
func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(parent, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
