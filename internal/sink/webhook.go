// Package sink delivers computed sessions and insights to external consumers.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/actionsum/focuslens/internal/ports"
)

// Webhook POSTs every notification as JSON. Delivery is asynchronous and failures
// are only logged.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.Notifier = (*Webhook)(nil)

func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify is a no-op once Close has been called.
func (w *Webhook) Notify(ctx context.Context, n ports.Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		w.logger.Warn("failed to encode notification", slog.String("kind", string(n.Kind)), slog.Any("error", err))
		return
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("webhook closed, dropping notification", slog.String("kind", string(n.Kind)))
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		if err := w.post(context.WithoutCancel(ctx), body); err != nil {
			w.logger.Warn("webhook delivery failed",
				slog.String("kind", string(n.Kind)),
				slog.String("url", w.url),
				slog.Any("error", err))
		}
	}()
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "focuslens")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Close stops accepting notifications and waits for in-flight deliveries.
func (w *Webhook) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
