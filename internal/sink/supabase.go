package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/metrics"
	"retail-sync/inventory-sync/internal/util"
)

// ErrUpsertFailed marks a batch the destination did not acknowledge. The run
// aborts on the first one; batches already accepted stay committed.
var ErrUpsertFailed = errors.New("destination upsert failed")

// Client writes normalized records to the destination store's REST interface
// with merge-duplicates upsert semantics on a declared conflict key.
type Client struct {
	baseURL    string
	serviceKey string
	batchSize  int
	client     *http.Client
}

func New(cfg config.DestinationConfig) *Client {
	bs := cfg.BatchSize
	if bs <= 0 {
		bs = 500
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		batchSize:  bs,
		client:     util.NewHTTPClient(cfg.Timeout),
	}
}

// Records adapts a typed record slice for Upsert.
func Records[T any](in []T) []any {
	out := make([]any, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

func accepted(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent
}

// Upsert pushes records to one table in fixed-size batches. Conflicts on the
// declared key merge into the existing row instead of failing, which is what
// makes reruns of the same source filter safe.
func (c *Client) Upsert(ctx context.Context, table string, conflictKey []string, records []any) error {
	if len(records) == 0 {
		log.Printf("sink: %s: nothing to upsert", table)
		return nil
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?on_conflict=%s",
		c.baseURL, table, url.QueryEscape(strings.Join(conflictKey, ",")))

	batches := 0
	for start := 0; start < len(records); start += c.batchSize {
		end := start + c.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := c.push(ctx, endpoint, table, batch); err != nil {
			return err
		}
		batches++
		metrics.Inc("records_upserted_total", map[string]string{"table": table}, float64(len(batch)))
	}

	log.Printf("sink: %s: upserted %d records in %d batch(es)", table, len(records), batches)
	return nil
}

func (c *Client) push(ctx context.Context, endpoint, table string, batch []any) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("%w: %s: encode batch: %v", ErrUpsertFailed, table, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpsertFailed, table, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpsertFailed, table, err)
	}
	defer resp.Body.Close()

	if !accepted(resp.StatusCode) {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		sample, _ := json.Marshal(batch[0])
		return fmt.Errorf("%w: table=%s url=%s status=%d body=%q sample=%s",
			ErrUpsertFailed, table, endpoint, resp.StatusCode, snippet(raw), sample)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
