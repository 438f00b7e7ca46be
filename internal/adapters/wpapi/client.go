// Package wpapi reads repeater rows from the form-fields REST endpoint.
// Rows are served page by page and exposed as a domain.RowCursor.
package wpapi

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_blocks/internal/adapters/observability"
	"review_blocks/internal/domain"
)

const service = "fields_api"

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("fields API base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// RowsPage is one page of the fields endpoint.
type RowsPage struct {
	Rows    []domain.RawRow `json:"rows"`
	HasMore bool            `json:"has_more"`
}

// ---- Public API ----

// GetRowsPage fetches page n (1-based) of a repeater field on an object.
func (c *Client) GetRowsPage(ctx context.Context, object, field string, n int) (RowsPage, error) {
	u := fmt.Sprintf("%s/fields/%s/%s?page=%d", c.base, url.PathEscape(object), url.PathEscape(field), n)
	var out RowsPage
	if err := c.get(ctx, u, "fields", &out); err != nil {
		return RowsPage{}, err
	}
	return out, nil
}

// GetTerm resolves a taxonomy id through the same API.
func (c *Client) GetTerm(ctx context.Context, taxonomy string, id int64) (domain.Term, error) {
	u := fmt.Sprintf("%s/terms/%s/%d", c.base, url.PathEscape(taxonomy), id)
	var t domain.Term
	if err := c.get(ctx, u, "terms", &t); err != nil {
		return domain.Term{}, err
	}
	if t.ID == 0 {
		t.ID = id
	}
	if t.Taxonomy == "" {
		t.Taxonomy = taxonomy
	}
	return t, nil
}

// OpenRows returns a cursor that pulls pages lazily. The first page is
// fetched up front so a missing field surfaces as ErrNotFound here.
func (c *Client) OpenRows(ctx context.Context, object, field string) (domain.RowCursor, error) {
	first, err := c.GetRowsPage(ctx, object, field, 1)
	if err != nil {
		return nil, err
	}
	return &cursor{c: c, object: object, field: field, page: 1, buf: first.Rows, more: first.HasMore && len(first.Rows) > 0}, nil
}

// maxPages stops a cursor whose server keeps reporting more pages.
const maxPages = 1000

type cursor struct {
	c      *Client
	object string
	field  string
	page   int
	buf    []domain.RawRow
	more   bool
	row    domain.RawRow
	err    error
}

// Next advances to the next row. An empty page ends the walk even when the
// server claims there is more.
func (cur *cursor) Next(ctx context.Context) bool {
	if len(cur.buf) == 0 {
		if !cur.more || cur.err != nil || cur.page >= maxPages {
			return false
		}
		cur.page++
		p, err := cur.c.GetRowsPage(ctx, cur.object, cur.field, cur.page)
		if err != nil {
			cur.err = err
			return false
		}
		cur.buf, cur.more = p.Rows, p.HasMore && len(p.Rows) > 0
		if len(cur.buf) == 0 {
			return false
		}
	}
	cur.row, cur.buf = cur.buf[0], cur.buf[1:]
	return true
}

func (cur *cursor) Row() domain.RawRow { return cur.row }
func (cur *cursor) Err() error         { return cur.err }

// ---- Internals ----

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-blocks/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			// context-aware sleep before retry
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			dec := json.NewDecoder(resp.Body)
			dec.UseNumber()
			err := dec.Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			// success, empty body
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("fields api %d: %w", resp.StatusCode, domain.ErrUnauthorized)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempt succeeded")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
