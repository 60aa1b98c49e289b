// Package httpclient is the thin adapter over net/http that the download
// controller and its workers use: HEAD for size, ranged GET with a
// streaming body. It keeps no state between calls.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"segfetch/internal/herrors"
)

// ChunkSize is the maximum size of a body chunk yielded by OpenRangedStream,
// matching the 64 KiB ceiling the worker contract names.
const ChunkSize = 64 * 1024

const probeTimeout = 10 * time.Second

// Facade wraps a single *http.Client tuned for many concurrent range
// requests against the same handful of hosts, the same pooling the
// teacher's engine configures for its worker pool.
type Facade struct {
	client    *http.Client
	userAgent string
}

// New builds a Facade with connection reuse across segments of the same
// download (and across downloads to the same host).
func New(userAgent string) *Facade {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
	return &Facade{
		client:    &http.Client{Transport: transport, Timeout: 0},
		userAgent: userAgent,
	}
}

func (f *Facade) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
	return req, nil
}

// ProbeSize performs a HEAD with redirects followed (the default
// http.Client policy) and a 10s timeout. It returns the advertised
// Content-Length, 0 when absent, or a *herrors.ProbeError.
func (f *Facade) ProbeSize(ctx context.Context, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := f.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, herrors.NewProbeError(true, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		hard := herrors.IsHard(err) || errors.As(err, &dnsErr)
		return 0, herrors.NewProbeError(hard, herrors.Friendly(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, herrors.NewProbeError(false, herrors.FriendlyHTTP(resp.StatusCode))
	}

	if resp.ContentLength <= 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

// RangedStream is a streaming response body scoped to one ranged GET.
// Callers must call Close when done reading.
type RangedStream struct {
	resp *http.Response
}

// Read reads up to len(p) bytes, never more than ChunkSize at a time is
// requested by callers per the worker contract.
func (s *RangedStream) Read(p []byte) (int, error) {
	return s.resp.Body.Read(p)
}

// Close releases the underlying connection.
func (s *RangedStream) Close() error {
	return s.resp.Body.Close()
}

// OpenRangedStream issues a GET with a Range header covering
// [start, end]; pass a negative end (model.OpenEnd) to mean
// "bytes=start-" (open-ended). Expects 200 or 206; anything else is a
// *herrors.HttpError.
func (f *Facade) OpenRangedStream(ctx context.Context, url string, start, end int64) (*RangedStream, error) {
	req, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, herrors.NewHTTPError(0, err)
	}

	if end >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	} else {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, herrors.NewHTTPError(0, herrors.Friendly(err))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		status := resp.StatusCode
		resp.Body.Close()
		return nil, herrors.NewHTTPError(status, herrors.FriendlyHTTP(status))
	}

	return &RangedStream{resp: resp}, nil
}
