// Package volume implements the HTTP client the master uses to talk
// to stateless volume servers: PUT/DELETE with known length and MD5,
// and GET for master-driven replica copying. It never proxies reads
// for clients — that path is a redirect, not handled here.
package volume

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/zeebo/errs"
)

// Class is the error class for this package.
var Class = errs.Class("volume")

// ErrRemoteStatus is returned when a volume responds with an
// unexpected status code.
var ErrRemoteStatus = errs.Class("unexpected remote status")

// ErrRemoteTransport is returned when a volume is unreachable or the
// request otherwise fails before a status code is seen.
var ErrRemoteTransport = errs.Class("remote transport error")

// Client issues PUT/DELETE/GET against volume servers over a shared,
// persistent connection pool bounded per host, following the pool
// tuning original_source/tools/thrasher-read.go applies to
// http.DefaultTransport, made explicit and owned by this Client rather
// than mutating the process-global default transport.
type Client struct {
	http *http.Client
}

// New builds a Client whose Transport keeps up to maxIdlePerHost idle
// connections open per volume host, suitable for streaming many
// concurrent large-body PUTs without reconnecting for each one.
func New(maxIdlePerHost int, requestTimeout time.Duration) *Client {
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = 100
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

func volumeURL(volumeHost, path string) string {
	return fmt.Sprintf("http://%s%s", volumeHost, path)
}

// PutBlob issues an HTTP PUT of body (length bytes, labeled with
// md5Hex) to volumeHost/path. Success is 201 or 204. body is streamed,
// never buffered in full.
func (c *Client) PutBlob(ctx context.Context, volumeHost, path string, length int64, md5Hex string, body io.Reader) error {
	url := volumeURL(volumeHost, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return Class.Wrap(err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Length", fmt.Sprintf("%d", length))
	req.Header.Set("Content-MD5", md5Hex)

	resp, err := c.http.Do(req)
	if err != nil {
		return ErrRemoteTransport.Wrap(err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return ErrRemoteStatus.New("PUT %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// DeleteBlob issues an HTTP DELETE of volumeHost/path. Success is 204.
func (c *Client) DeleteBlob(ctx context.Context, volumeHost, path string) error {
	url := volumeURL(volumeHost, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return Class.Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ErrRemoteTransport.Wrap(err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return ErrRemoteStatus.New("DELETE %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// GetBlob issues an HTTP GET of volumeHost/path for master-driven
// replica copying. The caller owns the returned body and must close it.
// This is never used to proxy a client's read — GET/HEAD redirect the
// client directly to the volume instead.
func (c *Client) GetBlob(ctx context.Context, volumeHost, path string) (io.ReadCloser, int64, error) {
	url := volumeURL(volumeHost, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, Class.Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, ErrRemoteTransport.Wrap(err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, 0, ErrRemoteStatus.New("GET %s: status %d", url, resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}
