// Package jaws speaks the JAWS HTTP management API of Server Tech
// iPDU controllers. It provides the transport and the request/response
// codec consumed by the dispatcher in pkg/pdu; all retry policy lives
// there, not here.
package jaws

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 30 * time.Second

type Option func(*Client)

// Client performs single HTTP exchanges against JAWS controllers.
// Credentials are looked up per target host from the secret store;
// they are never mutated after the store is built, so one Client is
// safe to share across all dispatcher workers.
type Client struct {
	client *http.Client
	store  secrets.SecretStore
	scheme string
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		scheme: "https",
		client: &http.Client{
			Timeout: DefaultTimeout,
			// JAWS controllers ship with self-signed certificates, so
			// verification is off unless a CA cert is provided.
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithSecretStore(store secrets.SecretStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func WithScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

func WithCertPool(certPool *x509.CertPool) Option {
	// make sure we have a valid cert pool
	if certPool == nil {
		return func(c *Client) {}
	}
	return func(c *Client) {
		c.client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: certPool,
			},
		}
	}
}

func WithSecureTLS(certPath string) Option {
	cacert, err := os.ReadFile(certPath)
	if err != nil {
		log.Warn().Err(err).Msgf("could not read CA cert at %s", certPath)
		return func(c *Client) {}
	}
	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM(cacert)
	return WithCertPool(certPool)
}

// Send implements pdu.Transport: one request, one raw response. Basic
// auth credentials come from the secret store keyed by target host,
// falling back to the store's default entry.
func (c *Client) Send(ctx context.Context, target pdu.Target, req pdu.Request) (pdu.Response, error) {
	url := fmt.Sprintf("%s://%s/%s", c.scheme, hostForURL(target.Host), req.Path)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewBuffer(req.Body))
	if err != nil {
		return pdu.Response{}, fmt.Errorf("failed to create new HTTP request: %v", err)
	}

	creds := GetCredentials(c.store, target.Host)
	httpReq.SetBasicAuth(creds.Username, creds.Password)
	httpReq.Header.Add("User-Agent", "pductl")
	httpReq.Header.Add("Content-Type", "application/json")
	httpReq.Header.Add("cache-control", "no-cache")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return pdu.Response{}, fmt.Errorf("failed to make request: %v", err)
	}
	b, err := io.ReadAll(res.Body)
	if cerr := res.Body.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("could not close response resource")
	}
	if err != nil {
		return pdu.Response{}, fmt.Errorf("failed to read response body: %v", err)
	}
	return pdu.Response{Status: res.StatusCode, Body: b}, nil
}

// hostForURL makes a target host usable inside a URL while keeping the
// declared form as the display key. IPv6 literals are bracketed and
// any zone suffix is percent-escaped.
func hostForURL(host string) string {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	if strings.Count(trimmed, ":") < 2 {
		// hostname or IPv4, possibly with a port
		return host
	}
	trimmed = strings.ReplaceAll(trimmed, "%", "%25")
	return "[" + trimmed + "]"
}
