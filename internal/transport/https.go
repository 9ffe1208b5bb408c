package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"eppclient/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPSConfig configures the HTTP-over-TLS transport.
type HTTPSConfig struct {
	URL                string
	Timeout            time.Duration
	ClientCertFile     string
	ClientKeyFile      string
	InsecureSkipVerify bool
	UserAgent          string
}

// HTTPSClient posts request documents to the registry's HTTPS endpoint.
// A cookie jar keeps the server's session affinity cookie across calls,
// which the endpoint requires between login and logout.
type HTTPSClient struct {
	url       string
	userAgent string
	client    *http.Client
}

// NewHTTPSClient builds the transport, loading the client certificate when
// one is configured.
func NewHTTPSClient(cfg HTTPSConfig) (*HTTPSClient, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.CodeConfiguration, "https transport requires a server url")
	}
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfiguration, "load client certificate")
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "build cookie jar")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPSClient{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
	}, nil
}

func (c *HTTPSClient) Send(ctx context.Context, body []byte) (*Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "build request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "post request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "read reply body")
	}
	return &Reply{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}
