// Package proxy implements the credential-injecting relay that lets a
// browser reach the property management API without holding its key.
//
// Requests arrive at / with the upstream path in ?path=. The remaining
// query parameters, the method, the content type and (except for GET) the
// body are forwarded with the API key added. Every response carries
// permissive CORS headers.
package proxy

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// APIKeyHeader carries the credential upstream.
	APIKeyHeader = "X-Api-Key"

	defaultContentType = "application/json"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type, X-Api-Key",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, PATCH, OPTIONS",
}

// Config configures a Proxy.
type Config struct {
	// Target is the upstream base URL, e.g. https://api.apex27.co.uk.
	Target string

	// APIKey is injected into every forwarded request.
	APIKey string

	// Base64Body encodes response bodies as base64 and marks them with
	// Content-Transfer-Encoding: base64.
	Base64Body bool

	// Transport overrides the upstream round tripper. Optional.
	Transport http.RoundTripper
}

// Proxy forwards requests to the upstream API.
type Proxy struct {
	target     *url.URL
	apiKey     string
	base64Body bool
	relay      *httputil.ReverseProxy
	logger     *slog.Logger
}

// New creates a Proxy.
func New(cfg Config, logger *slog.Logger) (*Proxy, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("proxy: API key is required")
	}
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("proxy: parse target: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("proxy: target %q must be an absolute URL", cfg.Target)
	}

	p := &Proxy{
		target:     target,
		apiKey:     cfg.APIKey,
		base64Body: cfg.Base64Body,
		logger:     logger,
	}
	p.relay = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
		Transport:      cfg.Transport,
	}
	return p, nil
}

// ServeHTTP relays r upstream. OPTIONS requests are answered locally.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for k, v := range corsHeaders {
		w.Header().Set(k, v)
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	start := time.Now()
	p.relay.ServeHTTP(w, r)
	p.logger.Debug("Relayed request",
		"method", r.Method,
		"path", TargetPath(r.URL.Query()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// TargetPath returns the upstream path named by ?path=, defaulting to "/".
func TargetPath(q url.Values) string {
	path := q.Get("path")
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	in := pr.In
	out := pr.Out

	query := in.URL.Query()
	path := TargetPath(query)
	query.Del("path")

	out.URL.Scheme = p.target.Scheme
	out.URL.Host = p.target.Host
	out.URL.Path = strings.TrimSuffix(p.target.Path, "/") + path
	out.URL.RawPath = ""
	out.URL.RawQuery = query.Encode()
	out.Host = p.target.Host

	// Only the key and content type are meaningful upstream
	contentType := in.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	out.Header = http.Header{}
	out.Header.Set(APIKeyHeader, p.apiKey)
	out.Header.Set("Content-Type", contentType)
	if accept := in.Header.Get("Accept"); accept != "" {
		out.Header.Set("Accept", accept)
	}

	if in.Method == http.MethodGet {
		out.Body = http.NoBody
		out.ContentLength = 0
	}
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	for k := range resp.Header {
		if strings.HasPrefix(k, "Access-Control-") {
			resp.Header.Del(k)
		}
	}
	if resp.Header.Get("Content-Type") == "" {
		resp.Header.Set("Content-Type", defaultContentType)
	}

	if !p.base64Body {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read upstream body: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	resp.Body = io.NopCloser(bytes.NewReader([]byte(encoded)))
	resp.ContentLength = int64(len(encoded))
	resp.Header.Set("Content-Length", strconv.Itoa(len(encoded)))
	resp.Header.Set("Content-Transfer-Encoding", "base64")
	resp.Header.Del("Content-Encoding")
	return nil
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("Upstream request failed",
		"method", r.Method,
		"path", TargetPath(r.URL.Query()),
		"error", err,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
