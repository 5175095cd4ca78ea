// Copyright 2026 The Gatherly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/gatherly/gatherly/internal/observability/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Headers never forwarded to the backend API from the client
var strippedHeaders = []string{"Cookie", "Authorization", csrfHeader}

// ProxyConfig holds backend API settings
type ProxyConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Proxy forwards authorized requests to the backend API with the session's
// credential token as a bearer token.
type Proxy struct {
	target   *url.URL
	rp       *httputil.ReverseProxy
	recorder *metrics.Recorder
}

// NewProxy creates a proxy to cfg.BaseURL
func NewProxy(cfg ProxyConfig, recorder *metrics.Recorder) (*Proxy, error) {
	target, err := url.Parse(cfg.BaseURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Timeout > 0 {
		transport.ResponseHeaderTimeout = cfg.Timeout
	}

	p := &Proxy{target: target, recorder: recorder}
	p.rp = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		Transport:    otelhttp.NewTransport(transport),
		ErrorHandler: p.handleError,
	}
	return p, nil
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.target)
	pr.SetXForwarded()

	for _, h := range strippedHeaders {
		pr.Out.Header.Del(h)
	}
	if sess := GetSession(pr.In.Context()); sess != nil {
		if token := sess.Token(); token != "" {
			pr.Out.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if reqID := middleware.GetReqID(pr.In.Context()); reqID != "" {
		pr.Out.Header.Set(middleware.RequestIDHeader, reqID)
	}
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
		status = http.StatusGatewayTimeout
	}
	slog.WarnContext(r.Context(), "backend request failed",
		logger.Upstream(p.target.Host),
		logger.Path(r.URL.Path),
		logger.Error(err),
	)
	respondError(w, status, "backend unavailable")
}

// ServeHTTP forwards r and records upstream latency
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	p.rp.ServeHTTP(ww, r)

	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		pattern = rctx.RoutePattern()
	}
	p.recorder.RecordUpstream(r.Context(), r.Method+" "+pattern, ww.Status(), time.Since(start).Seconds())
}
