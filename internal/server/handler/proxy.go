package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ProxyHandler relays requests straight to the upstream API for the few
// endpoints the service does not model. The response body passes through
// untouched; only the API key is attached server-side so it never reaches
// the browser.
type ProxyHandler struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProxyHandler creates a ProxyHandler targeting the given API root.
func NewProxyHandler(baseURL, apiKey string, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Relay forwards the request to the upstream and streams the response back.
// Any relay failure yields a 502 with the upstream's own error envelope
// shape, so browser code can treat proxy and upstream errors uniformly.
// GET/POST /api/opinion/{path...}
func (h *ProxyHandler) Relay(w http.ResponseWriter, r *http.Request) {
	target := h.baseURL + "/" + r.PathValue("path")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		h.relayError(w, r, target, err)
		return
	}
	req.Header.Set("Accept", "application/json")
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if h.apiKey != "" {
		req.Header.Set("apikey", h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.relayError(w, r, target, err)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: proxy copy interrupted",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
	}
}

func (h *ProxyHandler) relayError(w http.ResponseWriter, r *http.Request, target string, err error) {
	h.logger.ErrorContext(r.Context(), "handler: proxy relay failed",
		slog.String("target", target),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"errno":  -1,
		"errmsg": "proxy error",
	})
}
