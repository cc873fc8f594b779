package importers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"rite/internal/config"
	"rite/internal/etl"
	"rite/internal/model"
)

// ── HTTP Importer ──────────────────────────────────────────
// Fetches JSON from a REST endpoint. With next_path set, the value found
// there in each response is the URL of the next page; paging stops when
// it is missing or empty, or after max_pages requests.

type httpImporter struct {
	etl.NoReset
	url      string
	method   string
	headers  map[string]string
	body     string
	dataPath string
	nextPath string
	maxPages int

	client  *http.Client
	limiter *rate.Limiter
}

func init() {
	etl.RegisterImporter(etl.ComponentSpec{
		Name:        "http",
		Description: "Reads records from a JSON REST API",
		ConfigKeys: []etl.ConfigKey{
			{Key: "url", Required: true, Help: "Full URL to fetch"},
			{Key: "method", Default: "GET"},
			{Key: "headers", Help: `JSON object of headers, e.g. {"Authorization": "Bearer xxx"}`},
			{Key: "body", Help: "Request body"},
			{Key: "data_path", Help: "Dot-separated path to the array in the response (e.g. 'data.items')"},
			{Key: "next_path", Help: "Dot-separated path to the next page URL"},
			{Key: "max_pages", Default: "100", Help: "Upper bound on requests when paging"},
			{Key: "rate", Default: "0", Help: "Requests per second; 0 means unlimited"},
			{Key: "timeout", Default: "30", Help: "Per-request timeout in seconds"},
		},
	}, func() etl.Importer { return &httpImporter{} })
}

func (s *httpImporter) Init(cfg *config.Configuration) error {
	rawURL, err := cfg.GetResult("url")
	if err != nil {
		return err
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	s.url = rawURL
	s.method = strings.ToUpper(cfg.GetOr("method", http.MethodGet))
	s.body = cfg.GetOr("body", "")
	s.dataPath = cfg.GetOr("data_path", "")
	s.nextPath = cfg.GetOr("next_path", "")

	if raw := cfg.GetOr("headers", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.headers); err != nil {
			return fmt.Errorf("headers must be a JSON object of strings: %w", err)
		}
	}

	if s.maxPages, err = config.Optional(cfg, "max_pages", 100); err != nil {
		return err
	}
	perSecond, err := config.Optional(cfg, "rate", 0.0)
	if err != nil {
		return err
	}
	timeout, err := config.Optional(cfg, "timeout", 30)
	if err != nil {
		return err
	}

	s.client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return nil
}

func (s *httpImporter) Read(ctx context.Context, h etl.RecordHandler) error {
	next := s.url
	for page := 1; next != "" && page <= s.maxPages; page++ {
		tree, err := s.fetch(ctx, next)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}

		data, err := navigatePath(tree, s.dataPath)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if _, err := emitTree(data, h); err != nil {
			return err
		}

		if s.nextPath == "" {
			return nil
		}
		if next, err = nextURL(tree, s.nextPath, next); err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
	}
	return nil
}

func (s *httpImporter) fetch(ctx context.Context, target string) (any, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if s.body != "" {
		bodyReader = strings.NewReader(s.body)
	}
	req, err := http.NewRequestWithContext(ctx, s.method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	tree, err := model.DecodeTree(model.NewDecoder(resp.Body))
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return tree, nil
}

// nextURL reads the next page link at path, resolved against current.
// A missing, null or empty link ends paging.
func nextURL(tree any, path, current string) (string, error) {
	v, err := navigatePath(tree, path)
	if err != nil || v == nil {
		return "", nil
	}
	link, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("next page link at %q is %T, not a string", path, v)
	}
	if link == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid next page link: %w", err)
	}
	resolved := base.ResolveReference(ref).String()
	if resolved == current {
		return "", nil
	}
	return resolved, nil
}
