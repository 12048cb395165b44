package submit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// HTTP is the best-effort real submitter: it fetches the signup page, scrapes
// the hidden-input tokens the form carries, and posts the registration as a
// regular form submission. No anti-automation evasion is attempted; a target
// that rejects plain form posts simply fails.
type HTTP struct {
	signupURL string
	client    *http.Client
	logger    *slog.Logger
}

// HTTPOption configures an HTTP submitter.
type HTTPOption func(*HTTP)

// WithHTTPClient sets a custom client (cookies, proxy, timeouts).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithHTTPLogger sets a custom logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) { h.logger = l }
}

// NewHTTP creates an HTTP submitter for the given signup page URL.
func NewHTTP(signupURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		signupURL: signupURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Submit fetches the signup page, merges its hidden tokens with the payload
// fields, and posts the form. Responses map onto the fixed error set.
func (h *HTTP) Submit(ctx context.Context, p Payload) (*Receipt, error) {
	tokens, action, err := h.scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit: scrape tokens: %w", ErrNetwork)
	}

	form := url.Values{}
	for k, v := range tokens {
		form.Set(k, v)
	}
	form.Set("FirstName", p.FirstName)
	form.Set("LastName", p.LastName)
	form.Set("MemberName", p.Email)
	form.Set("Password", p.Password)
	form.Set("BirthYear", p.BirthYear)
	form.Set("BirthMonth", p.BirthMonth)
	form.Set("BirthDay", p.BirthDay)
	form.Set("Country", p.Country)

	target := h.signupURL
	if action != "" {
		if u, err := url.Parse(h.signupURL); err == nil {
			if a, err := u.Parse(action); err == nil {
				target = a.String()
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("submit: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit: post form: %w", ErrNetwork)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("submit: status %d: %w", resp.StatusCode, ErrServer)
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "taken") || strings.Contains(lower, "unavailable") {
		return nil, ErrEmailTaken
	}

	h.logger.Info("submit: form posted", "url", target, "status", resp.StatusCode)
	return &Receipt{
		Email:             p.Email,
		AccountID:         "",
		Message:           "form submitted, verification pending",
		NeedsVerification: true,
	}, nil
}

// scrape GETs the signup page and returns its hidden input name/value pairs
// plus the form's action attribute.
func (h *HTTP) scrape(ctx context.Context) (map[string]string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.signupURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", err
	}

	tokens := make(map[string]string)
	var action string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				if a := attr(n, "action"); action == "" && a != "" {
					action = a
				}
			case "input":
				if attr(n, "type") == "hidden" {
					if name := attr(n, "name"); name != "" {
						tokens[name] = attr(n, "value")
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	h.logger.Debug("submit: scraped tokens", "count", len(tokens), "action", action)
	return tokens, action, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
