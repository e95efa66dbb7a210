package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"specimenpro/internal/status"
	"specimenpro/models"
)

// LinkChecker verifies that the media an event references can be fetched.
// http and https URLs are probed with HEAD; anything without a scheme is a
// path under the site root and must exist on disk.
type LinkChecker struct {
	client   *resty.Client
	siteRoot string
}

func NewLinkChecker(siteRoot string, timeout time.Duration, retries int) *LinkChecker {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	return &LinkChecker{client: client, siteRoot: siteRoot}
}

// CheckEvent reports one field error per unreachable reference. Each distinct
// reference is probed once per call.
func (c *LinkChecker) CheckEvent(ctx context.Context, e *models.Event) status.ValidationErrors {
	var errs status.ValidationErrors
	seen := map[string]error{}
	check := func(field, ref string) {
		if ref == "" {
			return
		}
		err, ok := seen[ref]
		if !ok {
			err = c.Check(ctx, ref)
			seen[ref] = err
		}
		if err != nil {
			errs = append(errs, status.FieldError{Field: field, Reason: err.Error()})
		}
	}

	check("imageUrl", e.ImageURL)
	for i, s := range e.Specimens {
		check(fmt.Sprintf("specimens[%d].photoUrl", i), s.PhotoURL)
		check(fmt.Sprintf("specimens[%d].audioUrl", i), s.AudioURL)
	}
	return errs
}

// Check probes a single reference.
func (c *LinkChecker) Check(ctx context.Context, ref string) error {
	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.checkRemote(ctx, ref)
	case "":
		return c.checkLocal(u.Path)
	}
	return fmt.Errorf("unsupported scheme %q", u.Scheme)
}

func (c *LinkChecker) checkRemote(ctx context.Context, ref string) error {
	resp, err := c.client.R().SetContext(ctx).Head(ref)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	if resp.StatusCode() == http.StatusMethodNotAllowed {
		resp, err = c.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(ref)
		if err != nil {
			return fmt.Errorf("unreachable: %w", err)
		}
		resp.RawBody().Close()
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("unreachable (HTTP %d)", resp.StatusCode())
	}
	return nil
}

func (c *LinkChecker) checkLocal(p string) error {
	rel := filepath.FromSlash(strings.TrimPrefix(p, "/"))
	if rel == "" || strings.HasPrefix(filepath.Clean(rel), "..") {
		return fmt.Errorf("path %q is outside the site root", p)
	}
	info, err := os.Stat(filepath.Join(c.siteRoot, rel))
	if err != nil {
		return fmt.Errorf("not found under site root: %s", p)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}
