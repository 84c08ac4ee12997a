package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/spotmap/internal/spots"
)

// photoFetcher downloads a remote image.
type photoFetcher func(ctx context.Context, rawURL string) (spots.PhotoFile, error)

// loadPhoto turns a data URI or http(s) URL into an inline photo data URL.
func (s *Server) loadPhoto(ctx context.Context, raw string) (string, error) {
	var (
		f   spots.PhotoFile
		err error
	)
	if strings.HasPrefix(raw, "data:") {
		f, err = decodeDataURI(raw)
	} else {
		f, err = s.fetch(ctx, raw)
	}
	if err != nil {
		return "", err
	}
	return spots.ProcessPhoto(ctx, f)
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) (spots.PhotoFile, error) {
	mime, data, err := spots.DecodePhoto(uri)
	if err != nil {
		return spots.PhotoFile{}, err
	}
	return spots.PhotoFile{
		Name:        uuid.New().String(),
		ContentType: strings.Split(mime, ";")[0],
		Size:        int64(len(data)),
		Content:     bytes.NewReader(data),
	}, nil
}

// fetchHTTP downloads an image from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) (spots.PhotoFile, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return spots.PhotoFile{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return spots.PhotoFile{}, fmt.Errorf("unsupported scheme: %s (only data, http, https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return spots.PhotoFile{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return spots.PhotoFile{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return spots.PhotoFile{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return spots.PhotoFile{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Read here so the body can be closed; ProcessPhoto enforces the size cap.
	data, err := io.ReadAll(io.LimitReader(resp.Body, spots.MaxPhotoBytes+1))
	if err != nil {
		return spots.PhotoFile{}, fmt.Errorf("read body failed: %w", err)
	}

	ct := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if ct == "application/octet-stream" {
		ct = ""
	}
	return spots.PhotoFile{
		Name:        filenameFromURL(parsed),
		ContentType: ct,
		Size:        int64(len(data)),
		Content:     bytes.NewReader(data),
	}, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

func filenameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base != "" && base != "." && base != "/" {
		return base
	}
	return uuid.New().String()
}
