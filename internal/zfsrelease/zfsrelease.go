// Package zfsrelease retrieves OpenZFS release metadata and extracts the
// supported kernel range from the free-text release notes.
package zfsrelease

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// Range is the inclusive kernel version band a module release declares
// support for, as published (un-normalized).
type Range struct {
	Min string
	Max string
}

// Ordered extraction patterns, first match wins. The later patterns are
// intentionally broader: they only exist to catch older or differently
// worded release notes. Keep the order.
var compatibilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\*\*Linux\*\*:\s*compatible with\s*([\d.]+)\s*-\s*([\d.]+)\s*kernels`),
	regexp.MustCompile(`(?is)Linux.*?compatible with.*?([\d.]+)\s*-\s*([\d.]+)\s*kernels`),
	regexp.MustCompile(`(?is)Kernel.*?compatibility.*?([\d.]+)\s*-\s*([\d.]+)`),
	regexp.MustCompile(`(?is)Linux kernel.*?([\d.]+)\s*-\s*([\d.]+)`),
}

// Client queries the release metadata service.
type Client struct {
	BaseURL    string // e.g. "https://api.github.com"
	HTTPClient *http.Client
}

// NewClient builds a Client against the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

// release is the slice of the REST payload this tool cares about: the notes
// body, or a message sentinel when the tag does not exist.
type release struct {
	Body    string `json:"body"`
	Message string `json:"message"`
}

// TagFor derives the canonical release tag from a module package version,
// e.g. "2.3.3-1" -> "zfs-2.3.3".
func TagFor(moduleVersion string) string {
	base, _, _ := strings.Cut(moduleVersion, "-")
	return "zfs-" + base
}

// FetchRange returns the kernel compatibility range declared in the release
// notes for the given module version, or ok=false when the release cannot
// be fetched or its notes carry no recognizable range. No failure escapes
// as an error.
func (c *Client) FetchRange(moduleVersion string) (Range, bool) {
	log := logger.Logger()

	tag := TagFor(moduleVersion)
	url := fmt.Sprintf("%s/repos/openzfs/zfs/releases/tags/%s", strings.TrimSuffix(c.BaseURL, "/"), tag)
	log.Debugf("Fetching compatibility info from API: %s", url)

	rel, err := c.fetchRelease(url)
	if err != nil {
		log.Warnf("Failed to get compatibility data for ZFS tag %s: %v", tag, err)
		return Range{}, false
	}
	if rel.Message != "" {
		log.Debugf("Release API answered with error for %s: %s", tag, rel.Message)
		return Range{}, false
	}
	if rel.Body == "" {
		log.Debugf("No release body found for %s", tag)
		return Range{}, false
	}

	for _, pattern := range compatibilityPatterns {
		if m := pattern.FindStringSubmatch(rel.Body); m != nil {
			log.Debugf("Found compatible kernel range via API: %s - %s", m[1], m[2])
			return Range{Min: m[1], Max: m[2]}, true
		}
	}

	log.Debugf("No kernel compatibility information found in release notes for %s", tag)
	return Range{}, false
}

func (c *Client) fetchRelease(url string) (release, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return release{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return release{}, err
	}

	var rel release
	if err := json.Unmarshal(data, &rel); err != nil {
		return release{}, fmt.Errorf("parsing release payload: %w", err)
	}
	return rel, nil
}
