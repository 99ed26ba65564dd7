package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// FileSource reads fixtures from a local JSON file
type FileSource struct {
	path string
}

// NewFileSource creates a file source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path
func (s *FileSource) Name() string {
	return s.path
}

// Fetch decodes the file
func (s *FileSource) Fetch(ctx context.Context) (*Fixtures, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, "fixture file missing", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open fixture file: %w", err)
	}
	defer f.Close()
	return decodeFixtures(s.Name(), f)
}

// HTTPSource fetches fixtures from a JSON endpoint
type HTTPSource struct {
	url    string
	client *RateLimitedHTTPClient
}

// NewHTTPSource creates an HTTP source
func NewHTTPSource(url string, client *RateLimitedHTTPClient) *HTTPSource {
	return &HTTPSource{url: url, client: client}
}

// Name returns the endpoint URL
func (s *HTTPSource) Name() string {
	return s.url
}

// Fetch GETs and decodes the endpoint
func (s *HTTPSource) Fetch(ctx context.Context) (*Fixtures, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, "endpoint returned 404", ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(s.Name(), ErrCodeRateLimitExceeded, "endpoint throttled the import", ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(s.Name(), ErrCodeServerError, resp.Status, ErrServerError)
	case resp.StatusCode >= 400:
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, resp.Status, ErrInvalidData)
	}
	return decodeFixtures(s.Name(), resp.Body)
}

// NewSource picks an HTTP source for http(s) locations and a file source otherwise
func NewSource(location string, client *RateLimitedHTTPClient) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("fixture location is required")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			return nil, fmt.Errorf("HTTP client is required for %s", location)
		}
		return NewHTTPSource(location, client), nil
	}
	return NewFileSource(location), nil
}

func decodeFixtures(name string, r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, NewDataSourceError(name, ErrCodeInvalidData, "malformed fixture JSON", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}
	return &fx, nil
}
