package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

const maxErrorBody = 512

// doJSON sends the request and decodes a 2xx JSON body into out.
// Status codes are folded into the gateway error set.
func doJSON(client *http.Client, req *http.Request, provider models.Provider, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstream, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(provider, resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrUpstream, provider, err)
	}
	return nil
}

func statusError(provider models.Provider, code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, provider)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, provider)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, provider, code, string(bytes.TrimSpace(body)))
}

func newJSONRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
