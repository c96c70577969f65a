package chatclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"textgen/pkg/types"
)

// GeneratePath is the service route the client talks to.
const GeneratePath = "/text-generation/generate"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client posts prompts to a textgen service.
type Client struct {
	host string
	url  string
	hc   *http.Client
}

// New returns a client for host ("name" or "name:port"). A zero timeout
// means requests never time out.
func New(host string, timeout time.Duration) *Client {
	base := host
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		host: host,
		url:  strings.TrimRight(base, "/") + GeneratePath,
		hc:   &http.Client{Timeout: timeout},
	}
}

// URL is the endpoint requests are sent to.
func (c *Client) URL() string { return c.url }

// Generate sends text and returns the continuation. Failures are one of
// *NetworkError, *StatusError, *MalformedResponseError or
// *MissingFieldError.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(types.GenerateRequest{Text: &text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &NetworkError{Host: c.host, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &NetworkError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &NetworkError{Host: c.host, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var er types.ErrorResponse
		if json.Unmarshal(raw, &er) == nil {
			se.Message = er.Error
		}
		return "", se
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &MalformedResponseError{Err: err}
	}
	field, ok := out["generated"]
	if !ok {
		return "", &MissingFieldError{Field: "generated"}
	}
	var generated string
	if err := json.Unmarshal(field, &generated); err != nil {
		return "", &MalformedResponseError{Err: err}
	}
	return generated, nil
}
