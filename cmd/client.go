package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mezonai/powchain/block"
	apierrors "github.com/mezonai/powchain/errors"
	"github.com/mezonai/powchain/jsonx"
)

// apiClient talks to a running node's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := jsonx.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var ne apierrors.NetworkError
		if err := jsonx.NewDecoder(resp.Body).Decode(&ne); err != nil || ne.Code == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return &ne
	}
	if out == nil {
		return nil
	}
	return jsonx.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) chain() ([]block.Record, error) {
	var records []block.Record
	err := c.do(http.MethodGet, "/chain", nil, &records)
	return records, err
}

func (c *apiClient) balance(account string) (float64, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	err := c.do(http.MethodGet, "/balance?account="+url.QueryEscape(account), nil, &resp)
	return resp.Balance, err
}
