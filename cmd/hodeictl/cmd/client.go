package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rubentxu/hodei-pipelines/internal/cliconfig"
)

// apiClient is a thin wrapper over the REST façade, authenticating with
// the session token saved by loginCmd.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(ctx *cliconfig.Context) (*apiClient, error) {
	if ctx.ServerURL == "" {
		return nil, fmt.Errorf("not configured: run 'hodeictl login' first")
	}
	return &apiClient{baseURL: ctx.ServerURL, token: ctx.Token, http: http.DefaultClient}, nil
}

func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
