package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"segfetch/internal/httpapi"
)

// apiClient is a thin HTTP client against a running `segfetchctl serve`
// daemon, mirroring the master/client split the example pack's
// surge-downloader uses for its own localhost-port CLI.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(cmd *cobra.Command) *apiClient {
	addr, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	return &apiClient{
		baseURL: "http://" + addr,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("server", "127.0.0.1:8787", "address of a running segfetchctl serve daemon")
	cmd.Flags().String("token", "", "auth token, if the daemon requires one")
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set(httpapi.TokenHeader, c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
