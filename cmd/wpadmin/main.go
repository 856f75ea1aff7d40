// Command wpadmin is the wpadmin CLI client.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/wpadmin/internal/version"
)

const defaultServer = "http://localhost:8080"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cli := &Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
	var serverURL string

	root := &cobra.Command{
		Use:   "wpadmin",
		Short: "wpadmin CLI - browse the plugin directory and check install status",
		Version: fmt.Sprintf("%s (commit %s, built %s)",
			version.Version, version.Commit, version.BuildDate),
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			cli.BaseURL = strings.TrimRight(serverURL, "/")
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "wpadmin server URL")
	root.PersistentFlags().StringVar(&cli.Token, "token", os.Getenv("WPADMIN_TOKEN"), "JWT auth token (or $WPADMIN_TOKEN)")

	root.AddCommand(
		newVersionCommand(),
		newStatusCommand(cli),
		newLoginCommand(cli),
		newSearchCommand(cli),
		newInfoCommand(cli),
		newInstallStatusCommand(cli),
		newTagsCommand(cli),
		newUpdatesCommand(cli),
		newHashPasswordCommand(),
	)
	return root
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

// post performs a POST and decodes JSON response into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

func (c *Client) do(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, serverError(b))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// serverError extracts the "error" field of a JSON error body.
func serverError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
