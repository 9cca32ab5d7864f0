package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"projtrack/service"

	"github.com/spf13/cobra"
)

var (
	checkURL      string
	checkPassword string
)

// checkCmd logs in to a running server and lists one board.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Smoke-test a running server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		return runCheck(ctx, http.DefaultClient, strings.TrimRight(checkURL, "/"), checkPassword, cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "http://localhost:8080/api", "API base URL")
	checkCmd.Flags().StringVar(&checkPassword, "password", "", "team password")
	_ = checkCmd.MarkFlagRequired("password")
}

func runCheck(ctx context.Context, client *http.Client, baseURL, password string, out io.Writer) error {
	if _, err := call(ctx, client, http.MethodGet, baseURL+"/health", "", nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}

	body, err := json.Marshal(service.LoginReq{Password: password})
	if err != nil {
		return err
	}
	data, err := call(ctx, client, http.MethodPost, baseURL+"/login", "", body)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	var login service.LoginResp
	if err := json.Unmarshal(data, &login); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	data, err = call(ctx, client, http.MethodGet, baseURL+"/projects", login.Token, nil)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	var items []service.ProjectListItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	fmt.Fprintf(out, "ok: %d projects on the default board, token valid until %s\n",
		len(items), login.ExpiresAt.Format(time.RFC3339))
	return nil
}

func call(ctx context.Context, client *http.Client, method, url, token string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
