package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

const healthcheckTimeout = 2 * time.Second

func newHealthcheckCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running instance's liveness endpoint",
		Long:  "Issues GET /health/live against address and exits non-zero if it doesn't respond 200. Intended for container HEALTHCHECK directives.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runHealthcheck(address)
		},
	}
	cmd.Flags().StringVar(&address, "address", "http://localhost:8080", "base URL of the running bridge instance")
	return cmd
}

func runHealthcheck(address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthcheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+"/health/live", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge is not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge reported unhealthy status %d", resp.StatusCode)
	}
	return nil
}
