package health

import (
	"context"
	"fmt"
	"net/http"
)

// NewUpstreamChecker probes the Nextcloud instance's status endpoint,
// the same one the Nextcloud clients themselves use to detect
// maintenance mode and version skew.
func NewUpstreamChecker(client *http.Client, nextcloudHost string) Checker {
	return FuncChecker{
		CheckerName: "nextcloud",
		Fn: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, nextcloudHost+"/status.php", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

// NewAuthConfiguredChecker reports whether the resolved authentication
// mode has everything it needs: fixed credentials for Basic mode, or a
// constructed token verifier for OAuth mode. isConfigured is evaluated
// once at wiring time (auth resolution happens at startup, not per
// request) and simply reports what was already decided.
func NewAuthConfiguredChecker(mode string, isConfigured bool) Checker {
	return FuncChecker{
		CheckerName: "auth_" + mode,
		Fn: func(_ context.Context) error {
			if !isConfigured {
				return fmt.Errorf("%s mode credentials are not fully configured", mode)
			}
			return nil
		},
	}
}

// NewVectorStoreChecker probes a network-visible vector store's
// readiness endpoint. An embedded store has nothing to reach over the
// network, so embedded deployments should use NewEmbeddedVectorChecker
// instead.
func NewVectorStoreChecker(client *http.Client, vectorStoreURL string) Checker {
	return FuncChecker{
		CheckerName: "vector_store",
		Fn: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, vectorStoreURL+"/readyz", nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

// NewEmbeddedVectorChecker always succeeds: an embedded vector store
// runs in-process and isn't network-visible, so readiness only requires
// that indexing was enabled in the first place.
func NewEmbeddedVectorChecker() Checker {
	return FuncChecker{
		CheckerName: "vector_store",
		Fn:          func(_ context.Context) error { return nil },
	}
}
