package host

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

const probeTimeout = 2 * time.Second

// ProbeHost checks that a host service answers at baseURL. It returns an error
// wrapping domain.ErrServiceUnavailable otherwise.
func ProbeHost(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// Attach registers the YAML definition doc as app name on the host at baseURL and
// returns the URL the app is served at. An unreachable host is reported as
// domain.ErrServiceUnavailable, a taken name as ErrDuplicateApp.
func Attach(ctx context.Context, baseURL, name string, doc []byte) (string, error) {
	base := strings.TrimSuffix(baseURL, "/")
	if err := ProbeHost(ctx, base); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, base+AttachPath(name), bytes.NewReader(doc))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/yaml")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(msg))
	switch resp.StatusCode {
	case http.StatusCreated:
		return base + MountPath(name) + "/", nil
	case http.StatusConflict:
		return "", fmt.Errorf("%w: %s", ErrDuplicateApp, name)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return "", fmt.Errorf("host at %s does not accept attached apps", base)
	case http.StatusServiceUnavailable:
		return "", fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, detail)
	default:
		return "", fmt.Errorf("attach %s: %s (%d)", name, detail, resp.StatusCode)
	}
}
