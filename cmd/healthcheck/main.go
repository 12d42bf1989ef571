// Command healthcheck probes the local server's liveness endpoint and exits
// non-zero when it does not answer 200. It is the container HEALTHCHECK.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/garyellow/tucurso-bot/internal/config"
)

func main() {
	client := &http.Client{Timeout: 8 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%s/livez", port())

	resp, err := client.Get(url)
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}

	os.Exit(0)
}

func port() string {
	for _, key := range []string{config.EnvPort, config.EnvPlatformPort} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return config.DefaultPort
}
