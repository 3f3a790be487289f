// Package util holds helpers shared by the integration tests.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 10 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// mosquitto 2.x refuses anonymous clients unless told otherwise.
const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`

// StartMosquitto runs a throwaway broker container and returns its URL and
// a function terminating it.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				Reader:            strings.NewReader(mosquittoConf),
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		return "", nil, err
	}
	terminate := func() { _ = cont.Terminate(context.Background()) }

	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		terminate()
		return "", nil, err
	}
	readyCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := poll(readyCtx, func() error { return probeBroker(endpoint) }); err != nil {
		terminate()
		return "", nil, fmt.Errorf("broker %s not ready: %w", endpoint, err)
	}
	return endpoint, terminate, nil
}

func probeBroker(url string) error {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(url).SetClientID("probe"))
	tok := cli.Connect()
	if !tok.WaitTimeout(time.Second) {
		return fmt.Errorf("connect timeout")
	}
	if err := tok.Error(); err != nil {
		return err
	}
	cli.Disconnect(100)
	return nil
}

// WaitForMetric scrapes metricsURL until the exposition contains substr.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	return poll(ctx, func() error {
		body, err := scrape(ctx, metricsURL)
		if err != nil {
			return err
		}
		if !strings.Contains(body, substr) {
			return fmt.Errorf("metric %q not exposed", substr)
		}
		return nil
	})
}

func scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// poll retries fn until it succeeds or ctx ends, returning the last error.
func poll(ctx context.Context, fn func() error) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		err := fn()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
}
