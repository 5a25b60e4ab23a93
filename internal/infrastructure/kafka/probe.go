package kafka

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeTimeout bounds each connection attempt
const ProbeTimeout = 2 * time.Second

// ProbeError reports the first bootstrap server that could not be reached
type ProbeError struct {
	Addr string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("cannot connect to Kafka at %s: %v", e.Addr, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ParseBrokers splits a comma separated bootstrap server list
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Probe opens and closes a TCP connection to every broker concurrently
func Probe(ctx context.Context, brokers []string, timeout time.Duration) error {
	if len(brokers) == 0 {
		return &ProbeError{Err: fmt.Errorf("no bootstrap servers configured")}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range brokers {
		g.Go(func() error {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return &ProbeError{Addr: addr, Err: err}
			}
			dialer := net.Dialer{Timeout: timeout}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return &ProbeError{Addr: addr, Err: err}
			}
			return conn.Close()
		})
	}
	return g.Wait()
}
