package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Publisher delivers one encoded event. The returned string is any output
// worth echoing back to the caller.
type Publisher interface {
	Publish(ctx context.Context, settings Settings, key string, payload []byte) (string, error)
}

// CommandError is a console producer run that exited non-zero
type CommandError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("Docker command failed: %s", e.Stderr)
}

// Runner executes a command with stdin and captures its output. err is
// non-nil only when the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) (stdout, stderr string, exitCode int, err error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}

// ConsolePublisher pipes the event into kafka-console-producer running in
// the broker container. Broker is the address as seen from inside that
// container, not the configured bootstrap servers.
type ConsolePublisher struct {
	runner    Runner
	container string
	broker    string
	logger    *zap.Logger
}

func NewConsolePublisher(runner Runner, container, broker string, logger *zap.Logger) *ConsolePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsolePublisher{runner: runner, container: container, broker: broker, logger: logger}
}

func (p *ConsolePublisher) Args(topic string) []string {
	return []string{"exec", "-i", p.container, "kafka-console-producer", "--broker-list", p.broker, "--topic", topic}
}

func (p *ConsolePublisher) Publish(ctx context.Context, settings Settings, key string, payload []byte) (string, error) {
	args := p.Args(settings.Topic)
	p.logger.Debug("executing console producer", zap.String("command", "docker "+strings.Join(args, " ")))

	stdin := append(append([]byte(nil), payload...), '\n')
	stdout, stderr, code, err := p.runner.Run(ctx, "docker", args, stdin)
	if err != nil {
		return "", fmt.Errorf("failed to run console producer: %w", err)
	}
	if code != 0 {
		p.logger.Warn("console producer failed", zap.Int("returncode", code), zap.String("stderr", stderr))
		return "", &CommandError{ExitCode: code, Stdout: stdout, Stderr: stderr}
	}
	return stdout, nil
}

// RawProducer is what the direct path writes through
type RawProducer interface {
	PublishRaw(ctx context.Context, key string, value []byte) error
	Close() error
}

type ProducerFactory func(brokers []string, topic string) RawProducer

func KafkaProducerFactory(brokers []string, topic string) RawProducer {
	return kafka.NewProducer(brokers, topic)
}

// DirectPublisher probes every bootstrap server, then produces keyed by
// event id. Producers are cached per settings value.
type DirectPublisher struct {
	mu        sync.Mutex
	producers map[Settings]RawProducer
	factory   ProducerFactory
	probe     func(ctx context.Context, brokers []string, timeout time.Duration) error
	timeout   time.Duration
	logger    *zap.Logger
}

func NewDirectPublisher(factory ProducerFactory, logger *zap.Logger) *DirectPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectPublisher{
		producers: make(map[Settings]RawProducer),
		factory:   factory,
		probe:     kafka.Probe,
		timeout:   kafka.ProbeTimeout,
		logger:    logger,
	}
}

func (p *DirectPublisher) Publish(ctx context.Context, settings Settings, key string, payload []byte) (string, error) {
	brokers := settings.Brokers()
	if err := p.probe(ctx, brokers, p.timeout); err != nil {
		return "", err
	}

	p.logger.Info("sending event",
		zap.String("topic", settings.Topic),
		zap.String("bootstrap_servers", settings.BootstrapServers),
		zap.String("key", key))

	if err := p.producer(settings, brokers).PublishRaw(ctx, key, payload); err != nil {
		return "", err
	}
	return "", nil
}

func (p *DirectPublisher) producer(settings Settings, brokers []string) RawProducer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prod, ok := p.producers[settings]; ok {
		return prod
	}
	prod := p.factory(brokers, settings.Topic)
	p.producers[settings] = prod
	return prod
}

func (p *DirectPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for key, prod := range p.producers {
		err = multierr.Append(err, prod.Close())
		delete(p.producers, key)
	}
	return err
}
