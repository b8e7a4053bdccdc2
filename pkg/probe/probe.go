// Package probe runs the end-to-end diagnostic pass against one node:
// connect, print identity, enumerate capabilities, collect the first
// state of every entity, command the first light, disconnect.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/nodelink-protocol/nodelink-go/pkg/aggregate"
	"github.com/nodelink-protocol/nodelink-go/pkg/entity"
	"github.com/nodelink-protocol/nodelink-go/pkg/log"
	"github.com/nodelink-protocol/nodelink-go/pkg/session"
)

// DeviceSession is the slice of a session the probe drives. Satisfied
// by *session.Session; tests substitute a fake.
type DeviceSession interface {
	APIVersion() session.Version
	ServerInfo() string
	DeviceInfo(ctx context.Context) (*session.DeviceInfo, error)
	ListEntities(ctx context.Context) ([]entity.Entity, []entity.Service, error)
	SubscribeStates(handler func(entity.State)) error
	CaptureImage() error
	LightCommand(key uint32, cmd *session.LightCommand) error
	Disconnect(ctx context.Context) error
	Close() error
}

// Dial establishes a session. Swappable for tests.
type Dial func(ctx context.Context, cfg session.Config) (DeviceSession, error)

func defaultDial(ctx context.Context, cfg session.Config) (DeviceSession, error) {
	return session.Connect(ctx, cfg)
}

// Config configures one probe run.
type Config struct {
	// Host is the node to probe.
	Host string

	// Port is the node's TCP port. Zero means the default port.
	Port uint16

	// Password authenticates the session.
	Password string

	// PresharedKey enables transport frame encryption when non-empty.
	PresharedKey string

	// Timeout optionally bounds state collection. Zero means wait
	// indefinitely, matching the base behavior: a node with an entity
	// that never reports hangs the run.
	Timeout time.Duration

	// Out receives the probe report (default io.Discard when nil).
	Out io.Writer

	// ErrOut receives connection diagnostics (default io.Discard).
	ErrOut io.Writer

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger

	// Dial overrides session establishment. Nil means a real TCP
	// session.
	Dial Dial
}

// lightParams is the fixed command issued to the first light.
var lightParams = func() *session.LightCommand {
	on := true
	brightness := float32(0.5)
	rgb := [3]float32{0.1, 0.2, 0.3}
	white := float32(0.4)
	colorTemp := float32(5000)
	return &session.LightCommand{
		State:            &on,
		Brightness:       &brightness,
		RGB:              &rgb,
		White:            &white,
		ColorTemperature: &colorTemp,
		Transition:       2 * time.Second,
		Flash:            500 * time.Millisecond,
		Effect:           "disco",
	}
}()

// Run executes the probe and returns the process exit code. A failed
// connect yields (1, nil) after writing a diagnostic to ErrOut; any
// later failure returns a non-nil error for the caller to treat as
// fatal.
func Run(ctx context.Context, cfg Config) (int, error) {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = io.Discard
	}
	dial := cfg.Dial
	if dial == nil {
		dial = defaultDial
	}

	sess, err := dial(ctx, session.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		PresharedKey: cfg.PresharedKey,
		Logger:       cfg.Logger,
	})
	if err != nil {
		var connErr *session.ConnectionError
		if errors.As(err, &connErr) {
			fmt.Fprintln(cfg.ErrOut, connErr.Error())
			if !strings.HasSuffix(cfg.Host, ".local") {
				fmt.Fprintf(cfg.ErrOut, "hint: the node may only be reachable by its mDNS name, try %s.local\n", cfg.Host)
			}
			return 1, nil
		}
		return 1, err
	}

	if err := probe(ctx, sess, cfg); err != nil {
		sess.Close()
		return 1, err
	}

	// One platform raises a benign error tearing down an already
	// half-closed socket. Swallow only that.
	if err := sess.Disconnect(ctx); err != nil && runtime.GOOS != "windows" {
		return 1, err
	}
	return 0, nil
}

func probe(ctx context.Context, sess DeviceSession, cfg Config) error {
	fmt.Fprintf(cfg.Out, "Protocol version: %s\n", sess.APIVersion())

	info, err := sess.DeviceInfo(ctx)
	if err != nil {
		return fmt.Errorf("device info: %w", err)
	}
	fmt.Fprintf(cfg.Out, "Device: %s\n", info)

	entities, services, err := sess.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	fmt.Fprintf(cfg.Out, "Entities (%d):\n", len(entities))
	for _, e := range entities {
		fmt.Fprintf(cfg.Out, "  %s\n", e)
	}
	fmt.Fprintf(cfg.Out, "Services (%d):\n", len(services))
	for _, svc := range services {
		fmt.Fprintf(cfg.Out, "  %s\n", svc)
	}

	// Kinds that only report when poked must be primed before
	// subscribing, or collection never completes.
	for _, e := range entities {
		if e.Kind.RequiresPriming() {
			if err := sess.CaptureImage(); err != nil {
				return fmt.Errorf("prime %s: %w", e, err)
			}
		}
	}

	keys := make([]uint32, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.Key)
	}
	var opts []aggregate.Option
	if cfg.Timeout > 0 {
		opts = append(opts, aggregate.WithTimeout(cfg.Timeout))
	}
	agg := aggregate.New(keys, opts...)

	if err := sess.SubscribeStates(func(state entity.State) {
		agg.Observe(state)
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-agg.Done():
	}
	if err := agg.Err(); err != nil {
		return fmt.Errorf("collecting states (missing keys %v): %w", agg.Missing(), err)
	}

	fmt.Fprintf(cfg.Out, "States (%d):\n", len(agg.Results()))
	for _, r := range agg.Results() {
		fmt.Fprintf(cfg.Out, "  key=%d %s: %s\n", r.Key, r.Kind, r.Value)
	}

	light, ok := firstLight(entities)
	if !ok {
		return fmt.Errorf("node has no light entity")
	}
	if err := sess.LightCommand(light.Key, lightParams); err != nil {
		return fmt.Errorf("light command: %w", err)
	}
	fmt.Fprintf(cfg.Out, "Commanded light %s\n", light)
	return nil
}

func firstLight(entities []entity.Entity) (entity.Entity, bool) {
	for _, e := range entities {
		if e.Kind == entity.KindLight {
			return e, true
		}
	}
	return entity.Entity{}, false
}
