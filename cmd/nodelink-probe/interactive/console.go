// Package interactive provides the interactive command console for
// nodelink-probe, for poking at a node beyond the one-shot probe.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/nodelink-protocol/nodelink-go/pkg/entity"
	"github.com/nodelink-protocol/nodelink-go/pkg/session"
)

// Console handles interactive mode for nodelink-probe.
type Console struct {
	sess *session.Session
	rl   *readline.Instance

	entities []entity.Entity
	services []entity.Service

	subscribed bool
}

// New creates a new interactive console over an established session.
func New(sess *session.Session) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "node> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		sess: sess,
		rl:   rl,
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
// Pushed states are printed through this to avoid clobbering input.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "info":
			c.cmdInfo(ctx)

		case "entities", "list", "ls":
			c.cmdEntities(ctx)

		case "subscribe", "sub":
			c.cmdSubscribe()

		case "capture":
			c.cmdCapture()

		case "light":
			c.cmdLight(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
NodeLink Commands:
  info                     - Show node identity and protocol version
  entities                 - List entities and services
  subscribe                - Start the state stream (states print as they arrive)
  capture                  - Request one camera image
  light <key> on|off [brightness]  - Switch a light (brightness 0..1)
  quit                     - Exit`)
}

func (c *Console) cmdInfo(ctx context.Context) {
	info, err := c.sess.DeviceInfo(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Protocol version: %s\n", c.sess.APIVersion())
	fmt.Fprintf(c.rl.Stdout(), "Server: %s\n", c.sess.ServerInfo())
	fmt.Fprintf(c.rl.Stdout(), "Device: %s\n", info)
}

func (c *Console) cmdEntities(ctx context.Context) {
	entities, services, err := c.sess.ListEntities(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	c.entities = entities
	c.services = services

	fmt.Fprintf(c.rl.Stdout(), "Entities (%d):\n", len(entities))
	for _, e := range entities {
		fmt.Fprintf(c.rl.Stdout(), "  %s\n", e)
	}
	fmt.Fprintf(c.rl.Stdout(), "Services (%d):\n", len(services))
	for _, svc := range services {
		fmt.Fprintf(c.rl.Stdout(), "  %s\n", svc)
	}
}

func (c *Console) cmdSubscribe() {
	if c.subscribed {
		fmt.Fprintln(c.rl.Stdout(), "Already subscribed.")
		return
	}
	out := c.rl.Stdout()
	err := c.sess.SubscribeStates(func(state entity.State) {
		fmt.Fprintf(out, "state: key=%d %s: %s\n", state.EntityKey(), state.EntityKind(), state)
	})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	c.subscribed = true
	fmt.Fprintln(c.rl.Stdout(), "Subscribed.")
}

func (c *Console) cmdCapture() {
	if err := c.sess.CaptureImage(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Capture requested. Subscribe to see the image state arrive.")
}

func (c *Console) cmdLight(args []string) {
	key, cmd, err := parseLightArgs(args)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\nUsage: light <key> on|off [brightness]\n", err)
		return
	}
	if err := c.sess.LightCommand(key, cmd); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Light %d switched %s.\n", key, onOff(*cmd.State))
}

// parseLightArgs parses "light" command arguments: a key, an optional
// on/off switch (default on) and an optional brightness in 0..1.
func parseLightArgs(args []string) (uint32, *session.LightCommand, error) {
	if len(args) < 1 {
		return 0, nil, fmt.Errorf("missing light key")
	}
	key, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid key %q", args[0])
	}

	on := true
	if len(args) > 1 {
		switch strings.ToLower(args[1]) {
		case "on":
		case "off":
			on = false
		default:
			return 0, nil, fmt.Errorf("invalid switch %q (want on or off)", args[1])
		}
	}

	cmd := &session.LightCommand{
		State:      &on,
		Transition: time.Second,
	}
	if len(args) > 2 {
		b, err := strconv.ParseFloat(args[2], 32)
		if err != nil || b < 0 || b > 1 {
			return 0, nil, fmt.Errorf("invalid brightness %q (want 0..1)", args[2])
		}
		brightness := float32(b)
		cmd.Brightness = &brightness
	}
	return uint32(key), cmd, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
