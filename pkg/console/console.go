// Package console is an interactive demo controller for a running fleet.
//
// Commands address devices by endpoint number and go through the node's
// Invoke and SetAttribute entry points, so they exercise the same command
// handling and couplings a Matter controller would.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/device"
	"github.com/backkem/matter-appliances/pkg/events"
	"github.com/chzyer/readline"
	"github.com/pion/logging"
)

// Fleet is what the console drives. *fleet.Fleet satisfies it.
type Fleet interface {
	Node() *datamodel.BasicNode
	Devices() []*device.Device
	Journal() *events.Journal
	Snapshot() ([]byte, error)
	RemoveDevice(ep datamodel.EndpointID) error
}

// Config configures a Console.
type Config struct {
	Fleet Fleet

	// Out receives command output when the console is driven through
	// Exec. Run writes to the terminal instead. Defaults to os.Stdout.
	Out io.Writer

	// SnapshotPath, when set, is where quit writes a state snapshot.
	SnapshotPath string

	// Prompt defaults to "sim> ".
	Prompt string

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Console executes controller commands against a fleet.
type Console struct {
	fleet Fleet
	node  *datamodel.BasicNode
	cfg   Config
	log   logging.LeveledLogger

	// mu guards out and watching; watch output arrives from timer goroutines.
	mu       sync.Mutex
	out      io.Writer
	watching bool
}

// New creates a Console.
func New(cfg Config) *Console {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "sim> "
	}
	c := &Console{
		fleet: cfg.Fleet,
		node:  cfg.Fleet.Node(),
		out:   cfg.Out,
		cfg:   cfg,
	}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("console")
	}
	return c
}

// Run reads commands from the terminal until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.cfg.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	c.mu.Lock()
	c.out = rl.Stdout()
	c.mu.Unlock()
	defer c.setWatch(false)

	// Readline blocks; closing the instance releases it on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-done:
		}
	}()

	c.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && ctx.Err() == nil {
				continue
			}
			return nil
		}
		if c.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether it asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "read", "r":
		err = c.cmdRead(ctx, args)
	case "mode", "m":
		err = c.cmdMode(ctx, args)
	case "onoff":
		err = c.cmdOnOff(ctx, args)
	case "op":
		err = c.cmdOp(ctx, args)
	case "temp":
		err = c.cmdTemp(ctx, args)
	case "cook":
		err = c.cmdCook(ctx, args)
	case "addtime":
		err = c.cmdAddTime(ctx, args)
	case "areas":
		err = c.cmdAreas(ctx, args)
	case "fan":
		err = c.cmdFan(ctx, args)
	case "lux":
		err = c.cmdLux(args)
	case "events", "ev":
		err = c.cmdEvents(args)
	case "watch", "w":
		err = c.cmdWatch(args)
	case "remove", "rm":
		err = c.cmdRemove(args)
	case "snapshot":
		err = c.cmdSnapshot(args)
	case "quit", "exit", "q":
		if c.cfg.SnapshotPath != "" {
			if err := c.writeSnapshot(c.cfg.SnapshotPath); err != nil {
				c.printf("error: %v\n", err)
			}
		}
		c.println("Exiting...")
		return true
	default:
		c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		c.printf("error: %v\n", err)
		if c.log != nil {
			c.log.Debugf("%q: %v", line, err)
		}
	}
	return false
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, args...)
}

func (c *Console) printHelp() {
	c.println(`
Appliance Simulator Commands:
  Inspection:
    list                        - List devices and their endpoints
    read <ep> <cluster> <attr>  - Read an attribute (ids in hex or decimal)
    events [n]                  - Show the last n events (default 10)
    watch [on|off]              - Print attribute changes as they happen

  Control:
    mode <ep> [cluster] [id]    - Show modes, or change mode
    onoff <ep> on|off|toggle    - Switch an endpoint
    op <ep> [start|stop|pause|resume|home]
                                - Show or command operational state
    temp <ep> <celsius>         - Set a temperature setpoint
    temp <ep> level <n>         - Select a temperature level
    cook <ep> [mode=N] [time=S] [power=P] [start]
                                - Set microwave cooking parameters
    addtime <ep> <seconds>      - Extend the microwave cook time
    areas <ep> [id...]          - Show or select RVC areas
    areas <ep> skip <id>        - Skip an area during a run
    fan <ep> <mode>|<percent>   - Set fan mode (off, low, ..., auto) or speed
    lux <ep> [lux]              - Show or set a light sensor reading
    remove <ep>                 - Take a device off the bridge

  General:
    snapshot <file>             - Write a state snapshot
    help                        - Show this help
    quit                        - Exit`)
}

func (c *Console) writeSnapshot(path string) error {
	data, err := c.fleet.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	c.printf("snapshot written to %s (%d bytes)\n", path, len(data))
	return nil
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("read"),
		readline.PcItem("mode"),
		readline.PcItem("onoff"),
		readline.PcItem("op"),
		readline.PcItem("temp"),
		readline.PcItem("cook"),
		readline.PcItem("addtime"),
		readline.PcItem("areas"),
		readline.PcItem("fan"),
		readline.PcItem("lux"),
		readline.PcItem("events"),
		readline.PcItem("watch",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
		readline.PcItem("remove"),
		readline.PcItem("snapshot"),
		readline.PcItem("quit"),
	)
}
