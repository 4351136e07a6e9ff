// appliance-sim runs a fleet of simulated Matter appliances.
//
// Usage:
//
//	appliance-sim [options]
//
// Example:
//
//	appliance-sim -config fleet.yaml -storage fleet.db -interactive
//	appliance-sim -devices rvc,dishwasher -interval 500ms -log debug
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/backkem/matter-appliances/pkg/console"
	"github.com/backkem/matter-appliances/pkg/fleet"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"
)

func main() {
	opts := ParseFlags()
	if err := run(opts); err != nil {
		log.Fatalf("appliance-sim: %v", err)
	}
}

func run(opts Options) error {
	file, err := opts.loadFile()
	if err != nil {
		PrintUsage()
		return err
	}
	opts.apply(file)

	level, err := file.LogLevel()
	if err != nil {
		return err
	}
	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = level

	cfg := file.Config()
	cfg.LoggerFactory = loggerFactory
	cfg.OnStateChanged = func(s fleet.State) {
		log.Printf("Fleet state: %s", s)
	}

	f, err := fleet.New(cfg)
	if err != nil {
		return fmt.Errorf("create fleet: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := f.Start(ctx); err != nil {
		_ = f.Stop()
		return fmt.Errorf("start fleet: %w", err)
	}
	printFleet(f)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Interactive {
		con := console.New(console.Config{
			Fleet:         f,
			SnapshotPath:  opts.SnapshotPath,
			LoggerFactory: loggerFactory,
		})
		g.Go(func() error {
			// Leaving the console ends the simulation.
			defer stop()
			return con.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	runErr := g.Wait()

	log.Println("Shutting down...")
	if err := f.Stop(); err != nil {
		return fmt.Errorf("stop fleet: %w", err)
	}
	return runErr
}

func printFleet(f *fleet.Fleet) {
	fmt.Fprintln(os.Stdout, "\n========================================")
	fmt.Fprintln(os.Stdout, "        Appliance Fleet Ready")
	fmt.Fprintln(os.Stdout, "========================================")
	for _, dev := range f.Devices() {
		fmt.Fprintf(os.Stdout, "  %3d  %-15s %s\n", dev.Endpoint, dev.Kind, dev.Name)
	}
	fmt.Fprintln(os.Stdout, "========================================")
}
