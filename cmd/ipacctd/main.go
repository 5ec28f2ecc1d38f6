// Command ipacctd is a per-interface network traffic accounting daemon:
// it classifies captured frames by network/host/protocol and emits
// periodic delta reports reconciled against the kernel's own interface
// counters.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/googlesky/ipacctd/internal/capture"
	"github.com/googlesky/ipacctd/internal/daemon"
	"github.com/googlesky/ipacctd/internal/model"
	"github.com/googlesky/ipacctd/internal/netcheck"
	"github.com/googlesky/ipacctd/internal/report"
)

const usage = "usage: ipacctd <protocol_version> <text|binary> <iface> <in|out> <src|dst> <cidr> [<cidr> ...]"

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	if err := netcheck.RequireEthernet(cfg.iface); err != nil {
		logger.Println(err)
		return 2
	}

	table, err := model.NewNetworkTable(cfg.cidrs)
	if err != nil {
		logger.Println(err)
		return 2
	}
	state := model.NewGlobalState(table)

	source, err := capture.Open(cfg.iface, cfg.direction)
	if err != nil {
		logger.Println(err)
		return 1
	}
	defer source.Close()

	d := daemon.New(source, cfg.iface, cfg.direction, cfg.axis, state, cfg.format, os.Stdout, logger)
	if err := d.Start(); err != nil {
		logger.Println(err)
		return 1
	}

	if err := d.Run(); err != nil {
		logger.Println(err)
		return 1
	}
	return 0
}

type config struct {
	iface     string
	direction model.Direction
	axis      model.CountAxis
	format    report.Format
	cidrs     []string
}

func parseArgs(args []string) (config, error) {
	if len(args) < 6 {
		return config{}, fmt.Errorf("ipacctd: expected at least 6 arguments, got %d", len(args))
	}

	version, err := strconv.Atoi(args[0])
	if err != nil || version != 1 {
		return config{}, fmt.Errorf("ipacctd: protocol_version must be 1, got %q", args[0])
	}

	format, err := report.ParseFormat(args[1])
	if err != nil {
		return config{}, fmt.Errorf("ipacctd: %w", err)
	}

	iface := args[2]
	if iface == "" {
		return config{}, fmt.Errorf("ipacctd: iface must not be empty")
	}

	var direction model.Direction
	switch args[3] {
	case "in":
		direction = model.DirectionIn
	case "out":
		direction = model.DirectionOut
	default:
		return config{}, fmt.Errorf("ipacctd: direction must be in or out, got %q", args[3])
	}

	var axis model.CountAxis
	switch args[4] {
	case "src":
		axis = model.CountSource
	case "dst":
		axis = model.CountDestination
	default:
		return config{}, fmt.Errorf("ipacctd: count axis must be src or dst, got %q", args[4])
	}

	return config{
		iface:     iface,
		direction: direction,
		axis:      axis,
		format:    format,
		cidrs:     args[5:],
	}, nil
}
