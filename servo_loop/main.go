package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pneuma-servo-core/utils"
)

func main() {
	var (
		cfgPath     = flag.String("config", "config/servo.json", "Servo config JSON file")
		mapPath     = flag.String("map", "config/bus_map.csv", "Path to bus_map.csv")
		logLevel    = flag.String("log", "info", "trace|debug|info|warn|error|critical")
		logFile     = flag.String("logfile", "servo_loop.log", "Log file path")
		metricsAddr = flag.String("metrics", "", "Optional Prometheus listen address, e.g. :9090")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <bus-interface>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: provide the bus interface name as the single argument")
		flag.Usage()
		os.Exit(2)
	}
	iface := flag.Arg(0)

	log, err := utils.NewFileLogger(*logFile, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *logFile + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := LoadServoConfig(*cfgPath)
	if err != nil {
		log.Critical("Config %s: %v", *cfgPath, err)
		os.Exit(1)
	}

	bmap, err := utils.LoadBusMap(*mapPath)
	if err != nil {
		log.Critical("Bus map %s: %v", *mapPath, err)
		os.Exit(1)
	}

	ctx := context.Background()

	master, err := utils.NewSocketCANMaster(ctx, iface, bmap, log)
	if err != nil {
		log.Critical("Bus master on %s: %v", iface, err)
		os.Exit(1)
	}
	defer master.Close()

	runner, err := NewRunner(cfg, master, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	runner.Console = os.Stdin
	if *metricsAddr != "" {
		runner.metrics = newLoopMetrics()
		serveMetrics(*metricsAddr, log)
	}

	if err := runner.Run(ctx); err != nil {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
