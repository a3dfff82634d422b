package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ariusmonitor.flagee.cloud/internal/broker"
	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/logger"
	"ariusmonitor.flagee.cloud/internal/observer"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	program = "monitoraimpressora"
	unknown = "unknown"
)

// Result is the JSON record printed for every probe.
type Result struct {
	ProgramVersion string  `json:"program_version"`
	Status         string  `json:"status"`
	Port           string  `json:"port"`
	Details        Details `json:"details"`
	Error          string  `json:"error"`
}

type Details struct {
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
}

func newResult(port string, err error) Result {
	r := Result{
		ProgramVersion: config.Version,
		Status:         "online",
		Port:           port,
		Details:        Details{Manufacturer: unknown, Model: unknown, FirmwareVersion: unknown},
	}
	if err != nil {
		r.Status = "offline"
		r.Port = "none"
		r.Error = err.Error()
	}
	return r
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [--debug] [--simple-output] [--version] /path/lib.so [port]\n", program)
		fs.PrintDefaults()
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, driver.Open))
}

func run(args []string, stdout, stderr io.Writer, open driver.Opener) int {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs)
	configPath := fs.String("c", config.DEFAULT_CONFIG, "Path of config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	simple := fs.Bool("simple-output", false, "Print 1 or 0 instead of JSON")
	version := fs.Bool("version", false, "Show version info")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *version {
		fmt.Fprintf(stdout, "MonitoraImpressora %s\n", config.Version)
		return 0
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: library path not given.")
		fs.Usage()
		return 1
	}
	lib, port := fs.Arg(0), fs.Arg(1)

	conf, err := config.ParseMonitorConfig(*configPath)
	if err != nil {
		logger.Error("Invalid configuration", slog.String("path", *configPath), slog.Any("error", err))
		return 1
	}
	if *debug {
		conf.EnableDebug()
	}
	logger.SetLogLevel(conf.GetLogLevel())

	reg := prometheus.NewRegistry()
	config.RegisterBuildInfo(reg, program)
	b := broker.New(broker.Options{Open: open, Metrics: broker.NewMetrics(reg)})

	dispatcher := observer.FromTargets(conf.Targets, conf.WorkingDir, reg)
	defer dispatcher.Cleanup()
	report := observer.NewReport(program, config.Version, driver.Create.Name)
	report.Library = lib

	found, err := b.ProbePrinter(lib, conf.PrinterPorts, port)
	if err != nil {
		logger.Debug("Printer offline", slog.String("lib", lib), slog.Any("error", err))
		report.SetError(err)
	} else {
		report.SetOutcome(broker.Outcome{Kind: broker.Success, Attempts: 1, Library: lib})
		report.Device = found.Candidate
	}

	if *simple {
		if err != nil {
			fmt.Fprintln(stdout, "0")
		} else {
			fmt.Fprintln(stdout, "1")
		}
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if eerr := enc.Encode(newResult(found.Candidate, err)); eerr != nil {
			logger.Error("Failed to write result", slog.Any("error", eerr))
		}
	}

	if conf.Metrics.Textfile != "" {
		if werr := prometheus.WriteToTextfile(conf.Metrics.Textfile, reg); werr != nil {
			logger.Warn("Failed to write metrics textfile", slog.String("path", conf.Metrics.Textfile), slog.Any("error", werr))
		}
	}
	dispatcher.NotifyAll(report)

	if err != nil {
		return 1
	}
	return 0
}
