package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"ariusmonitor.flagee.cloud/internal/broker"
	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/driver"
	"ariusmonitor.flagee.cloud/internal/drvhost"
	"ariusmonitor.flagee.cloud/internal/fabricante"
	"ariusmonitor.flagee.cloud/internal/logger"
	"ariusmonitor.flagee.cloud/internal/observer"
	"ariusmonitor.flagee.cloud/internal/recovery"
	"ariusmonitor.flagee.cloud/internal/state"

	"github.com/prometheus/client_golang/prometheus"
)

const program = "monitorasat"

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

type options struct {
	configPath   string
	lib          string
	manufacturer *fabricante.ID
	function     string
	code         string
	taxpayer     string
	key          string
	debug        bool
	version      bool
}

func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "MonitoraSAT %s\n", config.Version)
	fmt.Fprintf(w, "Git commit: %s\n", config.Commit)
	fmt.Fprintf(w, "Compilation time: %s\n", config.BuildDate)
}

func parseFlags(args []string, stderr io.Writer) (opts options, err error) {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "c", config.DEFAULT_CONFIG, "Path of config file")
	fs.StringVar(&opts.lib, "lib", "", "Path of the SAT driver library, takes precedence over --fabricante")
	fs.Func("fabricante", "Manufacturer id, ignored when --lib is given (1=DIMEP 2=SWEDA 3=TANCA 4=GERTEC 6=BEMATECH 7=ELGIN 9=MFE 10=ELGIN_LINKER2 12=ID)", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		id := fabricante.ID(n)
		opts.manufacturer = &id
		return nil
	})
	fs.StringVar(&opts.function, "func", "", "Operation: ConsultarStatusOperacional (default), AssociarAssinatura, ExtrairLogs, AtualizarSoftwareSAT or DesbloquearSAT")
	fs.StringVar(&opts.code, "codigo", "", "SAT activation code")
	fs.StringVar(&opts.taxpayer, "cnpj-contribuinte", "", "Taxpayer CNPJ for AssociarAssinatura, digits only")
	fs.StringVar(&opts.key, "chave", "", "Signing key for AssociarAssinatura")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.version, "version", false, "Show version info")
	fs.BoolVar(&opts.version, "v", false, "Show version info")
	err = fs.Parse(args)
	return
}

// operation maps --func to an entry point and its arguments.
func operation(opts options, conf config.MonitorConf) (ep driver.EntryPoint, args []string, err error) {
	if opts.function == "" {
		return driver.ConsultarStatusOperacional, []string{conf.ActivationCode}, nil
	}
	ep, ok := driver.Operation(opts.function)
	if !ok {
		return ep, nil, fmt.Errorf("unknown operation %q", opts.function)
	}
	if ep != driver.AssociarAssinatura {
		return ep, []string{conf.ActivationCode}, nil
	}
	if opts.taxpayer == "" || opts.key == "" {
		return ep, nil, errors.New("AssociarAssinatura requires --cnpj-contribuinte and --chave")
	}
	if !digitsOnly.MatchString(opts.taxpayer) {
		return ep, nil, fmt.Errorf("invalid taxpayer CNPJ %q: digits only", opts.taxpayer)
	}
	return ep, []string{conf.ActivationCode, conf.DeveloperCNPJ + opts.taxpayer, opts.key}, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, driver.Open))
}

func run(args []string, stdout, stderr io.Writer, open driver.Opener) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}
	if opts.version {
		printVersionInfo(stdout)
		return 0
	}

	conf, err := config.ParseMonitorConfig(opts.configPath)
	if err != nil {
		logger.Error("Invalid configuration", slog.String("path", opts.configPath), slog.Any("error", err))
		return 1
	}
	if opts.debug {
		conf.EnableDebug()
	}
	if conf.LogFile != "" {
		f, err := os.OpenFile(conf.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("Cannot open log file, logging to stderr", slog.String("path", conf.LogFile), slog.Any("error", err))
		} else {
			defer f.Close()
			logger.SetOutput(f)
		}
	}
	logger.SetLogLevel(conf.GetLogLevel())
	if opts.code != "" {
		conf.ActivationCode = opts.code
	}

	ep, callArgs, err := operation(opts, conf)
	if err != nil {
		logger.Error("Invalid arguments", slog.Any("error", err))
		return 1
	}

	reg := prometheus.NewRegistry()
	config.RegisterBuildInfo(reg, program)
	metrics := broker.NewMetrics(reg)

	if conf.Isolation.Enabled {
		logger.Debug("Running driver out of process", slog.String("host", conf.Isolation.HostBinary))
		open = drvhost.Opener(conf.Isolation.HostBinary)
	}
	b := broker.New(broker.Options{
		Open:           open,
		Resolver:       fabricante.NewResolver(fabricante.NewRegistry(conf.PosnetDir, conf.FallbackDir)),
		Paths:          state.PathFile{Path: conf.SatConf},
		Candidates:     conf.LibraryCandidates,
		ActivationCode: conf.ActivationCode,
		MaxAttempts:    conf.Retry.MaxAttempts,
		Timeout:        conf.Retry.Timeout,
		Grace:          conf.Retry.Grace,
		Metrics:        metrics,
	})

	dispatcher := observer.FromTargets(conf.Targets, conf.WorkingDir, reg)
	defer dispatcher.Cleanup()

	report := observer.NewReport(program, config.Version, ep.Name)
	report.Library = opts.lib
	if opts.manufacturer != nil {
		report.Manufacturer = opts.manufacturer.String()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sel := broker.Selection{Library: opts.lib, Manufacturer: opts.manufacturer}
	var out broker.Outcome
	if ep == driver.ConsultarStatusOperacional {
		out, err = b.Status(ctx, sel)
	} else {
		out, err = b.Operate(ctx, sel, ep, callArgs...)
	}

	code := 1
	if err != nil {
		report.SetError(err)
		logger.Error("Driver call failed", slog.String("operation", ep.Name), slog.Any("error", err))
	} else {
		report.SetOutcome(out)
		code = present(stdout, conf, ep, out, &report)
	}

	if conf.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(conf.Metrics.Textfile, reg); err != nil {
			logger.Warn("Failed to write metrics textfile", slog.String("path", conf.Metrics.Textfile), slog.Any("error", err))
		}
	}
	dispatcher.NotifyAll(report)
	return code
}

// scansNetwork reports whether a run of ep without a driver falls back to
// looking up a network SAT in config.pdv.
func scansNetwork(ep driver.EntryPoint) bool {
	return ep == driver.ConsultarStatusOperacional || ep == driver.DesbloquearSAT
}

// present prints the result of out and returns the exit code.
func present(stdout io.Writer, conf config.MonitorConf, ep driver.EntryPoint, out broker.Outcome, report *observer.Report) int {
	switch {
	case out.Kind == broker.DriverMissing && !scansNetwork(ep):
		logger.Error("No SAT driver found, operation not run", slog.String("operation", ep.Name))
		return 1
	case out.Kind == broker.DriverMissing:
		endpoint, err := recovery.ScanForEndpoint(conf.ConfigPDV, conf.ActivationCode)
		if err != nil {
			logger.Info("No SAT driver and no network SAT found", slog.Any("error", err))
			fmt.Fprint(stdout, "|SAT Rede 0")
			return 1
		}
		report.SetRecovered(endpoint.Address)
		fmt.Fprintf(stdout, "|SAT Rede %s", endpoint.Address)
		return 0
	case !out.OK():
		logger.Error("Driver did not succeed", slog.String("operation", ep.Name), slog.String("outcome", out.Kind.String()),
			slog.Int("attempts", out.Attempts), slog.String("answer", out.Payload))
		return 1
	}

	if ep == driver.ExtrairLogs {
		if err := state.NewExtractedLog(conf.ExtractedLog).Write(out.Payload); err != nil {
			logger.Error("Failed to save extracted log", slog.String("path", conf.ExtractedLog), slog.Any("error", err))
		} else {
			logger.Info("Extracted log saved", slog.String("path", conf.ExtractedLog))
		}
	}
	fmt.Fprint(stdout, out.Payload)
	return 0
}
