package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"ariusmonitor.flagee.cloud/internal/config"
	"ariusmonitor.flagee.cloud/internal/forwarder"
	"ariusmonitor.flagee.cloud/internal/logger"
	"ariusmonitor.flagee.cloud/internal/update"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	program     = "filapdvclient"
	defaultMode = "ariuspdv"
)

func printVersionInfo() {
	fmt.Printf("FilaPDVClient %s\n", config.Version)
	fmt.Printf("Git commit: %s\n", config.Commit)
	fmt.Printf("Compilation time: %s\n", config.BuildDate)
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <server-ip> <port> [%s|<identifier>]\n", program, defaultMode)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("c", config.DEFAULT_CONFIG, "Path of config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("v", false, "Show version info")
	flag.Usage = usage
	flag.Parse()

	if *version {
		printVersionInfo()
		os.Exit(0)
	}
	if flag.NArg() < 2 {
		usage()
		os.Exit(1)
	}
	port, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		logger.Error("Invalid port", slog.String("port", flag.Arg(1)))
		os.Exit(1)
	}
	mode := defaultMode
	if flag.NArg() > 2 {
		mode = flag.Arg(2)
	}

	conf, err := config.ParseMonitorConfig(*configPath)
	if err != nil {
		logger.Error("Invalid configuration", slog.String("path", *configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if *debug {
		conf.EnableDebug()
	}
	logger.SetLogLevel(conf.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sender := forwarder.NewSender(flag.Arg(0), port, conf.Forwarder.DialTimeout)
	if err := sender.Test(ctx); err != nil {
		logger.Error("Server unreachable. Exiting.", slog.Any("error", err))
		os.Exit(1)
	}

	if mode != defaultMode {
		if err := sender.Send(ctx, mode); err != nil {
			logger.Error("Failed to send identifier", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	os.Exit(follow(ctx, stop, conf, sender))
}

// follow runs the ariuspdv mode until a signal arrives or an update has
// been installed.
func follow(ctx context.Context, stop context.CancelFunc, conf config.MonitorConf, sender *forwarder.Sender) int {
	pdv, err := forwarder.ReadPDVNumber(conf.Forwarder.PDVConf)
	if err != nil {
		logger.Error("Cannot read PDV number", slog.String("path", conf.Forwarder.PDVConf), slog.Any("error", err))
		return 1
	}

	reg := prometheus.NewRegistry()
	config.RegisterBuildInfo(reg, program)
	serveMetrics(conf.Metrics, reg)

	var offsets *forwarder.Offsets
	if conf.Forwarder.Resume {
		offsets, err = forwarder.OpenOffsets(filepath.Join(conf.WorkingDir, "offsets"))
		if err != nil {
			logger.Warn("Offsets unavailable, reading from end of file", slog.Any("error", err))
		}
		defer offsets.Close()
	}

	updated := make(chan bool, 1)
	if conf.Update.Enabled {
		checker := update.NewChecker(conf.Update, config.Version)
		go func() {
			u := checker.Run(ctx)
			updated <- u
			if u {
				stop()
			}
		}()
	}

	forwarder.SetPollInterval(conf.Forwarder.PollInterval)
	fwd := forwarder.New(forwarder.Options{
		Sender:  sender,
		Message: pdv,
		Trigger: conf.Forwarder.Trigger,
		Offsets: offsets,
		Metrics: forwarder.NewMetrics(reg),
	})
	logfile := forwarder.LogFile(conf.Forwarder.LogDir, conf.Forwarder.LogPrefix, time.Now())
	if err := fwd.Follow(ctx, logfile); err != nil {
		logger.Error("Cannot follow log", slog.String("file", logfile), slog.Any("error", err))
		return 1
	}

	select {
	case u := <-updated:
		if u {
			logger.Info("Update installed, exiting")
		}
	default:
	}
	logger.Info("Exiting...")
	return 0
}

func serveMetrics(conf config.MetricsConf, reg *prometheus.Registry) {
	listen := fmt.Sprintf("%s:%d", conf.ListenAddress, conf.ListenPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics endpoint stopped", slog.String("listen", listen), slog.Any("error", err))
		}
	}()
}
