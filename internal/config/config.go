package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_CONFIG         = "/ariusmonitor/conf/monitora.yaml"
	DEFAULT_POSNET_DIR     = "/posnet"
	DEFAULT_FALLBACK_DIR   = "/ariusmonitor/libs/32-bits"
	DEFAULT_SAT_CONF       = "/ariusmonitor/sat.conf"
	DEFAULT_CONFIG_PDV     = "/posnet/config.pdv"
	DEFAULT_EXTRACTED_LOG  = "/ariusmonitor/log_sat/log_file.log"
	DEFAULT_WORKING_DIR    = "/ariusmonitor/data"
	DEFAULT_CODE           = "123456789"
	DEFAULT_DEVELOPER_CNPJ = "03995946000123"
	DEFAULT_ATTEMPTS       = 3
	DEFAULT_TIMEOUT        = 6 * time.Second
	DEFAULT_METRICS_PORT   = 2021
)

// Library file names probed, in order, when no driver path is known.
var defaultLibraries = []string{
	"libSatGer.so",
	"libsatelgin.so",
	"libsat-smart.so",
	"libsatelgin-linker2.so",
	"libsatelgin-smart.so",
	"libsattanca.so",
	"libbemasat.so",
	"libsatprotocol.so",
	"libsatid.so",
	"libdllsatElgin2.so",
	"libsat-linker1.so",
	"libsat-linker2.so",
	"libsatelgin-linker1.so",
	"libsatsweda.so",
	"libmfe.so",
}

var defaultPorts = []string{
	"/dev/usb/lp0",
	"/dev/lp0",
	"/dev/usb/lp1",
	"/dev/lp1",
	"/dev/ttyUSB0",
	"/dev/ttyUSB1",
	"/dev/ttyS0",
	"/dev/ttyS1",
}

type MonitorConf struct {
	LogLevel          string        `yaml:"log_level"`
	LogFile           string        `yaml:"log_file"`
	PosnetDir         string        `yaml:"posnet_dir"`
	FallbackDir       string        `yaml:"fallback_dir"`
	SatConf           string        `yaml:"sat_conf"`
	ConfigPDV         string        `yaml:"config_pdv"`
	ExtractedLog      string        `yaml:"extracted_log"`
	ActivationCode    string        `yaml:"activation_code"`
	DeveloperCNPJ     string        `yaml:"developer_cnpj"`
	WorkingDir        string        `yaml:"working_dir"`
	Retry             RetryConf     `yaml:"retry"`
	Isolation         IsolationConf `yaml:"isolation"`
	LibraryCandidates []string      `yaml:"library_candidates"`
	PrinterPorts      []string      `yaml:"printer_ports"`
	Metrics           MetricsConf   `yaml:"metrics"`
	Targets           []Target      `yaml:"targets"`
	Forwarder         ForwarderConf `yaml:"forwarder"`
	Update            UpdateConf    `yaml:"update"`
	slogLevel         slog.Level
}

type RetryConf struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	// Grace is how long past Timeout a native call may keep running before
	// it is abandoned. Zero waits for the call to return.
	Grace time.Duration `yaml:"grace"`
}

type IsolationConf struct {
	Enabled    bool   `yaml:"enabled"`
	HostBinary string `yaml:"host_binary"`
}

type MetricsConf struct {
	Textfile      string `yaml:"textfile"`
	ListenAddress string `yaml:"listen_address"`
	ListenPort    int    `yaml:"listen_port"`
}

type ForwarderConf struct {
	PDVConf      string        `yaml:"pdv_conf"`
	LogDir       string        `yaml:"log_dir"`
	LogPrefix    string        `yaml:"log_prefix"`
	Trigger      string        `yaml:"trigger"`
	Resume       bool          `yaml:"resume"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type UpdateConf struct {
	Enabled    bool          `yaml:"enabled"`
	VersionURL string        `yaml:"version_url"`
	BinaryURL  string        `yaml:"binary_url"`
	Target     string        `yaml:"target"`
	Script     string        `yaml:"script"`
	Interval   time.Duration `yaml:"interval"`
}

func (mc *MonitorConf) setLogLevel() {
	switch mc.LogLevel {
	case "DEBUG":
		mc.slogLevel = slog.LevelDebug
	case "INFO":
		mc.slogLevel = slog.LevelInfo
	case "WARN":
		mc.slogLevel = slog.LevelWarn
	case "ERROR":
		mc.slogLevel = slog.LevelError
	default:
		mc.slogLevel = slog.LevelInfo
	}
}

func (mc *MonitorConf) GetLogLevel() slog.Level {
	return mc.slogLevel
}

// EnableDebug forces debug logging, used by the --debug flags.
func (mc *MonitorConf) EnableDebug() {
	mc.LogLevel = "DEBUG"
	mc.setLogLevel()
}

// Default returns a configuration with every default applied.
func Default() MonitorConf {
	conf := MonitorConf{}
	conf.applyDefaults()
	return conf
}

// ParseMonitorConfig reads the YAML config at path. A missing file is not an
// error, the tools must run on a bare PDV with defaults only.
func ParseMonitorConfig(path string) (conf MonitorConf, err error) {
	file, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return conf, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if err = yaml.Unmarshal(file, &conf); err != nil {
		return conf, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	conf.applyDefaults()
	return conf, nil
}

func (mc *MonitorConf) applyDefaults() {
	mc.setPaths()
	mc.setRetry()
	mc.setCandidates()
	mc.setPorts()
	mc.setMetrics()
	mc.setForwarder()
	mc.setUpdate()
	mc.setOfflineBuffers()
	mc.setLogLevel()
	if mc.ActivationCode == "" {
		mc.ActivationCode = DEFAULT_CODE
	}
	if mc.DeveloperCNPJ == "" {
		mc.DeveloperCNPJ = DEFAULT_DEVELOPER_CNPJ
	}
}

func setDefault(value *string, def string) {
	if *value == "" {
		*value = def
	}
}

func (mc *MonitorConf) setPaths() {
	setDefault(&mc.PosnetDir, DEFAULT_POSNET_DIR)
	setDefault(&mc.FallbackDir, DEFAULT_FALLBACK_DIR)
	setDefault(&mc.SatConf, DEFAULT_SAT_CONF)
	setDefault(&mc.ConfigPDV, DEFAULT_CONFIG_PDV)
	setDefault(&mc.ExtractedLog, DEFAULT_EXTRACTED_LOG)
	setDefault(&mc.WorkingDir, DEFAULT_WORKING_DIR)
	setDefault(&mc.Isolation.HostBinary, "satdriverhost")
}

func (mc *MonitorConf) setRetry() {
	if mc.Retry.MaxAttempts <= 0 {
		mc.Retry.MaxAttempts = DEFAULT_ATTEMPTS
	}
	if mc.Retry.Timeout <= 0 {
		mc.Retry.Timeout = DEFAULT_TIMEOUT
	}
	if mc.Retry.Grace < 0 {
		mc.Retry.Grace = 0
	}
	// an isolated host can always be killed, so never wait forever on it
	if mc.Isolation.Enabled && mc.Retry.Grace == 0 {
		mc.Retry.Grace = 2 * time.Second
	}
}

func (mc *MonitorConf) setCandidates() {
	if len(mc.LibraryCandidates) > 0 {
		return
	}
	mc.LibraryCandidates = make([]string, 0, len(defaultLibraries))
	for _, lib := range defaultLibraries {
		mc.LibraryCandidates = append(mc.LibraryCandidates, filepath.Join(mc.PosnetDir, lib))
	}
}

func (mc *MonitorConf) setPorts() {
	if len(mc.PrinterPorts) == 0 {
		mc.PrinterPorts = append([]string(nil), defaultPorts...)
	}
}

func (mc *MonitorConf) setMetrics() {
	if mc.Metrics.ListenPort == 0 {
		mc.Metrics.ListenPort = DEFAULT_METRICS_PORT
	}
}

func (mc *MonitorConf) setForwarder() {
	setDefault(&mc.Forwarder.PDVConf, filepath.Join(mc.PosnetDir, "pdv.conf"))
	setDefault(&mc.Forwarder.LogDir, mc.PosnetDir)
	setDefault(&mc.Forwarder.LogPrefix, "logpdv")
	setDefault(&mc.Forwarder.Trigger, "CAIXA LIVRE")
	if mc.Forwarder.DialTimeout <= 0 {
		mc.Forwarder.DialTimeout = 5 * time.Second
	}
	if mc.Forwarder.PollInterval <= 0 {
		mc.Forwarder.PollInterval = 500 * time.Millisecond
	}
}

func (mc *MonitorConf) setUpdate() {
	setDefault(&mc.Update.VersionURL, "http://repo.ariusmonitor.flagee.cloud/versao_filadpvclient.txt")
	setDefault(&mc.Update.BinaryURL, "http://repo.ariusmonitor.flagee.cloud/FilaPDVClient")
	setDefault(&mc.Update.Target, "/ariusmonitor/FilaPDVClient")
	setDefault(&mc.Update.Script, "/ariusmonitor/update_filapdvclient.sh")
	if mc.Update.Interval <= 0 {
		mc.Update.Interval = 10 * time.Minute
	}
}

func (mc *MonitorConf) setOfflineBuffers() {
	for i := range mc.Targets {
		if mc.Targets[i].OfflineBufferTime < 0 {
			mc.Targets[i].OfflineBufferTime = 0
		}
	}
}
