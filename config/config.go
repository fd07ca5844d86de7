// Package config loads server configuration from CLI flags and an
// optional key/value file, matching Config::parse_arg and
// Config::load_from_file.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config mirrors the original's flat field set. Defaults match
// Config::Config()'s member-initializer list.
type Config struct {
	Port       int
	LogWrite   int // 0 = synchronous, 1 = asynchronous queue
	TrigMode   int // 0-3, expanded into Listen/Conn below
	ListenTrig int
	ConnTrig   int
	OptLinger  int
	SQLNum     int
	ThreadNum  int
	CloseLog   int
	ActorModel int // 0 = Proactor, 1 = Reactor

	DocRoot string
	DSN     string
}

func defaults() Config {
	return Config{
		Port:       9006,
		LogWrite:   0,
		TrigMode:   0,
		OptLinger:  0,
		SQLNum:     8,
		ThreadNum:  8,
		CloseLog:   0,
		ActorModel: 0,
	}
}

// Load parses args (typically os.Args[1:]) into a Config, applying
// -f <path> as a key/value override file if given, then deriving
// ListenTrig/ConnTrig from TrigMode unless the file set at least one of
// them to a nonzero value.
func Load(args []string) (*Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("tinyhttpd", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "listen port")
	fs.IntVar(&cfg.LogWrite, "l", cfg.LogWrite, "log write mode: 0=sync, 1=async")
	fs.IntVar(&cfg.TrigMode, "m", cfg.TrigMode, "trigger mode 0-3 (listen/conn LT or ET)")
	fs.IntVar(&cfg.OptLinger, "o", cfg.OptLinger, "SO_LINGER on connection close: 0=off, 1=on")
	fs.IntVar(&cfg.SQLNum, "s", cfg.SQLNum, "database connection pool size")
	fs.IntVar(&cfg.ThreadNum, "t", cfg.ThreadNum, "worker pool size")
	fs.IntVar(&cfg.CloseLog, "c", cfg.CloseLog, "disable logging: 0=enabled, 1=disabled")
	fs.IntVar(&cfg.ActorModel, "a", cfg.ActorModel, "dispatch model: 0=Proactor, 1=Reactor")
	var file string
	fs.StringVar(&file, "f", "", "load overrides from a key=value config file")
	fs.StringVar(&cfg.DocRoot, "d", "", "document root (defaults to ./root under the working directory)")
	fs.StringVar(&cfg.DSN, "dsn", "", "MySQL data source name (user:pass@tcp(host:port)/dbname)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	if cfg.ListenTrig == 0 && cfg.ConnTrig == 0 {
		cfg.ListenTrig, cfg.ConnTrig = expandTrigMode(cfg.TrigMode)
	}

	if cfg.DocRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: getwd: %w", err)
		}
		cfg.DocRoot = wd + "/root"
	}

	return &cfg, nil
}

// expandTrigMode matches SetTriggerMode: 0 -> LT/LT, 1 -> LT/ET, 2 ->
// ET/LT, 3 -> ET/ET (listen trigger, connection trigger).
func expandTrigMode(mode int) (listen, conn int) {
	switch mode {
	case 1:
		return 0, 1
	case 2:
		return 1, 0
	case 3:
		return 1, 1
	default:
		return 0, 0
	}
}

// legacyKeys maps the original's exact key spelling to lowercase
// aliases this loader also accepts, so a config file can be written
// either way.
var legacyKeys = map[string]string{
	"PORT":           "port",
	"LOGWrite":       "logwrite",
	"TRIGMode":       "trigmode",
	"LISTENTrigmode": "listentrigmode",
	"CONNTrigmode":   "conntrigmode",
	"OPT_LINGER":     "opt_linger",
	"sql_num":        "sql_num",
	"thread_num":     "thread_num",
	"close_log":      "close_log",
	"actor_model":    "actor_model",
}

func (cfg *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])

		canonical, ok := legacyKeys[key]
		if !ok {
			canonical = strings.ToLower(key)
		}

		n, err := strconv.Atoi(value)
		if err != nil {
			cfg.applyString(canonical, value)
			continue
		}
		cfg.applyInt(canonical, n)
	}
	return sc.Err()
}

func (cfg *Config) applyInt(key string, n int) {
	switch key {
	case "port":
		cfg.Port = n
	case "logwrite":
		cfg.LogWrite = n
	case "trigmode":
		cfg.TrigMode = n
	case "listentrigmode":
		cfg.ListenTrig = n
	case "conntrigmode":
		cfg.ConnTrig = n
	case "opt_linger":
		cfg.OptLinger = n
	case "sql_num":
		cfg.SQLNum = n
	case "thread_num":
		cfg.ThreadNum = n
	case "close_log":
		cfg.CloseLog = n
	case "actor_model":
		cfg.ActorModel = n
	}
}

func (cfg *Config) applyString(key, value string) {
	switch key {
	case "docroot":
		cfg.DocRoot = value
	case "dsn":
		cfg.DSN = value
	}
}
