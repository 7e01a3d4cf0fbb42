package cli

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CLIArgs are the command-line arguments for one run. With FetchURL empty
// the program serves the inspection API; otherwise it captures a single
// request and exits.
type CLIArgs struct {
	// ConfigPath points at a YAML config file; empty means built-in defaults.
	ConfigPath string

	// Addr overrides server.listen_addr from the config.
	Addr string

	// LogLevel overrides log_level from the config.
	LogLevel string

	// FetchURL switches to one-shot mode.
	FetchURL string

	Method  string
	Headers http.Header
	Data    string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// FetchMode reports whether a one-shot capture was requested.
func (a *CLIArgs) FetchMode() bool {
	return a.FetchURL != ""
}

// headerFlag collects repeated -H "Name: value" flags.
type headerFlag struct {
	h http.Header
}

func (f *headerFlag) String() string {
	if f == nil || len(f.h) == 0 {
		return ""
	}
	var parts []string
	for k, vs := range f.h {
		for _, v := range vs {
			parts = append(parts, k+": "+v)
		}
	}
	return strings.Join(parts, ", ")
}

func (f *headerFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("header %q must look like 'Name: value'", s)
	}
	f.h.Add(name, strings.TrimSpace(value))
	return nil
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("flipper", flag.ContinueOnError)
	headers := &headerFlag{h: http.Header{}}
	var (
		configPath = fs.String("config", "", "Path to a YAML config file")
		addr       = fs.String("addr", "", "Listen address for the inspection API (overrides config)")
		logLevel   = fs.String("log-level", "", "Log level: debug|info|warn|error (overrides config)")
		fetchURL   = fs.String("fetch", "", "Capture a single request to this URL and print it as JSON")
		method     = fs.String("method", http.MethodGet, "HTTP method for -fetch")
		data       = fs.String("data", "", "Request body for -fetch")
	)
	fs.Var(headers, "H", "Request header for -fetch, 'Name: value' (repeatable)")

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	target := strings.TrimSpace(*fetchURL)
	if target == "" && (*data != "" || len(headers.h) > 0) {
		return nil, fmt.Errorf("-data and -H require -fetch")
	}

	m := strings.ToUpper(strings.TrimSpace(*method))
	if m == "" {
		m = http.MethodGet
	}

	return &CLIArgs{
		ConfigPath: *configPath,
		Addr:       *addr,
		LogLevel:   *logLevel,
		FetchURL:   target,
		Method:     m,
		Headers:    headers.h,
		Data:       *data,
		RawArgs:    args,
	}, nil
}
