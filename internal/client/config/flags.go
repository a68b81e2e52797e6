package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/recipehub/internal/flagx"
	"github.com/dmitrijs2005/recipehub/internal/timex"
)

// parseFlags populates cfg from -a and -t; other flags are ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API")
	timeout := timex.Duration{Duration: cfg.RequestTimeout}
	fs.Var(&timeout, "t", "request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.RequestTimeout = timeout.Duration
	return nil
}
