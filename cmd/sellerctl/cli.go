package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"seller-center/internal/app"
	"seller-center/internal/config"
	"seller-center/internal/event"
	"seller-center/internal/logger"
	"seller-center/internal/notify"
	"seller-center/internal/session"
)

type command struct {
	name    string
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "login", summary: "sign in through the browser", run: (*cli).login},
	{name: "whoami", summary: "show the signed-in user", run: (*cli).whoami},
	{name: "refresh", summary: "renew the access token if it is about to expire", run: (*cli).refresh},
	{name: "logout", summary: "forget the session and print the sign-out URL", run: (*cli).logout},
	{name: "categories", summary: "list product categories", run: (*cli).categories},
	{name: "admins", summary: "list administrators", run: (*cli).admins},
	{name: "settings", summary: "show or change user settings", run: (*cli).settings},
}

type cli struct {
	cfg         *config.Config
	stdout      io.Writer
	stderr      io.Writer
	openBrowser func(target string) error

	sessionFile string
	jsonOutput  bool
	verbose     bool

	bus    *event.InMemoryBus
	logger *slog.Logger
}

func (c *cli) run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("sellerctl", pflag.ContinueOnError)
	flags.SetOutput(c.stderr)
	flags.SetInterspersed(false)
	flags.StringVar(&c.sessionFile, "session-file", defaultSessionFile(), "file that holds the session between commands")
	flags.BoolVar(&c.jsonOutput, "json", false, "print JSON instead of text")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log requests to stderr")
	flags.Usage = func() { c.usage(flags) }

	if err := flags.Parse(args); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		c.usage(flags)
		return pflag.ErrHelp
	}

	for _, cmd := range commands {
		if cmd.name != rest[0] {
			continue
		}

		level := "warn"
		if c.verbose {
			level = "debug"
		}
		c.logger = logger.New(c.stderr, "pretty", level)
		c.bus = event.NewBus()

		notifications, unsubscribe := c.bus.Subscribe()
		defer unsubscribe()

		err := cmd.run(c, ctx, rest[1:])
		c.printNotifications(notifications)
		return err
	}

	return fmt.Errorf("unknown command %q (run sellerctl --help)", rest[0])
}

func (c *cli) usage(flags *pflag.FlagSet) {
	fmt.Fprintf(c.stderr, "Seller Center command line client.\n\nUsage:\n  sellerctl [flags] <command> [command flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(c.stderr, "  %-11s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(c.stderr, "\nFlags:\n")
	flags.PrintDefaults()
}

// pipeline builds the request pipeline over the session file. cfg overrides
// the loaded configuration when set.
func (c *cli) pipeline(cfg *config.Config) (*app.Pipeline, error) {
	if cfg == nil {
		cfg = c.cfg
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	backend, err := session.NewFileBackend(c.sessionFile)
	if err != nil {
		return nil, err
	}
	return app.NewPipeline(cfg, backend, c.bus, c.logger), nil
}

// printNotifications reports what the pipeline raised while the command ran.
func (c *cli) printNotifications(events <-chan event.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case event.TypeNotificationRaised:
				if n, ok := e.Payload.(notify.Notification); ok {
					fmt.Fprintf(c.stderr, "%s: %s\n", n.Title, n.Message)
				}
			case event.TypeSignInRequired:
				fmt.Fprintln(c.stderr, "Your session has ended. Run `sellerctl login` to sign in again.")
			}
		default:
			return
		}
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func subcommandFlags(name string, stderr io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("sellerctl "+name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	return flags
}

func defaultSessionFile() string {
	if path := strings.TrimSpace(os.Getenv("SESSION_FILE")); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sellerctl-session.json"
	}
	return filepath.Join(dir, "seller-center", "session.json")
}
