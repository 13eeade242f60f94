// Package cli implements cratesctl, the command-line client of the
// registry.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joaopapereira/crates.io/internal/client/client"
	"github.com/joaopapereira/crates.io/internal/client/config"
	"github.com/spf13/cobra"
)

// Registry is the subset of the gRPC client the commands use.
type Registry interface {
	Publish(ctx context.Context, meta any, tarball []byte) (client.Response, error)
	Show(ctx context.Context, name string) (client.Response, error)
	Versions(ctx context.Context, name string) (client.Response, error)
	Owners(ctx context.Context, name string) (client.Response, error)
	AddOwners(ctx context.Context, name string, logins []string) error
	RemoveOwners(ctx context.Context, name string, logins []string) error
	Search(ctx context.Context, o client.SearchOptions) (client.Response, error)
	ReverseDependencies(ctx context.Context, name string, page, perPage int) (client.Response, error)
	Summary(ctx context.Context) (client.Response, error)
	Downloads(ctx context.Context, name string) (client.Response, error)
	Download(ctx context.Context, name, vers string) (string, error)
	Follow(ctx context.Context, name string) error
	Unfollow(ctx context.Context, name string) error
	Following(ctx context.Context, name string) (bool, error)
	Close() error
}

// Dialer opens a Registry for the resolved configuration.
type Dialer func(cfg *config.Config) (Registry, error)

// DialGRPC is the production Dialer.
func DialGRPC(cfg *config.Config) (Registry, error) {
	return client.NewRegistryClient(cfg.ServerEndpointAddr, cfg.Token, cfg.CallTimeout)
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	dial   Dialer

	configPath string
	addr       string
	token      string
	registry   Registry
}

// New creates a CLI that logs to w and connects through dial.
func New(w io.Writer, dial Dialer) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           log.InfoLevel,
		}),
		dial: dial,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "cratesctl",
		Short:        "cratesctl talks to a crate registry",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.Logger.SetLevel(log.DebugLevel)
			}
			return c.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.registry == nil {
				return nil
			}
			return c.registry.Close()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "JSON config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVarP(&c.addr, "addr", "a", "", "registry gRPC address")
	root.PersistentFlags().StringVar(&c.token, "token", os.Getenv("CRATES_TOKEN"), "access token (default $CRATES_TOKEN)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.publishCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.ownerCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.reverseDependenciesCommand())
	root.AddCommand(c.summaryCommand())
	root.AddCommand(c.downloadsCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.followCommand())
	root.AddCommand(c.unfollowCommand())

	return root
}

// connect resolves the configuration and dials the registry. Flags win
// over the config file.
func (c *CLI) connect() error {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.ServerEndpointAddr = c.addr
	}
	if c.token != "" {
		cfg.Token = c.token
	}

	c.Logger.Debug("connecting", "addr", cfg.ServerEndpointAddr, "authenticated", cfg.Token != "")
	r, err := c.dial(cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerEndpointAddr, err)
	}
	c.registry = r
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the CLI until ctx is cancelled.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := New(stderr, DialGRPC)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
