package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joaopapereira/crates.io/internal/client/client"
	"github.com/spf13/cobra"
)

func (c *CLI) publishCommand() *cobra.Command {
	var manifest string

	cmd := &cobra.Command{
		Use:   "publish <file.crate>",
		Short: "Upload a packaged crate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(manifest)
			if err != nil {
				return fmt.Errorf("read metadata: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("metadata %s is not valid JSON", manifest)
			}
			tarball, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read crate: %w", err)
			}

			c.Logger.Debug("publishing", "crate", args[0], "bytes", len(tarball))
			resp, err := c.registry.Publish(cmd.Context(), json.RawMessage(raw), tarball)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&manifest, "metadata", "m", "metadata.json", "upload metadata JSON")
	return cmd
}

// nameCommand builds a command that takes a crate name and prints the reply.
func (c *CLI) nameCommand(use, short string, call func(*cobra.Command, string) (client.Response, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <crate>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := call(cmd, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (c *CLI) showCommand() *cobra.Command {
	return c.nameCommand("show", "Show a crate with its versions, keywords and categories",
		func(cmd *cobra.Command, name string) (client.Response, error) {
			return c.registry.Show(cmd.Context(), name)
		})
}

func (c *CLI) versionsCommand() *cobra.Command {
	return c.nameCommand("versions", "List the versions of a crate",
		func(cmd *cobra.Command, name string) (client.Response, error) {
			return c.registry.Versions(cmd.Context(), name)
		})
}

func (c *CLI) downloadsCommand() *cobra.Command {
	return c.nameCommand("downloads", "Show recent download counts of a crate",
		func(cmd *cobra.Command, name string) (client.Response, error) {
			return c.registry.Downloads(cmd.Context(), name)
		})
}

func (c *CLI) ownerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage the owners of a crate",
	}

	cmd.AddCommand(c.nameCommand("list", "List the owners of a crate",
		func(cmd *cobra.Command, name string) (client.Response, error) {
			return c.registry.Owners(cmd.Context(), name)
		}))

	cmd.AddCommand(&cobra.Command{
		Use:   "add <crate> <login>...",
		Short: "Invite users or github:org:team teams as owners",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.registry.AddOwners(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d owner(s) to %s\n", len(args)-1, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <crate> <login>...",
		Short: "Remove owners from a crate",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.registry.RemoveOwners(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d owner(s) from %s\n", len(args)-1, args[0])
			return nil
		},
	})

	return cmd
}

func (c *CLI) searchCommand() *cobra.Command {
	var o client.SearchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search and list crates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.Query = args[0]
			}
			resp, err := c.registry.Search(cmd.Context(), o)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.Letter, "letter", "", "crates starting with this letter")
	f.StringVar(&o.Keyword, "keyword", "", "crates tagged with this keyword")
	f.StringVar(&o.Category, "category", "", "crates in this category slug or its subcategories")
	f.BoolVar(&o.Following, "following", false, "crates followed by the authenticated user")
	f.StringVar(&o.Sort, "sort", "", "alpha or downloads")
	f.IntVar(&o.Page, "page", 0, "page number, starting from 1")
	f.IntVar(&o.PerPage, "per-page", 0, "results per page")
	return cmd
}

func (c *CLI) reverseDependenciesCommand() *cobra.Command {
	var page, perPage int

	cmd := c.nameCommand("rdeps", "List crates depending on a crate",
		func(cmd *cobra.Command, name string) (client.Response, error) {
			return c.registry.ReverseDependencies(cmd.Context(), name, page, perPage)
		})
	cmd.Flags().IntVar(&page, "page", 0, "page number, starting from 1")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "results per page")
	return cmd
}

func (c *CLI) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show registry totals and highlights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.registry.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (c *CLI) downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download <crate> <version>",
		Short: "Print the download URL of a crate version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := c.registry.Download(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func (c *CLI) followCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <crate>",
		Short: "Follow a crate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.registry.Follow(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) unfollowCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "unfollow <crate>",
		Short: "Stop following a crate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				following, err := c.registry.Following(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !following {
					fmt.Fprintf(cmd.OutOrStdout(), "not following %s\n", args[0])
					return nil
				}
			}
			return c.registry.Unfollow(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report instead of failing when the crate is not followed")
	return cmd
}
