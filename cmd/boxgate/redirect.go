package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/config"
	"github.com/sagarc03/boxgate/database"
)

var redirectCmd = &cobra.Command{
	Use:   "redirect",
	Short: "Manage redirect entries",
	Long: `Manage the redirect directory served at GET /<key>.

Examples:
  # Point box 7 at its shop page
  boxgate redirect set box-07 https://shop.example.com/boxes/7

  # Import the legacy boxes.csv (columns: id,url)
  boxgate redirect import boxes.csv`,
}

var redirectSetCmd = &cobra.Command{
	Use:   "set <key> <url>",
	Short: "Create or replace a redirect",
	Args:  cobra.ExactArgs(2),
	RunE: withRedirects(func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error {
		entry, err := repo.Set(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", entry.Key, entry.URL)
		return nil
	}),
}

var redirectGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the target of a redirect",
	Args:  cobra.ExactArgs(1),
	RunE: withRedirects(func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error {
		target, err := repo.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	}),
}

var redirectRemoveCmd = &cobra.Command{
	Use:     "rm <key>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a redirect",
	Args:    cobra.ExactArgs(1),
	RunE: withRedirects(func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error {
		return repo.Delete(cmd.Context(), args[0])
	}),
}

var redirectListJSON bool

var redirectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every redirect",
	Args:  cobra.NoArgs,
	RunE: withRedirects(func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error {
		entries, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}

		if redirectListJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "KEY\tURL\tUPDATED")
		for _, e := range entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.URL, e.UpdatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	}),
}

var redirectImportDryRun bool

var redirectImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import redirects from CSV",
	Long: `Import redirects from a CSV file with a header row naming a "url" column
and either a "key" or an "id" column. Ids are box numbers and become keys of
the form box-NN. Rows with an empty url are skipped. Existing keys are
overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: withRedirects(func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		entries, err := boxgate.ParseRedirectCSV(f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range entries {
			if !redirectImportDryRun {
				if _, err := repo.Set(cmd.Context(), e.Key, e.URL); err != nil {
					return fmt.Errorf("import %s: %w", e.Key, err)
				}
			}
			_, _ = fmt.Fprintf(out, "%s -> %s\n", e.Key, e.URL)
		}

		verb := "imported"
		if redirectImportDryRun {
			verb = "would import"
		}
		_, _ = fmt.Fprintf(out, "%s %d redirect(s)\n", verb, len(entries))
		return nil
	}),
}

func init() {
	redirectListCmd.Flags().BoolVar(&redirectListJSON, "json", false, "print entries as JSON")
	redirectImportCmd.Flags().BoolVar(&redirectImportDryRun, "dry-run", false, "parse and print without writing")

	redirectCmd.AddCommand(redirectSetCmd, redirectGetCmd, redirectRemoveCmd, redirectListCmd, redirectImportCmd)
	rootCmd.AddCommand(redirectCmd)
}

// withRedirects opens the database for the duration of one redirect command.
func withRedirects(run func(cmd *cobra.Command, repo boxgate.RedirectRepo, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		var db database.Database
		db, err = openDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return run(cmd, db.Redirects(), args)
	}
}
