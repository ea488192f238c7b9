package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <key>",
	Short: "Report whether a redirect key has a usable target",
	Long: `Report whether a redirect key has a usable target.

Exits with status 1 when the key does not resolve.

Examples:
  boxctl check box-07
  boxctl check promo/spring`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var openCmd = &cobra.Command{
	Use:   "open <key>",
	Short: "Print the URL a redirect key points to",
	Long: `Print the URL a redirect key points to, without following it.

Examples:
  boxctl open box-07
  xdg-open "$(boxctl open -q box-07)"`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runCheck(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	exists, err := client.RedirectExists(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := writeCheckJSON(args[0], exists); err != nil {
			return err
		}
	} else if !quiet {
		state := "exists"
		if !exists {
			state = "not found"
		}
		fmt.Printf("%s: %s\n", args[0], state)
	}

	if !exists {
		return &exitError{code: 1}
	}
	return nil
}

func writeCheckJSON(key string, exists bool) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Key    string `json:"key"`
		Exists bool   `json:"exists"`
	}{Key: key, Exists: exists})
}

func runOpen(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	target, err := client.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return getFormatter().FormatRedirect(os.Stdout, args[0], target)
}
