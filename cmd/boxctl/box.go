package main

import (
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/sagarc03/boxgate/clientcli"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list <box>",
	Aliases: []string{"ls"},
	Short:   "List the files in a box",
	Long: `List the files in a box.

Examples:
  boxctl list 7
  boxctl list box-07 --json
  boxctl list -q 7 | xargs boxctl delete 7`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <box> <file> [file...]",
	Short: "Upload files to a box",
	Long: `Upload one or more files to a box in a single request.

Files are stored under their base name after normalization. Uploading a
name that already exists replaces it.

Examples:
  boxctl upload 7 intro.mp4
  boxctl upload box-12 slides.pdf notes.txt`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

var (
	downloadOutput string
	downloadStdout bool
	downloadRange  string
)

var downloadCmd = &cobra.Command{
	Use:   "download <box> <name> [local-path]",
	Short: "Download a file from a box",
	Long: `Download a file from a box.

Names are matched the same way the gateway matches them, so files stored
under an older normalization are still found.

Examples:
  boxctl download 7 intro.mp4
  boxctl download 7 intro.mp4 ./videos/intro.mp4
  boxctl download --range bytes=0-1023 7 intro.mp4 --stdout | xxd`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDownload,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <box> <name> [name...]",
	Aliases: []string{"rm"},
	Short:   "Delete files from a box",
	Long: `Delete one or more files from a box.

Deleting a file that does not exist succeeds.

Examples:
  boxctl delete 7 intro.mp4
  boxctl delete box-07 a.jpg b.jpg`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDelete,
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear <box>",
	Short: "Delete every file in a box",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
	downloadCmd.Flags().StringVarP(&downloadRange, "range", "r", "", "byte range, e.g. bytes=0-1023")

	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

func runList(cmd *cobra.Command, args []string) error {
	box, err := clientcli.ParseBoxArg(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context(), box)
	if err != nil {
		return err
	}

	return getFormatter().FormatList(os.Stdout, result)
}

func runUpload(cmd *cobra.Command, args []string) error {
	box, err := clientcli.ParseBoxArg(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Upload(cmd.Context(), box, args[1:])
	if err != nil {
		return err
	}

	return getFormatter().FormatUpload(os.Stdout, result)
}

func runDownload(cmd *cobra.Command, args []string) error {
	box, err := clientcli.ParseBoxArg(args[0])
	if err != nil {
		return err
	}

	localPath := ""
	if len(args) > 2 {
		localPath = args[2]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Download(cmd.Context(), box, clientcli.DownloadOptions{
		Name:      args[1],
		LocalPath: localPath,
		Range:     downloadRange,
	})
	if err != nil {
		return err
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// Stdout carries the content; metadata goes to stderr in JSON mode only.
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}

func runDelete(cmd *cobra.Command, args []string) error {
	box, err := clientcli.ParseBoxArg(args[0])
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), box, args[1:]...)
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	box, err := clientcli.ParseBoxArg(args[0])
	if err != nil {
		return err
	}

	if !clearYes {
		prompt := promptui.Prompt{
			Label:     "Delete every file in " + box.String(),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Clear(cmd.Context(), box)
	if err != nil {
		return err
	}

	return getFormatter().FormatClear(os.Stdout, result)
}
