// Package commands provides the geminiflow CLI.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmarquez/geminiflow/internal/logging"
)

var (
	// Global flags
	modelFlag      string
	languageFlag   string
	imageFlags     []string
	proxyFlag      string
	cookieDirFlag  string
	browserFlag    string
	fileFlag       string
	debugFlag      bool
	noRefreshFlag  bool
	noSaveFlag     bool
	renderFlag     bool
	copyFlag       bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "geminiflow [prompt]",
	Short: "Streaming CLI for the Gemini web interface",
	Long: `geminiflow talks to the Gemini web interface using exported browser
session cookies instead of an API key, and streams the reply as it arrives.

Examples:
  geminiflow "What is Go?"                  Send a single prompt
  geminiflow -f prompt.md                   Read prompt from file
  cat prompt.md | geminiflow                Read prompt from stdin
  geminiflow -m gemini-3-pro-image "a cat"  Generate an image
  geminiflow import-cookies cookies.json    Import a browser cookie export
  geminiflow serve --addr :8080             Expose the pipeline over HTTP`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("geminiflow %s (built %s)\n", Version, BuildTime)
			return nil
		}

		logging.Setup(debugFlag)

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(string(data))
		}

		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data))
		}

		if len(args) > 0 {
			return runQuery(args[0])
		}

		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "print version")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "model name")
	rootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "", "UI language sent with the request")
	rootCmd.PersistentFlags().StringVar(&proxyFlag, "proxy", "", "proxy URL for all connections")
	rootCmd.PersistentFlags().StringVar(&cookieDirFlag, "cookie-dir", "", "directory of exported cookie JSON files")
	rootCmd.PersistentFlags().StringVar(&browserFlag, "browser", "", "browser for cookie refresh (auto, chrome, firefox, edge, chromium, opera)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log raw payload previews")
	rootCmd.PersistentFlags().BoolVar(&noRefreshFlag, "no-refresh", false, "disable the one-shot browser cookie refresh on failure")
	rootCmd.PersistentFlags().BoolVar(&noSaveFlag, "no-save-images", false, "emit image URLs instead of saving to disk")
	rootCmd.Flags().StringSliceVarP(&imageFlags, "image", "i", nil, "image file to attach (repeatable)")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "read prompt from file")
	rootCmd.Flags().BoolVar(&renderFlag, "render", false, "render the final response as markdown")
	rootCmd.Flags().BoolVar(&copyFlag, "copy", false, "copy the final response to the clipboard")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCookiesCmd)
	rootCmd.AddCommand(refreshCookiesCmd)
	rootCmd.AddCommand(modelsCmd)
}
