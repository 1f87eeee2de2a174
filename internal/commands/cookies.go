package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmarquez/geminiflow/internal/browser"
	"github.com/tmarquez/geminiflow/internal/config"
	"github.com/tmarquez/geminiflow/internal/logging"
)

var importCookiesCmd = &cobra.Command{
	Use:   "import-cookies <export.json>",
	Short: "Import a browser cookie export into the cookie directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(debugFlag)

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cookieDirFlag != "" {
			cfg.CookieDir = cookieDirFlag
		}

		if err := config.ImportCookies(args[0], cfg.CookieDir); err != nil {
			return err
		}
		fmt.Printf("Cookies imported into %s\n", cfg.CookieDir)
		return nil
	},
}

var refreshCookiesCmd = &cobra.Command{
	Use:   "refresh-cookies",
	Short: "Extract fresh cookies from the local browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(debugFlag)

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cookieDirFlag != "" {
			cfg.CookieDir = cookieDirFlag
		}
		if browserFlag != "" {
			cfg.Browser = browserFlag
		}

		browserType, err := browser.ParseBrowser(cfg.Browser)
		if err != nil {
			return err
		}

		if err := browser.RefreshCookieDir(context.Background(), browserType, cfg.CookieDir); err != nil {
			return err
		}
		fmt.Printf("Cookies refreshed into %s\n", cfg.CookieDir)
		return nil
	},
}
