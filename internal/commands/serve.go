package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tmarquez/geminiflow/internal/api"
	"github.com/tmarquez/geminiflow/internal/logging"
	"github.com/tmarquez/geminiflow/internal/models"
	"github.com/tmarquez/geminiflow/internal/server"
)

var (
	serveAddrFlag    string
	serveLogFileFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the chat pipeline over HTTP",
	Long: `Starts an HTTP server with three endpoints:

  GET  /health   liveness probe
  POST /chat     buffered request/response
  POST /stream   server-sent events, one event per delta`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(debugFlag)
		if serveLogFileFlag != "" {
			logging.UseFile(serveLogFileFlag)
		}

		_, cfg, err := buildClient()
		if err != nil {
			return err
		}

		chat := func(ctx context.Context, params server.ChatParams) (*api.Stream, error) {
			opts := []api.ClientOption{
				api.WithModel(models.ModelFromName(cfg.DefaultModel)),
				api.WithLanguage(cfg.Language),
				api.WithProxy(cfg.Proxy),
				api.WithAutoRefresh(cfg.AutoRefresh),
				api.WithSaveImages(cfg.SaveImages),
				api.WithImageDir(cfg.ImageDir),
				api.WithDebug(debugFlag),
			}
			if params.Model != "" {
				opts = append(opts, api.WithModel(models.ModelFromName(params.Model)))
			}
			if params.Language != "" {
				opts = append(opts, api.WithLanguage(params.Language))
			}
			client := api.NewClient(cfg.CookieDir, opts...)
			return client.StreamChat(ctx, params.Prompt, params.Images)
		}

		srv := server.New(chat)
		return srv.Run(serveAddrFlag)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveLogFileFlag, "log-file", "", "write logs to a rotating file")
}
