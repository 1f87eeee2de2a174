package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/api"
	"github.com/tmarquez/geminiflow/internal/browser"
	"github.com/tmarquez/geminiflow/internal/config"
	"github.com/tmarquez/geminiflow/internal/models"
	"github.com/tmarquez/geminiflow/internal/render"
)

var (
	imageNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// buildClient assembles a GeminiClient from the merged config and CLI flags.
func buildClient() (*api.GeminiClient, config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, cfg, err
	}

	if modelFlag != "" {
		cfg.DefaultModel = modelFlag
	}
	if languageFlag != "" {
		cfg.Language = languageFlag
	}
	if proxyFlag != "" {
		cfg.Proxy = proxyFlag
	}
	if cookieDirFlag != "" {
		cfg.CookieDir = cookieDirFlag
	}
	if browserFlag != "" {
		cfg.Browser = browserFlag
	}
	if noRefreshFlag {
		cfg.AutoRefresh = false
	}
	if noSaveFlag {
		cfg.SaveImages = false
	}

	model := models.ModelFromName(cfg.DefaultModel)

	browserType, err := browser.ParseBrowser(cfg.Browser)
	if err != nil {
		return nil, cfg, err
	}

	client := api.NewClient(cfg.CookieDir,
		api.WithModel(model),
		api.WithLanguage(cfg.Language),
		api.WithProxy(cfg.Proxy),
		api.WithAutoRefresh(cfg.AutoRefresh),
		api.WithBrowser(browserType),
		api.WithSaveImages(cfg.SaveImages),
		api.WithImageDir(cfg.ImageDir),
		api.WithDebug(debugFlag),
	)
	return client, cfg, nil
}

// loadImages reads the files named by --image into upload inputs.
func loadImages(paths []string) ([]api.ImageInput, error) {
	var images []api.ImageInput
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", path, err)
		}
		images = append(images, api.ImageInput{
			Data: data,
			Name: filepath.Base(path),
		})
	}
	return images, nil
}

// runQuery sends a single prompt and streams the reply to stdout.
func runQuery(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	client, _, err := buildClient()
	if err != nil {
		return err
	}

	images, err := loadImages(imageFlags)
	if err != nil {
		return err
	}

	stream, err := client.StreamChat(context.Background(), prompt, images)
	if err != nil {
		return err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		unit, ok := stream.Recv()
		if !ok {
			break
		}
		if unit.Image != nil {
			printImageNotice(unit.Image)
			continue
		}
		if !renderFlag {
			fmt.Print(unit.Text)
		}
		full.WriteString(unit.Text)
	}
	if err := stream.Err(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return err
	}
	if !renderFlag {
		fmt.Println()
	}

	if renderFlag && full.Len() > 0 {
		out, err := render.Markdown(full.String(), render.TerminalWidth())
		if err != nil {
			logrus.Debugf("markdown render failed: %v", err)
			fmt.Println(full.String())
		} else {
			fmt.Print(out)
		}
	}

	if copyFlag && full.Len() > 0 {
		if err := clipboard.WriteAll(full.String()); err != nil {
			logrus.Warnf("clipboard copy failed: %v", err)
		} else {
			fmt.Fprintln(os.Stderr, "Copied to clipboard.")
		}
	}

	return nil
}

func printImageNotice(img *api.ImageResult) {
	switch {
	case img.SavedPath != "":
		fmt.Println(imageNoticeStyle.Render("Image saved: " + img.SavedPath))
	case img.URL != "":
		fmt.Println(imageNoticeStyle.Render("Image URL: " + img.URL))
	default:
		fmt.Println(imageNoticeStyle.Render("Image: " + img.Candidate))
	}
}
