// Command worklistctl queries the archive's worklist and submits reports
// from a terminal, using the same configuration as the web server.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"radiology-worklist/internal/config"
	"radiology-worklist/internal/logger"
	"radiology-worklist/internal/pacs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	envFile string
	out     io.Writer
	now     func() time.Time
}

func main() {
	a := &app{out: os.Stdout, now: time.Now}
	if err := a.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "worklistctl",
		Short:        "Query the radiology worklist and submit reports",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional env file; environment variables take precedence")
	root.AddCommand(a.studiesCmd(), a.reportCmd(), a.hashPasswordCmd())
	root.SetOut(a.out)
	return root
}

// setup loads the configuration and a console logger on stderr, so that
// command output on stdout stays machine readable.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(a.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, "console", "worklistctl")
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func archiveClient(cfg *config.Config, log *zap.Logger) *pacs.Client {
	return pacs.NewClient(pacs.Config{
		ArchiveRoot: cfg.ArchiveRoot,
		ViewerRoot:  cfg.ViewerRoot,
		Timeout:     cfg.RequestTimeout,
	}, log.Named("pacs"))
}
