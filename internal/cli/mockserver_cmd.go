// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/mockserver"
)

func newMockServerCmd(a *app) *cobra.Command {
	var (
		addr      string
		dbPath    string
		uploadDir string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local stand-in for the Kare backend",
		Long: `Serves /check-user, /create-profile, /text and /voice on a local
address so kare can be used without the real backend. Text answers echo the
last message. Profiles are kept in SQLite.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStderrLog: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.MockServer
			if addr != "" {
				cfg.Addr = addr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if uploadDir != "" {
				cfg.UploadDir = uploadDir
			}

			store, err := mockserver.OpenSQLite(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open profile store: %w", err)
			}
			defer store.Close()

			logger := a.logger.Named("mock")
			logger.Info("profile store opened", zap.String("path", cfg.DBPath))

			srv := mockserver.New(mockserver.Config{
				Addr:        cfg.Addr,
				UploadDir:   cfg.UploadDir,
				MaxUploadMB: cfg.MaxUploadMB,
			}, store, logger)
			return srv.ListenAndRun(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8000)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite profile database path")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory to save voice uploads (default: discard)")
	return cmd
}
