package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskops/helpdesk-admin/internal/client"
	"github.com/deskops/helpdesk-admin/internal/config"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/observability"
	"github.com/deskops/helpdesk-admin/internal/store"
)

var (
	baseURL      string
	sessionValue string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:           "adminctl",
	Short:         "Inspect and mutate helpdesk admin resources",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides BACKEND_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionValue, "session", "", "backend session cookie value (overrides BACKEND_SESSION_VALUE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log slice operations to stderr")

	rootCmd.AddCommand(resourcesCmd, listCmd, createCmd, updateCmd, deleteCmd, systemStatusCmd, hashPasswordCmd)
}

// openStore builds a store from env config plus flag overrides.
func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if sessionValue != "" {
		cfg.Backend.SessionValue = sessionValue
	}

	logger := zap.NewNop()
	if verbose {
		cfg.Logger.Level = "debug"
		if logger, err = observability.NewLogger(cfg.Logger, cfg.App); err != nil {
			return nil, err
		}
	}

	backend, err := client.New(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.Catalog, backend, logger), nil
}

func parseRecord(raw string) (domain.Record, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var rec domain.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("parse JSON payload: %w", err)
	}
	return rec, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
