package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deskops/helpdesk-admin/internal/auth"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/store"
)

const commandTimeout = 30 * time.Second

var (
	includeInactive bool
	filterPairs     []string
	hashCost        int
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resource catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), st.Resources())
	},
}

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "Fetch a resource collection and print the resulting state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, err := parsePairs(filterPairs)
		if err != nil {
			return err
		}
		return withSlice(cmd, args[0], func(ctx context.Context, st *store.Store) (any, error) {
			sl, _ := st.Slice(args[0])
			if err := sl.FetchAll(ctx, store.Filter(includeInactive, pairs)); err != nil {
				return nil, err
			}
			return sl.Snapshot(), nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create <resource> <json>",
	Short: "Create an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := parseRecord(args[1])
		if err != nil {
			return err
		}
		return withSlice(cmd, args[0], func(ctx context.Context, st *store.Store) (any, error) {
			sl, _ := st.Slice(args[0])
			return sl.Create(ctx, payload)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id> <json>",
	Short: "Update an entity, reconciling against a fresh fetch",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := parseRecord(args[2])
		if err != nil {
			return err
		}
		return withSlice(cmd, args[0], func(ctx context.Context, st *store.Store) (any, error) {
			sl, _ := st.Slice(args[0])
			if err := sl.FetchAll(ctx, nil); err != nil {
				return nil, err
			}
			return sl.Update(ctx, args[1], payload)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <resource> <id>",
	Short: "Delete an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSlice(cmd, args[0], func(ctx context.Context, st *store.Store) (any, error) {
			sl, _ := st.Slice(args[0])
			if err := sl.Delete(ctx, args[1]); err != nil {
				return nil, err
			}
			return map[string]string{"deleted": args[1]}, nil
		})
	},
}

var systemStatusCmd = &cobra.Command{
	Use:   "system-status <id> <true|false>",
	Short: "Activate or deactivate a system registration",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid status %q: %w", args[1], err)
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) (any, error) {
			if err := st.Preload(ctx, domain.ResourceSystems); err != nil {
				return nil, err
			}
			return st.SetSystemStatus(ctx, args[0], active)
		})
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print its bcrypt hash for AUTH_OPERATOR_PASSWORD_HASH",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}
		hashed, err := auth.HashPassword(password, hashCost)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hashed)
		return err
	},
}

func init() {
	listCmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include inactive rows where supported")
	listCmd.Flags().StringArrayVarP(&filterPairs, "filter", "f", nil, "extra query filter key=value (repeatable)")
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 0, "bcrypt cost (default bcrypt.DefaultCost)")
}

func withStore(cmd *cobra.Command, run func(ctx context.Context, st *store.Store) (any, error)) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	out, err := run(ctx, st)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func withSlice(cmd *cobra.Command, name string, run func(ctx context.Context, st *store.Store) (any, error)) error {
	return withStore(cmd, func(ctx context.Context, st *store.Store) (any, error) {
		if _, err := st.Slice(name); err != nil {
			return nil, err
		}
		return run(ctx, st)
	})
}

func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", pair)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}
