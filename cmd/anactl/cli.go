package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/middleware"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/service"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// opener builds the customer service and returns a cleanup func.
type opener func(ctx context.Context) (*service.CustomerService, func(), error)

func openFirestore(ctx context.Context) (*service.CustomerService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	client, err := store.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	st := store.NewFirestoreStore(client)

	return service.NewCustomerService(st, log), func() { _ = st.Close() }, nil
}

func buildRootCommand(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "anactl",
		Short: "Operate the WhatsApp sales assistant",
		Long: strings.TrimSpace(`anactl inspects customer profiles, hands conversations back to the
assistant after a human handover, migrates legacy memories and issues
operator API tokens.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newProfileCommand(open))
	root.AddCommand(newHandoverCommand(open))
	root.AddCommand(newMemoryCommand(open))
	root.AddCommand(newTokenCommand())

	return root
}

func withService(cmd *cobra.Command, open opener, fn func(ctx context.Context, svc *service.CustomerService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	svc, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, svc)
}

func customerArg(args []string) (string, error) {
	id := strings.TrimPrefix(strings.TrimSpace(args[0]), "+")
	if err := middleware.ValidateCustomerID(id); err != nil {
		return "", err
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newProfileCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect customer profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "get <customer-id>",
		Short:   "Print a customer profile with its memory and cart",
		Example: "  anactl profile get 573001234567",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := customerArg(args)
			if err != nil {
				return err
			}
			return withService(cmd, open, func(ctx context.Context, svc *service.CustomerService) error {
				profile, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, profile)
			})
		},
	})
	return cmd
}

func newHandoverCommand(open opener) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "handover",
		Short: "Manage human handovers",
	}
	clearCmd := &cobra.Command{
		Use:     "clear <customer-id>",
		Short:   "Let the assistant answer the customer again",
		Example: "  anactl handover clear 573001234567 --operator laura",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := customerArg(args)
			if err != nil {
				return err
			}
			return withService(cmd, open, func(ctx context.Context, svc *service.CustomerService) error {
				if _, err := svc.ClearHandover(ctx, id, operator); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "handover cleared for %s\n", id)
				return nil
			})
		},
	}
	clearCmd.Flags().StringVar(&operator, "operator", "anactl", "Operator recorded in the logs")
	cmd.AddCommand(clearCmd)
	return cmd
}

func newMemoryCommand(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Maintain customer memories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "migrate <customer-id>...",
		Short:   "Rewrite narrative memories as structured records",
		Example: "  anactl memory migrate 573001234567 573007654321",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.CustomerService) error {
				for _, arg := range args {
					id, err := customerArg([]string{arg})
					if err != nil {
						return fmt.Errorf("%s: %w", arg, err)
					}
					migrated, err := svc.MigrateMemory(ctx, id)
					if err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					status := "already structured"
					if migrated {
						status = "migrated"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, status)
				}
				return nil
			})
		},
	})
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		operator string
		scopes   []string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Issue an operator API token signed with JWT_SECRET",
		Example: "  anactl token --operator laura --scope customers:read --scope handover:write",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, operator, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "Operator id stored as the token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{middleware.ScopeCustomersRead}, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
