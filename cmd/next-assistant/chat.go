package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
)

type chatOptions struct {
	tenantID  string
	sessionID string
	userID    string
	domain    string
	knowledge []string
	inMemory  bool
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	co := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Generate one reply from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, co.inMemory)
			if err != nil {
				return err
			}
			defer a.Close()

			if co.inMemory {
				if _, err := a.services.Tenant.InitializeTenant(ctx, co.tenantID, co.domain, ""); err != nil {
					return err
				}
				for _, kv := range co.knowledge {
					title, content, ok := strings.Cut(kv, "=")
					if !ok {
						return fmt.Errorf("--knowledge expects title=content, got %q", kv)
					}
					if _, err := a.services.Knowledge.AddKnowledge(ctx, co.tenantID, &knowledge.AddKnowledgeRequest{
						Title:   title,
						Content: content,
					}); err != nil {
						return err
					}
				}
			}

			resp, err := a.services.Engine.GenerateResponse(ctx, co.tenantID, co.sessionID, strings.Join(args, " "), co.userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", resp.Tier, resp.Response)
			return nil
		},
	}

	cmd.Flags().StringVar(&co.tenantID, "tenant", "demo", "tenant id")
	cmd.Flags().StringVar(&co.sessionID, "session", "cli", "external session id")
	cmd.Flags().StringVar(&co.userID, "user", "", "user id for memory extraction")
	cmd.Flags().StringVar(&co.domain, "domain", "general", "expertise domain used with --memory")
	cmd.Flags().StringArrayVar(&co.knowledge, "knowledge", nil, "title=content entry to seed with --memory (repeatable)")
	cmd.Flags().BoolVar(&co.inMemory, "memory", false, "use in-memory stores instead of postgres and redis")
	return cmd
}
