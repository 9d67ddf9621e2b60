package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaild/sitegen/internal/audit"
	transportHTTP "github.com/skaild/sitegen/internal/transport/http"
)

func tokenCmd(opts *options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = opts.cfg.Security.AdminTokenTTL
			}
			token, err := transportHTTP.IssueAdminToken(opts.cfg.Security.AdminJWTSecret, subject, ttl)
			if err != nil {
				return err
			}

			audit.NewSlogLogger().Log(cmd.Context(), audit.Event{
				Type:     audit.TypeAdminTokenIssued,
				ActorID:  actorName(),
				Resource: "admin_token",
				Metadata: map[string]any{"subject": subject, "ttl": ttl.String()},
			})

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. an operator email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.admin_token_ttl)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
