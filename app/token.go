package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"transport-request-system/pkg/config"
	"transport-request-system/pkg/service"
)

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <имя>",
		Short: "Выпустить токен, от имени которого будут записываться изменения заявок",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			token, err := service.NewJWTService(cfg.JWT.SecretKey, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Срок жизни токена (по умолчанию JWT_ACCESS_TTL)")
	return cmd
}
