package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/config"
	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/persistence"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/internal/service"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(newUserCreateCommand())
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Long:  `Create an active staff account. Roles are ADMIN, MANAGER and OPERATOR.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error {
				users := repository.NewUserRepository(pg.Pool())
				svc := service.NewAuthService(cfg.Auth, users, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes))

				user, err := svc.CreateUser(ctx, service.CreateUserCommand{
					Name:     name,
					Email:    email,
					Password: password,
					Role:     domain.UserRole(strings.ToUpper(role)),
				})
				if err != nil {
					return err
				}
				logger.Info("staff account created",
					zap.Int64("user_id", user.ID),
					zap.String("email", user.Email),
					zap.String("role", string(user.Role)))
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", user.ID, user.Email, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Login email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Initial password (min 8 characters)")
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.UserRoleOperator), "ADMIN, MANAGER or OPERATOR")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
