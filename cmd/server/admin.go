package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"windspire/internal/auth"
	"windspire/internal/models"
	"windspire/internal/prompts"
	"windspire/internal/store"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator, or reset the password of an existing one",
	Long: `Create an administrator account on a premium subscription.

If the email already exists the account is promoted to admin,
re-activated and given the new password.

Examples:
  windspire create-admin --email admin@example.com --password password123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		dbc, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbc.Close()

		u, created, err := upsertAdmin(cmd.Context(), store.New(dbc), adminEmail, adminName, adminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin ready", zap.String("email", u.Email), zap.Bool("created", created))
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@example.com", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (at least 8 characters)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin User", "display name")
	createAdminCmd.MarkFlagRequired("password")
}

func upsertAdmin(ctx context.Context, st *store.Store, email, name, password string) (models.User, bool, error) {
	if len(password) < 8 {
		return models.User{}, false, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, false, err
	}

	u, err := st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		u = models.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Active:       true,
			Verified:     true,
			Subscription: models.Subscription{Tier: models.TierPremium, Status: models.SubscriptionActive},
			Preferences: models.Preferences{
				Theme:         "light",
				Notifications: models.Notifications{Email: true, Push: true},
			},
		}
		return u, true, st.CreateUser(ctx, &u)
	}
	if err != nil {
		return u, false, err
	}

	u.Role = models.RoleAdmin
	u.Active = true
	if err := st.UpdateUser(ctx, u); err != nil {
		return u, false, err
	}
	return u, false, st.SetPassword(ctx, u.ID, hash)
}

var seedPromptsCmd = &cobra.Command{
	Use:   "seed-prompts",
	Short: "Seed category prompts and import the built-in prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		dbc, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbc.Close()

		res, err := prompts.SeedFromFile(cmd.Context(), store.New(dbc))
		if err != nil {
			return err
		}
		for _, msg := range res.Errors {
			logger.Warn("seed problem", zap.String("error", msg))
		}
		logger.Info("prompts seeded",
			zap.Int("updatedCategories", res.UpdatedCategories),
			zap.Int("newPrompts", res.NewPrompts))
		return nil
	},
}
