package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/automation-bridge/apitoken"
	"github.com/hairizuan-noorazman/automation-bridge/database"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
)

var (
	tokenName           string
	tokenScope          string
	tokenExpiresInHours int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "API token commands",
}

// tokenCreateCmd writes directly to the database. The API requires a bearer
// token, so the first token has to be minted out of band.
var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if tokenName == "" {
			return fmt.Errorf("--name is required")
		}
		if tokenScope != apitoken.ScopeReadOnly && tokenScope != apitoken.ScopeReadWrite {
			return fmt.Errorf("invalid scope %q: must be read_only or read_write", tokenScope)
		}

		var expiryDuration time.Duration
		if tokenExpiresInHours > 0 {
			expiryDuration = time.Duration(tokenExpiresInHours) * time.Hour
		}
		expiryDuration, err := apitoken.ValidateExpiry(expiryDuration)
		if err != nil {
			return err
		}

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.Connect(database.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			Database:     cfg.Database.Database,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database instance: %w", err)
		}
		defer sqlDB.Close()

		tokenStore := apitoken.NewMySQLStore(db, logger.NewLogrusLogger("error"))

		rawToken, hash, err := apitoken.GenerateToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		token := &apitoken.APIToken{
			Name:      tokenName,
			TokenHash: hash,
			Scope:     tokenScope,
			ExpiresAt: time.Now().Add(expiryDuration),
			IsActive:  true,
		}

		if err := tokenStore.Create(ctx, token); err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}

		fmt.Println("Token created successfully")
		fmt.Println()
		fmt.Printf("  Name:       %s\n", token.Name)
		fmt.Printf("  Scope:      %s\n", token.Scope)
		fmt.Printf("  Expires At: %s\n", token.ExpiresAt.Format(time.RFC3339))
		fmt.Printf("  Token:      %s\n", rawToken)
		fmt.Println()
		fmt.Println("Store this token now; it cannot be shown again.")
		return nil
	},
}

func init() {
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "token name")
	tokenCreateCmd.Flags().StringVar(&tokenScope, "scope", apitoken.ScopeReadWrite, "token scope (read_only or read_write)")
	tokenCreateCmd.Flags().IntVar(&tokenExpiresInHours, "expires-in-hours", 0, "token lifetime in hours (default 30 days)")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(tokenCmd)
}
