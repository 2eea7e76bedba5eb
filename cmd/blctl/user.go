package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
)

var (
	userEmail string
	userName  string
)

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address (required)")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name (required)")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("name")
	userCmd.AddCommand(userAddCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user account",
	Long: `Create a user account. The password is read from the terminal.

Examples:
  blctl user add --email alice@example.com --name "Alice"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		st, cfg, logger, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := auth.NewService(st, auth.Config{
			SessionTTL: cfg.Auth.SessionTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		}, logger)

		user, err := svc.Register(ctx, userEmail, userName, password)
		if err != nil {
			return err
		}
		fmt.Printf("created user %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
