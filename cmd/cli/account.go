package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/magiccode/cmd"
	"github.com/axellelanca/magiccode/internal/auth"
	"github.com/axellelanca/magiccode/internal/database"
	"github.com/axellelanca/magiccode/internal/idcipher"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
)

var (
	accountName     string
	accountAdmin    bool
	accountInactive bool
)

// AccountCmd groups account management commands.
var AccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manages accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create [email]",
	Short: "Creates an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withAccounts(func(ctx context.Context, repo *repository.GormAccountRepository) error {
			account := &models.Account{
				FullName: accountName,
				Email:    args[0],
				Role:     models.RoleUser,
				IsActive: !accountInactive,
			}
			if accountAdmin {
				account.Role = models.RoleAdmin
			}
			if err := repo.CreateAccount(ctx, account); err != nil {
				return err
			}
			fmt.Printf("Account %s created (role %s, active %t).\n", account.Email, account.Role, account.IsActive)
			return nil
		})
	},
}

var accountActivateCmd = &cobra.Command{
	Use:   "activate [email]",
	Short: "Allows an account to create and change codes",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setActive(args[0], true)
	},
}

var accountDeactivateCmd = &cobra.Command{
	Use:   "deactivate [email]",
	Short: "Blocks an account from creating and changing codes",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setActive(args[0], false)
	},
}

var accountTokenCmd = &cobra.Command{
	Use:   "token [email]",
	Short: "Prints a bearer token and the admin identifier of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		jwtManager, err := auth.NewManager(cmd.Cfg.Security.JWTSecret, cmd.Cfg.TokenTTL())
		if err != nil {
			return fmt.Errorf("security.jwt_secret: %w", err)
		}
		ids, err := idcipher.New(cmd.Cfg.Security.IDSecret)
		if err != nil {
			return fmt.Errorf("security.id_secret: %w", err)
		}

		return withAccounts(func(ctx context.Context, repo *repository.GormAccountRepository) error {
			account, err := repo.FindByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			token, err := jwtManager.Generate(account)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Printf("Bearer token: %s\n", token)
			fmt.Printf("Admin identifier: %s\n", ids.Encrypt(account.ID))
			return nil
		})
	},
}

func init() {
	accountCreateCmd.Flags().StringVar(&accountName, "name", "", "Full name")
	accountCreateCmd.Flags().BoolVar(&accountAdmin, "admin", false, "Grant the admin role")
	accountCreateCmd.Flags().BoolVar(&accountInactive, "inactive", false, "Create the account deactivated")

	AccountCmd.AddCommand(accountCreateCmd, accountActivateCmd, accountDeactivateCmd, accountTokenCmd)
	cmd.RootCmd.AddCommand(AccountCmd)
}

func setActive(email string, active bool) error {
	return withAccounts(func(ctx context.Context, repo *repository.GormAccountRepository) error {
		account, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if _, err := repo.SetActive(ctx, account.ID, active); err != nil {
			return err
		}
		fmt.Printf("Account %s active: %t\n", email, active)
		return nil
	})
}

func withAccounts(fn func(ctx context.Context, repo *repository.GormAccountRepository) error) error {
	db, err := cmd.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(context.Background(), repository.NewAccountRepository(db))
}
