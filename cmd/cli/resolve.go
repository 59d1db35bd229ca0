package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/magiccode/cmd"
	"github.com/axellelanca/magiccode/internal/database"
	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/repository"
	"github.com/axellelanca/magiccode/internal/services"
	"github.com/axellelanca/magiccode/internal/shortcode"
)

// ResolveCmd shows what a public code would serve.
var ResolveCmd = &cobra.Command{
	Use:   "resolve [code]",
	Short: "Shows how a Magic Code resolves",
	Long:  `Resolves the provided code the same way the public route does and prints the outcome.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	cmd.RootCmd.AddCommand(ResolveCmd)
}

func runResolve(_ *cobra.Command, args []string) error {
	code := args[0]
	if !shortcode.Valid(code) {
		return fmt.Errorf("%q: %w", code, customerrors.ErrInvalidShortCode)
	}

	db, err := cmd.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	origin := cmd.Cfg.Server.BaseURL
	if origin == "" {
		origin = fmt.Sprintf("http://localhost:%d", cmd.Cfg.Server.Port)
	}

	resolver := services.NewResolver(repository.NewRecordRepository(db), origin, 0, 0)
	action, err := resolver.Resolve(context.Background(), code, origin)
	if err != nil {
		return err
	}

	fmt.Printf("Code: %s\n", code)
	fmt.Printf("Outcome: %s\n", action.Kind)
	switch action.Kind {
	case services.ActionRedirectExternal, services.ActionRedirectAsset:
		fmt.Printf("Location: %s\n", action.Target)
	case services.ActionRenderInline:
		fmt.Printf("Content:\n%s\n", action.Content)
	}
	return nil
}
