package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/axellelanca/magiccode/cmd"
	"github.com/axellelanca/magiccode/internal/api"
	"github.com/axellelanca/magiccode/internal/assets"
	"github.com/axellelanca/magiccode/internal/database"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
	"github.com/axellelanca/magiccode/internal/services"
	"github.com/axellelanca/magiccode/internal/shortcode"
)

var (
	createOwner string
	createName  string
	createType  string
	createURL   string
	createText  string
	createFile  string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a Magic Code for an account.",
	Long: `This command creates a Magic Code owned by the given account and prints
its public code.

Examples:
  magiccode create --owner=ada@example.com --name=site --type=url --url="https://go.dev"
  magiccode create --owner=ada@example.com --name=note --type=text --text="Hello"
  magiccode create --owner=ada@example.com --name=photo --type=media --file=./cat.png`,
	RunE: runCreate,
}

func init() {
	CreateCmd.Flags().StringVar(&createOwner, "owner", "", "Email of the owning account")
	CreateCmd.Flags().StringVar(&createName, "name", "", "Display name of the code")
	CreateCmd.Flags().StringVar(&createType, "type", string(models.VariantURL), "Content type: url, media or text")
	CreateCmd.Flags().StringVar(&createURL, "url", "", "Target URL (type url)")
	CreateCmd.Flags().StringVar(&createText, "text", "", "Inline text (type text)")
	CreateCmd.Flags().StringVar(&createFile, "file", "", "File to upload (type media)")
	_ = CreateCmd.MarkFlagRequired("owner")
	_ = CreateCmd.MarkFlagRequired("name")

	cmd.RootCmd.AddCommand(CreateCmd)
}

func runCreate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := cmd.Cfg

	db, err := cmd.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.Close(db)

	uploads, err := assets.New(assets.Config{RootDir: cfg.Storage.UploadDir, WorkerCount: 1, BufferSize: 1})
	if err != nil {
		return err
	}
	defer uploads.Close()

	recordRepo := repository.NewRecordRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	svc := services.NewRecordService(recordRepo, accountRepo, shortcode.NewGenerator(), uploads, nil)
	svc.ReserveCodes(api.ReservedCodes(uploads.URLPrefix())...)

	owner, err := accountRepo.FindByEmail(ctx, createOwner)
	if err != nil {
		return err
	}

	in := services.RecordInput{
		Variant: models.Variant(strings.ToLower(createType)),
		URL:     createURL,
		Text:    createText,
		Display: models.Display{Name: createName},
	}
	if in.Variant == models.VariantMedia && createFile != "" {
		f, err := os.Open(createFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", createFile, err)
		}
		in.MediaPath, err = uploads.Save(ctx, f.Name(), f)
		f.Close()
		if err != nil {
			return err
		}
	}

	record, err := svc.CreateRecord(ctx, owner.ID, in)
	if err != nil {
		return err
	}

	fmt.Printf("Magic Code created successfully:\n")
	fmt.Printf("Code: %s\n", record.Code)
	fmt.Printf("Type: %s\n", record.Variant)
	if cfg.Server.BaseURL != "" {
		fmt.Printf("Link: %s/%s\n", strings.TrimRight(cfg.Server.BaseURL, "/"), record.Code)
	}
	return nil
}
