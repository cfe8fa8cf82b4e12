package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lookaway/internal/config"
	"lookaway/internal/database"
	"lookaway/internal/logging"
	"lookaway/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backup",
		Short: "Lookaway database backup tool",
		Long: `Export and import users and progress records as JSON.

The database is selected with DB_TYPE (sqlite, postgres or mysql), DB_PATH
for SQLite and DATABASE_URL for PostgreSQL and MySQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCmd(), newImportCmd())
	return root
}

// openBackupService connects and migrates so the schema matches the backup format.
func openBackupService(ctx context.Context) (*service.BackupService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Init(cfg.LogLevel)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return service.NewBackupService(db), func() { db.Close() }, nil
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export database to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			backupService, closeDB, err := openBackupService(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			logging.L().Info("Exporting database", slog.String("output", output))
			data, err := backupService.Export(ctx, output)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			info, err := os.Stat(output)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d users and %d sessions to %s (%.2f MB)\n",
				len(data.Users), len(data.Progress), output, float64(info.Size())/1024/1024)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		input string
		clearData bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import database from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			if clearData && !yes {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "import cancelled")
					return nil
				}
			}

			backupService, closeDB, err := openBackupService(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			logging.L().Info("Importing database", slog.String("input", input), slog.Bool("clear", clearData))
			data, err := backupService.Import(ctx, input, clearData)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d users and %d sessions\n", len(data.Users), len(data.Progress))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file path")
	cmd.Flags().BoolVar(&clearData, "clear", false, "clear existing data before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
