package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/niftron/internal/s0_data"
	"github.com/wonny/niftron/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "DB 스키마 마이그레이션",
	Long: `내장된 SQL 마이그레이션을 DATABASE_URL에 적용합니다.
이미 최신 상태면 아무것도 하지 않습니다.

Example:
  go run ./cmd/quant migrate up
  go run ./cmd/quant migrate down`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(s0_data.MigrateUp), string(s0_data.MigrateDown)},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := s0_data.Direction(args[0])
	fmt.Printf("Running migrations %s...\n", dir)

	if err := s0_data.Migrate(cfg.Database.URL, dir); err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("Migrations %s complete", dir))
	return nil
}
