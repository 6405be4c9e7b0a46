package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/creditbook/internal/app"
	"github.com/mmeshcher/creditbook/internal/repository"
	"github.com/mmeshcher/creditbook/internal/service"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	remindCmd.Flags().String("date", "", "run date in YYYY-MM-DD (default today)")

	adminCreateCmd.Flags().String("username", "", "admin username")
	adminCreateCmd.Flags().String("password", "", "admin password")
	adminCreateCmd.Flags().String("email", "", "admin email")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

// ─── migrate ────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := environment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// миграции применяются при открытии хранилища
	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return err
	}
	defer repo.Close()

	version, err := repo.MigrationVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database is at migration version %d\n", version)
	return nil
}

// ─── remind ─────────────────────────────────────────────────────────────────

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send pre-due and overdue reminders for a date",
	Long: `Send pre-due and overdue reminders for the given date once.
A run for a date that has already completed, or is in progress elsewhere, is skipped.`,
	Args: cobra.NoArgs,
	RunE: runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("date")
	date, err := parseRunDate(raw, time.Now())
	if err != nil {
		return err
	}

	cfg, logger, err := environment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	sum, err := deps.Reminders.Run(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sum.Skipped {
		fmt.Fprintf(out, "reminders for %s already sent or in progress\n", sum.Date.Format(time.DateOnly))
		return nil
	}
	fmt.Fprintf(out, "run %s for %s: pre-due %d, overdue %d, failed %d\n",
		sum.RunID, sum.Date.Format(time.DateOnly), sum.PreDue, sum.Overdue, sum.Failed)
	return nil
}

func parseRunDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// ─── admin ──────────────────────────────────────────────────────────────────

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin users",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	Args:  cobra.NoArgs,
	RunE:  runAdminCreate,
}

const minPasswordLength = 8

func runAdminCreate(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	email, _ := cmd.Flags().GetString("email")

	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	cfg, logger, err := environment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return err
	}

	svc := service.NewService(repo, nil, nil, logger, service.Config{Region: cfg.DefaultRegion})
	defer svc.Close()

	id, err := svc.CreateAdmin(cmd.Context(), username, password, email)
	if errors.Is(err, repository.ErrAdminExists) {
		return fmt.Errorf("admin %q already exists", username)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %q with id %d\n", username, id)
	return nil
}
