package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suteetoe/society-service/internal/model"
	"github.com/suteetoe/society-service/internal/notify"
	"github.com/suteetoe/society-service/internal/server"
	"github.com/suteetoe/society-service/internal/service"
	"github.com/suteetoe/society-service/pkg/config"
	"github.com/suteetoe/society-service/pkg/database"
	"github.com/suteetoe/society-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "society",
		Short:         "Apartment society management service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		createAdminCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, initializes the logger and opens the database
// with the schema migrated.
func setup() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	db, err := database.Open(&cfg.DB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established", zap.String("driver", cfg.DB.Driver))

	if err := database.Migrate(db, model.All()...); err != nil {
		return nil, nil, nil, err
	}
	log.Info("Database migrated")
	return cfg, log, db, nil
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer closeDB(db, log)

			log.Info("Starting society service...", zap.String("environment", cfg.Server.Env))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Deps{
				Config:   cfg,
				DB:       db,
				Log:      log,
				Notifier: notify.NewLogNotifier(log),
			})
			return srv.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := setup()
			if err != nil {
				return err
			}
			defer closeDB(db, log)
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			_, log, db, err := setup()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			auth := service.NewAuthService(db, log, nil)
			ctx := logger.WithLogger(context.Background(), log)
			admin, err := auth.CreateAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			log.Info("Admin created", zap.String("id", admin.ID))
			fmt.Printf("Created admin %s (%s)\n", admin.Name, admin.Email)
			return nil
		},
	}
	cmd.Flags().String("name", "", "admin display name")
	cmd.Flags().String("email", "", "admin login email")
	cmd.Flags().String("password", "", "admin password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
