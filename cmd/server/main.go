package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/internal/utils"
	"github.com/onboardhub/backend/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "onboardhub",
		Short:   "onboardhub - team onboarding backend",
		Version: Version,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(janitorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	metrics.SetBuildInfo(Version)
	gin.SetMode(cfg.Server.Mode)

	svc := bootstrap(cfg)
	defer svc.shutdown()

	r := gin.New()
	registerRoutes(r, svc)

	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Received signal, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := openDatabase(cfg); err != nil {
				return err
			}
			fmt.Printf("Migrated %d tables on %s\n", len(models.AllModels()), cfg.Database.Driver)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var email string
	var hours int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			if hours <= 0 {
				hours = cfg.JWT.ExpireHour
			}
			token, err := issueToken(db, cfg.JWT.Secret, email, hours)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "profile email")
	cmd.Flags().IntVar(&hours, "hours", 0, "token lifetime in hours (default jwt.expire_hour)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func issueToken(db *gorm.DB, secret, email string, hours int) (string, error) {
	var profile models.Profile
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("no profile with email %s", email)
	}
	if err != nil {
		return "", err
	}
	utils.SetJWTSecret(secret)
	return utils.GenerateToken(profile.ID, profile.Email, hours)
}

func janitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "janitor",
		Short: "Purge expired invite codes, invitations and old audit logs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			svc := newAppServices(cfg, db)
			defer svc.taskQueue.Close()

			report, err := svc.janitor.RunOnce()
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}
