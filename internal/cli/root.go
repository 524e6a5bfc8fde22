// Package cli provides the flora terminal client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Rrens/flora-expert/internal/app"
	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/identity"
	"github.com/Rrens/flora-expert/internal/logger"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	cfg         *config.Config
	application *app.App
	identities  *identity.Manager
	logCloser   io.Closer
)

var errNotSignedIn = errors.New("not signed in, run 'flora login' first")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "flora",
	Short: "FloraExpert plant care assistant",
	Long: `flora talks to FloraExpert, a botanical assistant that diagnoses plant
problems from a description or a photo and remembers every conversation.

Sign in once; the identity is kept in an encrypted snapshot and restored
on the next run.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logCloser, err = logger.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}

		// migrate manages its own connection.
		if cmd.Name() == migrateCmd.Name() {
			return nil
		}

		ctx := cmd.Context()
		application, err = app.New(ctx, cfg)
		if err != nil {
			return err
		}

		sealer, err := newSealer(cfg)
		if err != nil {
			return fmt.Errorf("init identity sealer: %w", err)
		}
		identities = identity.NewManager(cfg.Identity.SnapshotPath, sealer, application.Auth)

		if _, err := identities.Restore(ctx); err != nil {
			return fmt.Errorf("restore identity: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func newSealer(cfg *config.Config) (*security.Sealer, error) {
	if cfg.Identity.SnapshotKey != "" {
		return security.NewSealerFromBase64(cfg.Identity.SnapshotKey)
	}
	return security.NewSealerFromSecret(cfg.Auth.JWTSecret)
}

// currentIdentity returns the restored identity or errNotSignedIn
func currentIdentity() (*domain.Identity, error) {
	id := identities.Current()
	if id == nil {
		return nil, errNotSignedIn
	}
	return id, nil
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(migrateCmd)
}
