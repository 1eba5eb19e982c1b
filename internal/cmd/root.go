// Package cmd implements the arcactl command line client: a thin
// cobra harness whose subcommands each wrap a [genericclioptions.CmdOptions]
// around the session/controller. It owns no core logic of its own.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/arcalog"
	"github.com/arca-vault/arca/clierror"
	"github.com/arca-vault/arca/config"
	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/session"
)

var (
	rootCmd = &cobra.Command{
		Use:   "arcactl",
		Short: "Command line client for the Arca secrets vault",
		Long:  "arcactl is a command-line client for Arca, a single-user, host-local secrets manager.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			arcalog.Init(arcalog.Config{Debug: verbose})
			clierror.DebugMode(verbose)
		},
	}

	verbose   bool
	vaultPath string
)

// MustInitialize registers every subcommand and their shared flags.
func MustInitialize() error {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Path to the vault container (overrides ARCA_VAULT_PATH)")

	rootCmd.AddCommand(
		newCreateCmd(),
		newUnlockCmd(),
		newAddCmd(),
		newGetCmd(),
		newListCmd(),
		newRmCmd(),
		newGenerateKeyCmd(),
		newRevokeKeyCmd(),
		newExportCmd(),
		newImportCmd(),
		newAuditCmd(),
		newServeCmd(),
	)

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// resolvePaths resolves config.Paths honoring the --vault flag.
func resolvePaths() (config.Paths, error) {
	if vaultPath != "" {
		return config.Resolve(config.WithVaultPath(vaultPath))
	}

	return config.Resolve()
}

// newController resolves paths and constructs a session.Controller.
func newController() (*session.Controller, error) {
	paths, err := resolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve config paths: %w", err)
	}

	return session.New(paths), nil
}

// withUnlockedController constructs a controller, unlocks it with the
// given password, runs fn, and always locks before returning. Every
// subcommand but `serve` is a single-shot process: it unlocks, performs
// one operation, and locks again before exiting.
func withUnlockedController(password string, fn func(c *session.Controller) error) error {
	c, err := newController()
	if err != nil {
		return err
	}

	if err := c.Unlock(password); err != nil {
		return err
	}
	defer c.Lock()

	return fn(c)
}

// run wires genericclioptions.ExecuteCommand into a cobra RunE, printing
// a friendly message and a non-zero exit via clierror on failure.
func run(opts genericclioptions.CmdOptions) error {
	return clierror.Check(genericclioptions.ExecuteCommand(context.Background(), opts))
}

func defaultIOStreams() *genericclioptions.IOStreams {
	streams := genericclioptions.NewDefaultIOStreams()
	streams.Verbose = verbose

	return streams
}
