package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plantpal/plantpal-go/cmd/intake"
	"github.com/plantpal/plantpal-go/cmd/prune"
	"github.com/plantpal/plantpal-go/cmd/reply"
	"github.com/plantpal/plantpal-go/cmd/serve"
	"github.com/plantpal/plantpal-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plantpal",
		Short: "PlantPal-Go CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		panic(fmt.Errorf("error setting up flags: %w", err))
	}

	subcommands := []*cobra.Command{
		serve.Command(settings),
		intake.Command(settings),
		reply.Command(settings),
		prune.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Store.Path, "store", settings.Store.Path, "Path to the JSON document store")
	rootCmd.PersistentFlags().StringVar(&settings.Store.UploadDir, "uploads", settings.Store.UploadDir, "Directory holding uploaded images")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
