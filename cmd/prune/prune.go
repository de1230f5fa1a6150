// Package prune implements the store maintenance command that drops
// subjects without any photos.
package prune

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/datastore"
	"github.com/plantpal/plantpal-go/internal/model"
)

// Command creates the prune command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove subjects without photos from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}
}

func run(settings *conf.Settings) error {
	store, err := datastore.NewFileStore(settings.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	dropped := 0
	err = store.Update("prune", func(doc *model.Document) error {
		dropped = doc.Prune()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("pruned %d empty subject(s)\n", dropped)
	return nil
}
