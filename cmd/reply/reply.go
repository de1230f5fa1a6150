// Package reply implements the conversational command: send a message to a
// subject and print the generated answer.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/enrichment"
	"github.com/plantpal/plantpal-go/internal/runtime"
)

// Command creates the reply command.
func Command(settings *conf.Settings) *cobra.Command {
	var req enrichment.ReplyRequest

	cmd := &cobra.Command{
		Use:   "reply [subject-id] [message...]",
		Short: "Talk to a subject",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SubjectID = args[0]
			req.Text = strings.Join(args[1:], " ")
			return run(settings, req)
		},
	}

	cmd.Flags().StringVar(&req.Language, "language", "en", "Reply language (en or kn)")
	cmd.Flags().StringVar(&req.ImageID, "image", "", "Image the message refers to (defaults to the latest)")
	cmd.Flags().BoolVar(&req.Fast, "fast", false, "Skip the generator and answer from templates")

	return cmd
}

func run(settings *conf.Settings, req enrichment.ReplyRequest) error {
	app, err := runtime.Build(settings)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Shutdown(5 * time.Second)
	}()

	result, err := app.Pipeline.Reply(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Println(result.Reply)
	if result.Fallback {
		fmt.Println("(templated answer, generator unavailable)")
	}
	return nil
}
