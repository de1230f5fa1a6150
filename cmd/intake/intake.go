// Package intake implements the one-shot upload command: store a photo,
// record it against a subject and run the enrichment pipeline to completion.
package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plantpal/plantpal-go/internal/conf"
	"github.com/plantpal/plantpal-go/internal/enrichment"
	"github.com/plantpal/plantpal-go/internal/model"
	"github.com/plantpal/plantpal-go/internal/runtime"
)

// Command creates the intake command.
func Command(settings *conf.Settings) *cobra.Command {
	var req enrichment.IntakeRequest
	var flower bool

	cmd := &cobra.Command{
		Use:   "intake [photo.jpg]",
		Short: "Record a photo and enrich it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flower {
				req.SubjectType = model.SubjectTypeFlower
			}
			return run(settings, args[0], req)
		},
	}

	cmd.Flags().StringVar(&req.SubjectID, "subject", "", "Existing subject ID to attach the photo to")
	cmd.Flags().StringVar(&req.Species, "species", "", "Species name for matching or creating the subject")
	cmd.Flags().StringVar(&req.Nickname, "nickname", "", "Subject nickname")
	cmd.Flags().StringVar(&req.Owner, "owner", "", "Owner name recorded on new subjects")
	cmd.Flags().BoolVar(&flower, "flower", false, "File the subject under the flowers collection")

	return cmd
}

func run(settings *conf.Settings, srcPath string, req enrichment.IntakeRequest) error {
	app, err := runtime.Build(settings)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Shutdown(5 * time.Second)
	}()

	filename, err := storeUpload(srcPath, settings.Store.UploadDir)
	if err != nil {
		return err
	}
	req.Filename = filename

	ctx := context.Background()
	result, err := app.Pipeline.Intake(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("subject %s (%s), image %s\n",
		result.SubjectID, result.SubjectType.Collection(), result.ImageID)

	trace := app.Pipeline.Enrich(ctx, result.SubjectID, result.ImageID)
	for _, stage := range trace {
		line := fmt.Sprintf("  %-20s %s", stage.Stage, stage.Status)
		if stage.Detail != "" {
			line += " (" + stage.Detail + ")"
		}
		fmt.Println(line)
	}

	if msg := finalReply(app, result.SubjectID, result.ImageID); msg != "" {
		fmt.Println(msg)
	}
	return nil
}

// storeUpload copies the source photo into the upload directory under a
// fresh name and returns that name.
func storeUpload(srcPath, uploadDir string) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(srcPath))
	if ext == "" {
		ext = ".jpg"
	}
	filename := uuid.New().String() + ext

	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(filepath.Join(uploadDir, filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return filename, dst.Close()
}

// finalReply reads the enriched reply back out of the store.
func finalReply(app *runtime.Application, subjectID, imageID string) string {
	doc, err := app.Store.Read()
	if err != nil {
		return ""
	}
	subject, _ := doc.FindSubject(subjectID)
	if subject == nil {
		return ""
	}
	for i := len(subject.Conversations) - 1; i >= 0; i-- {
		msg := subject.Conversations[i]
		if msg.Role == model.RolePlant && msg.ImageID != nil && *msg.ImageID == imageID {
			return msg.Text
		}
	}
	return ""
}
