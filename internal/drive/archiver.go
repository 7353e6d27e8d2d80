// Package drive archives feedback reports to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type Archiver struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewArchiver(ctx context.Context, credJSON []byte, folderID string) (*Archiver, error) {
	config, err := google.CredentialsFromJSONWithParams(ctx, credJSON, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Archiver{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// Archive uploads the markdown report for one feedback record, replacing
// any earlier upload for the same record.
func (a *Archiver) Archive(feedbackID, report string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	body := strings.NewReader(report)
	name := fmt.Sprintf("prepwise-feedback-%s", feedbackID)

	if fileID, ok := a.fileIDs[feedbackID]; ok {
		_, err := a.service.Files.Update(fileID, &drive.File{}).Media(body).Do()
		if err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	doc, err := a.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{a.folderID},
	}).Media(body).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	a.fileIDs[feedbackID] = doc.Id
	return nil
}
