package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finmail/internal/models"
)

// DefaultDriveBaseURL is where exported documents are linked by default.
const DefaultDriveBaseURL = "https://drive.google.com"

// FileRef points at an exported document.
type FileRef struct {
	FileID  string `json:"fileId"`
	FileURL string `json:"fileUrl"`
}

// DocumentExporter renders an email to a stored document.
type DocumentExporter interface {
	ExportEmail(ctx context.Context, email models.Email) (FileRef, error)
}

// DriveExporter produces deterministic document references without
// contacting any external service.
type DriveExporter struct {
	BaseURL string
	Now     func() time.Time
}

func NewDriveExporter(baseURL string) *DriveExporter {
	if baseURL == "" {
		baseURL = DefaultDriveBaseURL
	}
	return &DriveExporter{BaseURL: strings.TrimRight(baseURL, "/"), Now: time.Now}
}

func (d *DriveExporter) ExportEmail(ctx context.Context, email models.Email) (FileRef, error) {
	if err := ctx.Err(); err != nil {
		return FileRef{}, err
	}
	id := fmt.Sprintf("pdf_%s_%d", email.ID, d.Now().UnixMilli())
	return FileRef{
		FileID:  id,
		FileURL: fmt.Sprintf("%s/file/d/%s/view", d.BaseURL, id),
	}, nil
}
