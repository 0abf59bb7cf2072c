package db

import (
	"context"
	"fmt"

	"github.com/coregx/relica"
	"github.com/google/uuid"

	"finmail/internal/models"
)

type attachmentRow struct {
	ID        string    `db:"id"`
	EmailID   string    `db:"email_id"`
	Filename  string    `db:"filename"`
	MimeType  string    `db:"mime_type"`
	Size      int64     `db:"size"`
	CreatedAt timestamp `db:"created_at"`
}

func (r attachmentRow) toModel() models.Attachment {
	return models.Attachment{
		ID:        r.ID,
		EmailID:   r.EmailID,
		Filename:  r.Filename,
		MimeType:  r.MimeType,
		Size:      r.Size,
		CreatedAt: r.CreatedAt.Time,
	}
}

var attachmentColumns = []string{"id", "email_id", "filename", "mime_type", "size", "created_at"}

// CreateAttachment records attachment metadata for an existing email.
func (db *DB) CreateAttachment(ctx context.Context, emailID string, in models.AttachmentInput) (*models.Attachment, error) {
	a := &models.Attachment{
		ID:        uuid.NewString(),
		EmailID:   emailID,
		Filename:  in.Filename,
		MimeType:  in.MimeType,
		Size:      in.Size,
		CreatedAt: db.now().UTC(),
	}

	err := db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if err := db.emailExists(qb, emailID); err != nil {
			return err
		}
		_, err := qb.Insert("attachments", map[string]interface{}{
			"id":         a.ID,
			"email_id":   a.EmailID,
			"filename":   a.Filename,
			"mime_type":  a.MimeType,
			"size":       a.Size,
			"created_at": formatTime(a.CreatedAt),
		}).Execute()
		if err != nil {
			return fmt.Errorf("create attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttachments returns an email's attachments in creation order.
func (db *DB) ListAttachments(ctx context.Context, emailID string) ([]models.Attachment, error) {
	if err := db.emailExists(db.builder(ctx), emailID); err != nil {
		return nil, err
	}
	byEmail, err := db.attachmentsForEmails(ctx, []interface{}{emailID})
	if err != nil {
		return nil, err
	}
	if byEmail[emailID] == nil {
		return []models.Attachment{}, nil
	}
	return byEmail[emailID], nil
}

func (db *DB) attachmentsForEmails(ctx context.Context, ids []interface{}) (map[string][]models.Attachment, error) {
	result := make(map[string][]models.Attachment, len(ids))
	err := inChunks(ids, func(chunk []interface{}) error {
		var rows []attachmentRow
		err := db.builder(ctx).
			Select(attachmentColumns...).
			From("attachments").
			Where(relica.In("email_id", chunk...)).
			OrderBy("created_at ASC", "id ASC").
			All(&rows)
		if err != nil {
			return fmt.Errorf("load attachments: %w", err)
		}
		for _, r := range rows {
			result[r.EmailID] = append(result[r.EmailID], r.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
