package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coregx/relica"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finmail/internal/models"
)

var emailColumns = []string{
	"e.id", "e.subject", "e.snippet", "e.sender_name", "e.sender_email",
	"e.amount", "e.category", "e.status", "e.drive_file_id", "e.drive_file_url",
	"e.received_at", "e.created_at", "e.updated_at",
}

type emailRow struct {
	ID           string              `db:"id"`
	Subject      string              `db:"subject"`
	Snippet      string              `db:"snippet"`
	SenderName   string              `db:"sender_name"`
	SenderEmail  string              `db:"sender_email"`
	Amount       decimal.NullDecimal `db:"amount"`
	Category     string              `db:"category"`
	Status       string              `db:"status"`
	DriveFileID  sql.NullString      `db:"drive_file_id"`
	DriveFileURL sql.NullString      `db:"drive_file_url"`
	ReceivedAt   timestamp           `db:"received_at"`
	CreatedAt    timestamp           `db:"created_at"`
	UpdatedAt    timestamp           `db:"updated_at"`
}

func (r emailRow) toModel() models.Email {
	return models.Email{
		ID:           r.ID,
		Subject:      r.Subject,
		Snippet:      r.Snippet,
		SenderName:   r.SenderName,
		SenderEmail:  r.SenderEmail,
		Amount:       r.Amount,
		Category:     r.Category,
		Status:       r.Status,
		DriveFileID:  nullStringPtr(r.DriveFileID),
		DriveFileURL: nullStringPtr(r.DriveFileURL),
		ReceivedAt:   r.ReceivedAt.Time,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func stringOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func amountOrNil(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// selectEmails builds the filtered query shared by listing and export.
func (db *DB) selectEmails(ctx context.Context, f models.EmailFilter) *relica.SelectQuery {
	q := db.builder(ctx).Select(emailColumns...).From("emails e")
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		q = q.Where(`LOWER(e.subject) LIKE ? ESCAPE '\'`, pattern)
	}
	if c := f.CategoryFilter(); c != "" {
		q = q.Where("e.category = ?", c)
	}
	if !f.DateFrom.IsZero() {
		q = q.Where("e.received_at >= ?", formatTime(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		q = q.Where("e.received_at <= ?", formatTime(f.DateTo))
	}
	return q.OrderBy("e.received_at DESC", "e.id DESC")
}

// ListEmails returns one page of emails matching f, newest first, with
// labels and attachments attached. A zero Limit yields an empty page.
func (db *DB) ListEmails(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error) {
	if f.Limit <= 0 {
		return []models.EmailWithLabels{}, nil
	}

	var rows []emailRow
	q := db.selectEmails(ctx, f).Limit(int64(f.Limit))
	if f.Offset > 0 {
		q = q.Offset(int64(f.Offset))
	}
	if err := q.All(&rows); err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return db.withRelations(ctx, rows)
}

// ListAllEmails returns every email matching f's search, category and date
// bounds. Limit and Offset are ignored.
func (db *DB) ListAllEmails(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error) {
	var rows []emailRow
	if err := db.selectEmails(ctx, f).All(&rows); err != nil {
		return nil, fmt.Errorf("list all emails: %w", err)
	}
	return db.withRelations(ctx, rows)
}

// GetEmail returns one email with its labels and attachments.
func (db *DB) GetEmail(ctx context.Context, id string) (*models.EmailWithLabels, error) {
	row, err := db.getEmailRow(db.builder(ctx), id)
	if err != nil {
		return nil, err
	}
	out, err := db.withRelations(ctx, []emailRow{*row})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (db *DB) getEmailRow(qb *relica.QueryBuilder, id string) (*emailRow, error) {
	var row emailRow
	err := qb.Select(emailColumns...).From("emails e").Where("e.id = ?", id).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email %s: %w", id, err)
	}
	return &row, nil
}

// withRelations resolves labels and attachments for all rows with two
// batched queries instead of two per email.
func (db *DB) withRelations(ctx context.Context, rows []emailRow) ([]models.EmailWithLabels, error) {
	out := make([]models.EmailWithLabels, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]interface{}, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	var (
		labels      map[string][]models.Label
		attachments map[string][]models.Attachment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		labels, err = db.labelsForEmails(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		attachments, err = db.attachmentsForEmails(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, r := range rows {
		out[i] = models.EmailWithLabels{
			Email:       r.toModel(),
			Labels:      labels[r.ID],
			Attachments: attachments[r.ID],
		}
		if out[i].Labels == nil {
			out[i].Labels = []models.Label{}
		}
		if out[i].Attachments == nil {
			out[i].Attachments = []models.Attachment{}
		}
	}
	return out, nil
}

// CreateEmail stores a new email, applying the default category, status
// and receive time.
func (db *DB) CreateEmail(ctx context.Context, in models.EmailInput) (*models.Email, error) {
	now := db.now().UTC()
	receivedAt := now
	if in.ReceivedAt != nil {
		receivedAt = in.ReceivedAt.UTC()
	}
	category := in.Category
	if category == "" {
		category = models.CategoryUncategorized
	}
	status := in.Status
	if status == "" {
		status = models.StatusNew
	}

	id := uuid.NewString()
	_, err := db.builder(ctx).Insert("emails", map[string]interface{}{
		"id":             id,
		"subject":        in.Subject,
		"snippet":        in.Snippet,
		"sender_name":    in.SenderName,
		"sender_email":   in.SenderEmail,
		"amount":         amountOrNil(in.Amount),
		"category":       category,
		"status":         status,
		"drive_file_id":  stringOrNil(in.DriveFileID),
		"drive_file_url": stringOrNil(in.DriveFileURL),
		"received_at":    formatTime(receivedAt),
		"created_at":     formatTime(now),
		"updated_at":     formatTime(now),
	}).Execute()
	if err != nil {
		return nil, fmt.Errorf("create email: %w", err)
	}

	row, err := db.getEmailRow(db.builder(ctx), id)
	if err != nil {
		return nil, err
	}
	e := row.toModel()
	return &e, nil
}

// UpdateEmail applies the non-nil fields of p and refreshes updated_at.
func (db *DB) UpdateEmail(ctx context.Context, id string, p models.EmailPatch) (*models.Email, error) {
	set := map[string]interface{}{
		"updated_at": formatTime(db.now()),
	}
	if p.Subject != nil {
		set["subject"] = *p.Subject
	}
	if p.Snippet != nil {
		set["snippet"] = *p.Snippet
	}
	if p.SenderName != nil {
		set["sender_name"] = *p.SenderName
	}
	if p.SenderEmail != nil {
		set["sender_email"] = *p.SenderEmail
	}
	if p.Amount != nil {
		set["amount"] = amountOrNil(*p.Amount)
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.DriveFileID != nil {
		set["drive_file_id"] = *p.DriveFileID
	}
	if p.DriveFileURL != nil {
		set["drive_file_url"] = *p.DriveFileURL
	}
	if p.ReceivedAt != nil {
		set["received_at"] = formatTime(*p.ReceivedAt)
	}

	var updated *emailRow
	err := db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if err := db.emailExists(qb, id); err != nil {
			return err
		}
		if _, err := qb.Update("emails").Set(set).Where("id = ?", id).Execute(); err != nil {
			return fmt.Errorf("update email %s: %w", id, err)
		}
		row, err := db.getEmailRow(qb, id)
		updated = row
		return err
	})
	if err != nil {
		return nil, err
	}
	e := updated.toModel()
	return &e, nil
}

// MarkExported records the document reference produced for an email and
// sets its status to exported.
func (db *DB) MarkExported(ctx context.Context, id, fileID, fileURL string) (*models.Email, error) {
	status := models.StatusExported
	return db.UpdateEmail(ctx, id, models.EmailPatch{
		Status:       &status,
		DriveFileID:  &fileID,
		DriveFileURL: &fileURL,
	})
}

// DeleteEmail removes an email together with its label links and
// attachments.
func (db *DB) DeleteEmail(ctx context.Context, id string) error {
	return db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if err := db.emailExists(qb, id); err != nil {
			return err
		}
		if _, err := qb.Delete("email_labels").Where("email_id = ?", id).Execute(); err != nil {
			return fmt.Errorf("delete email labels: %w", err)
		}
		if _, err := qb.Delete("attachments").Where("email_id = ?", id).Execute(); err != nil {
			return fmt.Errorf("delete email attachments: %w", err)
		}
		if _, err := qb.Delete("emails").Where("id = ?", id).Execute(); err != nil {
			return fmt.Errorf("delete email %s: %w", id, err)
		}
		return nil
	})
}

func (db *DB) emailExists(qb *relica.QueryBuilder, id string) error {
	var row struct {
		ID string `db:"id"`
	}
	err := qb.Select("id").From("emails").Where("id = ?", id).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup email %s: %w", id, err)
	}
	return nil
}
