package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coregx/relica"

	"finmail/internal/models"
)

type labelRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	CreatedAt   timestamp `db:"created_at"`
}

func (r labelRow) toModel() models.Label {
	return models.Label{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Time,
	}
}

// emailLabelRow is a label joined through email_labels.
type emailLabelRow struct {
	EmailID     string    `db:"email_id"`
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	CreatedAt   timestamp `db:"created_at"`
}

var labelColumns = []string{"l.id", "l.name", "l.color", "l.description", "l.created_at"}

// ListLabels returns all labels ordered by name.
func (db *DB) ListLabels(ctx context.Context) ([]models.Label, error) {
	var rows []labelRow
	if err := db.builder(ctx).Select(labelColumns...).From("labels l").OrderBy("l.name ASC", "l.id ASC").All(&rows); err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]models.Label, len(rows))
	for i, r := range rows {
		labels[i] = r.toModel()
	}
	return labels, nil
}

func (db *DB) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	return getLabel(db.builder(ctx), "l.id = ?", id)
}

func getLabel(qb *relica.QueryBuilder, where string, arg interface{}) (*models.Label, error) {
	var row labelRow
	err := qb.Select(labelColumns...).From("labels l").Where(where, arg).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", err)
	}
	l := row.toModel()
	return &l, nil
}

// CreateLabel stores a new label. Names are unique.
func (db *DB) CreateLabel(ctx context.Context, in models.LabelInput) (*models.Label, error) {
	_, err := db.builder(ctx).Insert("labels", map[string]interface{}{
		"name":        in.Name,
		"color":       in.Color,
		"description": in.Description,
		"created_at":  formatTime(db.now()),
	}).Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fieldError("name", "a label with this name already exists")
		}
		return nil, fmt.Errorf("create label: %w", err)
	}
	// lib/pq does not support LastInsertId; the unique name finds the row.
	return getLabel(db.builder(ctx), "l.name = ?", in.Name)
}

// UpdateLabel applies the non-nil fields of p.
func (db *DB) UpdateLabel(ctx context.Context, id int64, p models.LabelPatch) (*models.Label, error) {
	set := map[string]interface{}{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Color != nil {
		set["color"] = *p.Color
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}

	var updated *models.Label
	err := db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if _, err := getLabel(qb, "l.id = ?", id); err != nil {
			return err
		}
		if len(set) > 0 {
			if _, err := qb.Update("labels").Set(set).Where("id = ?", id).Execute(); err != nil {
				if isUniqueViolation(err) {
					return fieldError("name", "a label with this name already exists")
				}
				return fmt.Errorf("update label %d: %w", id, err)
			}
		}
		l, err := getLabel(qb, "l.id = ?", id)
		updated = l
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteLabel removes a label and detaches it from every email.
func (db *DB) DeleteLabel(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if _, err := getLabel(qb, "l.id = ?", id); err != nil {
			return err
		}
		if _, err := qb.Delete("email_labels").Where("label_id = ?", id).Execute(); err != nil {
			return fmt.Errorf("detach label %d: %w", id, err)
		}
		if _, err := qb.Delete("labels").Where("id = ?", id).Execute(); err != nil {
			return fmt.Errorf("delete label %d: %w", id, err)
		}
		return nil
	})
}

// AddEmailLabel links a label to an email. Linking twice is a no-op.
func (db *DB) AddEmailLabel(ctx context.Context, emailID string, labelID int64) error {
	return db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if err := db.emailExists(qb, emailID); err != nil {
			return err
		}
		if _, err := getLabel(qb, "l.id = ?", labelID); err != nil {
			return err
		}

		var link struct {
			N int64 `db:"n"`
		}
		err := qb.Select("COUNT(*) AS n").From("email_labels").
			Where("email_id = ? AND label_id = ?", emailID, labelID).One(&link)
		if err != nil {
			return fmt.Errorf("lookup email label: %w", err)
		}
		if link.N > 0 {
			return nil
		}

		_, err = qb.Insert("email_labels", map[string]interface{}{
			"email_id": emailID,
			"label_id": labelID,
		}).Execute()
		if err != nil {
			return fmt.Errorf("add email label: %w", err)
		}
		return nil
	})
}

// RemoveEmailLabel unlinks a label from an email. The email and label must
// exist; an absent link is not an error.
func (db *DB) RemoveEmailLabel(ctx context.Context, emailID string, labelID int64) error {
	return db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if err := db.emailExists(qb, emailID); err != nil {
			return err
		}
		if _, err := getLabel(qb, "l.id = ?", labelID); err != nil {
			return err
		}
		_, err := qb.Delete("email_labels").
			Where("email_id = ? AND label_id = ?", emailID, labelID).Execute()
		if err != nil {
			return fmt.Errorf("remove email label: %w", err)
		}
		return nil
	})
}

func (db *DB) labelsForEmails(ctx context.Context, ids []interface{}) (map[string][]models.Label, error) {
	result := make(map[string][]models.Label, len(ids))
	err := inChunks(ids, func(chunk []interface{}) error {
		var rows []emailLabelRow
		err := db.builder(ctx).
			Select(append([]string{"el.email_id"}, labelColumns...)...).
			From("labels l").
			InnerJoin("email_labels el", "el.label_id = l.id").
			// relica quotes the whole name, so a qualified "el.email_id"
			// would not resolve. labels has no email_id column.
			Where(relica.In("email_id", chunk...)).
			OrderBy("l.name ASC", "l.id ASC").
			All(&rows)
		if err != nil {
			return fmt.Errorf("load email labels: %w", err)
		}
		for _, r := range rows {
			result[r.EmailID] = append(result[r.EmailID], models.Label{
				ID:          r.ID,
				Name:        r.Name,
				Color:       r.Color,
				Description: r.Description,
				CreatedAt:   r.CreatedAt.Time,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
