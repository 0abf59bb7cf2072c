package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryUncategorized = "Uncategorized"
	// CategoryAll is sent by the client to mean "no category filter".
	CategoryAll = "All Categories"

	StatusNew      = "new"
	StatusExported = "exported"

	DefaultPageSize = 50
)

type Email struct {
	ID           string              `json:"id"`
	Subject      string              `json:"subject"`
	Snippet      string              `json:"snippet"`
	SenderName   string              `json:"senderName"`
	SenderEmail  string              `json:"senderEmail"`
	Amount       decimal.NullDecimal `json:"amount"`
	Category     string              `json:"category"`
	Status       string              `json:"status"`
	DriveFileID  *string             `json:"driveFileId"`
	DriveFileURL *string             `json:"driveFileUrl"`
	ReceivedAt   time.Time           `json:"receivedAt"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// EmailWithLabels is an email with its labels and attachments resolved.
type EmailWithLabels struct {
	Email
	Labels      []Label      `json:"labels"`
	Attachments []Attachment `json:"attachments"`
}

// EmailFilter selects emails for listing and export. A zero DateFrom or
// DateTo leaves that bound open.
type EmailFilter struct {
	Limit    int
	Offset   int
	Search   string
	Category string
	DateFrom time.Time
	DateTo   time.Time
}

// CategoryFilter reports the category to match, or "" for no filter.
func (f EmailFilter) CategoryFilter() string {
	if f.Category == CategoryAll {
		return ""
	}
	return f.Category
}

// EmailInput is the creation shape of an email.
type EmailInput struct {
	Subject      string              `json:"subject" validate:"required,max=998"`
	Snippet      string              `json:"snippet" validate:"max=4000"`
	SenderName   string              `json:"senderName" validate:"required,max=255"`
	SenderEmail  string              `json:"senderEmail" validate:"required,email,max=254"`
	Amount       decimal.NullDecimal `json:"amount"`
	Category     string              `json:"category" validate:"max=100"`
	Status       string              `json:"status" validate:"max=50"`
	DriveFileID  *string             `json:"driveFileId" validate:"omitempty,max=255"`
	DriveFileURL *string             `json:"driveFileUrl" validate:"omitempty,url"`
	ReceivedAt   *time.Time          `json:"receivedAt"`
}

// EmailPatch is a partial update; nil fields are left unchanged.
type EmailPatch struct {
	Subject      *string              `json:"subject" validate:"omitempty,min=1,max=998"`
	Snippet      *string              `json:"snippet" validate:"omitempty,max=4000"`
	SenderName   *string              `json:"senderName" validate:"omitempty,min=1,max=255"`
	SenderEmail  *string              `json:"senderEmail" validate:"omitempty,email,max=254"`
	Amount       *decimal.NullDecimal `json:"amount"`
	Category     *string              `json:"category" validate:"omitempty,min=1,max=100"`
	Status       *string              `json:"status" validate:"omitempty,min=1,max=50"`
	DriveFileID  *string              `json:"driveFileId" validate:"omitempty,max=255"`
	DriveFileURL *string              `json:"driveFileUrl" validate:"omitempty,url"`
	ReceivedAt   *time.Time           `json:"receivedAt"`
}
