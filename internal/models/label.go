package models

import "time"

type Label struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type LabelInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Description string `json:"description" validate:"max=500"`
}

type LabelPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// EmailLabelInput links an existing label to an email.
type EmailLabelInput struct {
	LabelID int64 `json:"labelId" validate:"required,gt=0"`
}

type Attachment struct {
	ID        string    `json:"id"`
	EmailID   string    `json:"emailId"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type AttachmentInput struct {
	Filename string `json:"filename" validate:"required,max=255"`
	MimeType string `json:"mimeType" validate:"required,max=100"`
	Size     int64  `json:"size" validate:"gte=0"`
}
