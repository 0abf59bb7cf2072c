package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finmail/internal/models"
)

func subjects(emails []models.EmailWithLabels) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = e.Subject
	}
	return out
}

func TestCreateEmail_Defaults(t *testing.T) {
	db := openTestDB(t)

	e := mustCreateEmail(t, db, models.EmailInput{Subject: "Receipt"})
	assert.Equal(t, models.CategoryUncategorized, e.Category)
	assert.Equal(t, models.StatusNew, e.Status)
	assert.True(t, e.ReceivedAt.Equal(testNow))
	assert.True(t, e.CreatedAt.Equal(testNow))
	assert.False(t, e.Amount.Valid)
	assert.Nil(t, e.DriveFileID)
}

func TestListEmails_OrderAndPaging(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustCreateEmail(t, db, models.EmailInput{
			Subject:    fmt.Sprintf("mail-%d", i),
			ReceivedAt: at(base.Add(time.Duration(i) * time.Hour)),
		})
	}

	tests := []struct {
		name   string
		filter models.EmailFilter
		want   []string
	}{
		{"first page", models.EmailFilter{Limit: 2}, []string{"mail-4", "mail-3"}},
		{"second page", models.EmailFilter{Limit: 2, Offset: 2}, []string{"mail-2", "mail-1"}},
		{"past end", models.EmailFilter{Limit: 2, Offset: 10}, []string{}},
		{"zero limit", models.EmailFilter{Limit: 0}, []string{}},
		{"date window", models.EmailFilter{
			Limit:    10,
			DateFrom: base.Add(time.Hour),
			DateTo:   base.Add(3 * time.Hour),
		}, []string{"mail-3", "mail-2", "mail-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListEmails(ctx, tt.filter)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, subjects(got), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("subjects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListEmails_TieBreakOnID(t *testing.T) {
	db := openTestDB(t)
	same := at(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	a := mustCreateEmail(t, db, models.EmailInput{Subject: "a", ReceivedAt: same})
	b := mustCreateEmail(t, db, models.EmailInput{Subject: "b", ReceivedAt: same})

	got, err := db.ListEmails(context.Background(), models.EmailFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	wantFirst := a.ID
	if b.ID > a.ID {
		wantFirst = b.ID
	}
	assert.Equal(t, wantFirst, got[0].ID)
}

func TestListEmails_SearchAndCategory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustCreateEmail(t, db, models.EmailInput{Subject: "Electricity Invoice", Category: "Utilities"})
	mustCreateEmail(t, db, models.EmailInput{Subject: "Team lunch", Category: "Food"})
	mustCreateEmail(t, db, models.EmailInput{Subject: "100% discount", Category: "Promotions"})
	mustCreateEmail(t, db, models.EmailInput{Subject: "1000 points", Category: "Promotions"})

	tests := []struct {
		name   string
		filter models.EmailFilter
		want   []string
	}{
		{"case insensitive", models.EmailFilter{Search: "INVOICE"}, []string{"Electricity Invoice"}},
		{"wildcard is literal", models.EmailFilter{Search: "100%"}, []string{"100% discount"}},
		{"category", models.EmailFilter{Category: "Food"}, []string{"Team lunch"}},
		{"all categories", models.EmailFilter{Category: models.CategoryAll}, nil},
		{"combined", models.EmailFilter{Category: "Promotions", Search: "points"}, []string{"1000 points"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = 50
			got, err := db.ListEmails(ctx, tt.filter)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Len(t, got, 4)
				return
			}
			assert.ElementsMatch(t, tt.want, subjects(got))
		})
	}
}

func TestListEmails_Relations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e1 := mustCreateEmail(t, db, models.EmailInput{Subject: "with relations"})
	e2 := mustCreateEmail(t, db, models.EmailInput{Subject: "bare"})
	zeta := mustCreateLabel(t, db, "Zeta")
	alpha := mustCreateLabel(t, db, "Alpha")
	require.NoError(t, db.AddEmailLabel(ctx, e1.ID, zeta.ID))
	require.NoError(t, db.AddEmailLabel(ctx, e1.ID, alpha.ID))
	_, err := db.CreateAttachment(ctx, e1.ID, models.AttachmentInput{Filename: "r.pdf", MimeType: "application/pdf", Size: 10})
	require.NoError(t, err)

	got, err := db.ListEmails(ctx, models.EmailFilter{Limit: 10})
	require.NoError(t, err)
	byID := map[string]models.EmailWithLabels{}
	for _, e := range got {
		byID[e.ID] = e
	}

	withRel := byID[e1.ID]
	require.Len(t, withRel.Labels, 2)
	assert.Equal(t, "Alpha", withRel.Labels[0].Name)
	assert.Equal(t, "Zeta", withRel.Labels[1].Name)
	require.Len(t, withRel.Attachments, 1)
	assert.Equal(t, "r.pdf", withRel.Attachments[0].Filename)

	bare := byID[e2.ID]
	assert.NotNil(t, bare.Labels)
	assert.Empty(t, bare.Labels)
	assert.NotNil(t, bare.Attachments)
	assert.Empty(t, bare.Attachments)
}

func TestGetEmail_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetEmail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	e := mustCreateEmail(t, db, models.EmailInput{Subject: "Old", Category: "Bills", Amount: amount("5.00")})

	later := testNow.Add(time.Hour)
	db.now = func() time.Time { return later }

	category := "Travel"
	got, err := db.UpdateEmail(ctx, e.ID, models.EmailPatch{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.Category)
	assert.Equal(t, "Old", got.Subject)
	assert.True(t, got.Amount.Decimal.Equal(amount("5").Decimal))
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(testNow))

	_, err = db.UpdateEmail(ctx, "missing", models.EmailPatch{Category: &category})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEmail_EmptyPatchTouchesUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	e := mustCreateEmail(t, db, models.EmailInput{Subject: "Unchanged"})

	later := testNow.Add(time.Minute)
	db.now = func() time.Time { return later }
	got, err := db.UpdateEmail(context.Background(), e.ID, models.EmailPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Unchanged", got.Subject)
	assert.True(t, got.UpdatedAt.Equal(later))
}

func TestMarkExported(t *testing.T) {
	db := openTestDB(t)
	e := mustCreateEmail(t, db, models.EmailInput{Subject: "Invoice"})

	got, err := db.MarkExported(context.Background(), e.ID, "pdf_1", "https://drive.example/pdf_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExported, got.Status)
	require.NotNil(t, got.DriveFileID)
	assert.Equal(t, "pdf_1", *got.DriveFileID)
	require.NotNil(t, got.DriveFileURL)
	assert.Equal(t, "https://drive.example/pdf_1", *got.DriveFileURL)
}

func TestDeleteEmail_Cascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := mustCreateEmail(t, db, models.EmailInput{Subject: "Doomed"})
	l := mustCreateLabel(t, db, "Keep")
	require.NoError(t, db.AddEmailLabel(ctx, e.ID, l.ID))
	_, err := db.CreateAttachment(ctx, e.ID, models.AttachmentInput{Filename: "a.pdf", MimeType: "application/pdf"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteEmail(ctx, e.ID))

	_, err = db.GetEmail(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteEmail(ctx, e.ID), ErrNotFound)

	n, err := db.count(ctx, "attachments", "")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = db.count(ctx, "email_labels", "")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = db.GetLabel(ctx, l.ID)
	assert.NoError(t, err, "labels survive email deletion")
}

func TestListAllEmails_IgnoresPaging(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		mustCreateEmail(t, db, models.EmailInput{Subject: fmt.Sprintf("e%d", i)})
	}
	got, err := db.ListAllEmails(context.Background(), models.EmailFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
