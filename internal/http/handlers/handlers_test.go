package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finmail/internal/db"
	"finmail/internal/export"
	"finmail/internal/mailsync"
	"finmail/internal/models"
	"finmail/internal/security"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockEmailStore implements EmailStore; unset funcs panic through the nil
// embedded interface.
type mockEmailStore struct {
	EmailStore
	getEmail      func(ctx context.Context, id string) (*models.EmailWithLabels, error)
	listAllEmails func(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error)
	markExported  func(ctx context.Context, id, fileID, fileURL string) (*models.Email, error)
}

func (m *mockEmailStore) GetEmail(ctx context.Context, id string) (*models.EmailWithLabels, error) {
	return m.getEmail(ctx, id)
}

func (m *mockEmailStore) ListAllEmails(ctx context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error) {
	return m.listAllEmails(ctx, f)
}

func (m *mockEmailStore) MarkExported(ctx context.Context, id, fileID, fileURL string) (*models.Email, error) {
	return m.markExported(ctx, id, fileID, fileURL)
}

type mockDashboardStore struct {
	DashboardStore
	gotMonths int
	gotNow    time.Time
}

func (m *mockDashboardStore) MonthlyVolume(_ context.Context, now time.Time, months int) ([]models.MonthlyVolume, error) {
	m.gotNow, m.gotMonths = now, months
	return []models.MonthlyVolume{}, nil
}

type fakeScheduler struct {
	err error
}

func (f *fakeScheduler) Sync(context.Context) (mailsync.Result, error) {
	return mailsync.Result{Message: "Sync completed"}, f.err
}

func (f *fakeScheduler) Status() mailsync.Status { return mailsync.Status{} }

type failingExporter struct{}

func (failingExporter) ExportEmail(context.Context, models.Email) (export.FileRef, error) {
	return export.FileRef{}, errors.New("drive unavailable")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", db.ErrNotFound, http.StatusNotFound, `{"error":"Email not found"}`},
		{"wrapped not found", errors.Join(errors.New("lookup"), db.ErrNotFound), http.StatusNotFound, `{"error":"Email not found"}`},
		{
			"validation", &db.ValidationError{Fields: []db.FieldError{{Field: "subject", Message: "is required"}}},
			http.StatusBadRequest, `{"error":"Invalid email data","details":[{"field":"subject","message":"is required"}]}`,
		},
		{"bad credentials", security.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"Invalid credentials"}`},
		{"no session", security.ErrUnauthenticated, http.StatusUnauthorized, `{"error":"Authentication required"}`},
		{"internal", errors.New("disk I/O error"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeStoreError(rec, httptest.NewRequest("GET", "/", nil), testLogger(), tt.err, "email")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "disk")
		})
	}
}

func TestParseEmailFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    models.EmailFilter
		wantErr []string
	}{
		{
			name:  "defaults",
			query: "",
			want:  models.EmailFilter{Limit: models.DefaultPageSize},
		},
		{
			name:  "all params",
			query: "limit=10&offset=20&search=%20rent%20&category=Utilities&dateFrom=2024-01-01&dateTo=2024-01-31",
			want: models.EmailFilter{
				Limit:    10,
				Offset:   20,
				Search:   "rent",
				Category: "Utilities",
				DateFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				DateTo:   time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC),
			},
		},
		{
			name:  "timestamp bound kept exact",
			query: "dateTo=2024-01-31T10:00:00Z",
			want: models.EmailFilter{
				Limit:  models.DefaultPageSize,
				DateTo: time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name:  "limit capped",
			query: "limit=5000",
			want:  models.EmailFilter{Limit: maxPageSize},
		},
		{
			name:  "zero limit",
			query: "limit=0",
			want:  models.EmailFilter{Limit: 0},
		},
		{
			name:    "bad values",
			query:   "limit=ten&offset=-1&dateFrom=soon&dateTo=later",
			wantErr: []string{"limit", "offset", "dateFrom", "dateTo"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := parseEmailFilter(q)
			if tt.wantErr != nil {
				var verr *db.ValidationError
				require.ErrorAs(t, err, &verr)
				var fields []string
				for _, f := range verr.Fields {
					fields = append(fields, f.Field)
				}
				assert.Equal(t, tt.wantErr, fields)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty", "", "request body is empty"},
		{"syntax", "{", "request body must be valid JSON"},
		{"type", `{"labelId":"one"}`, "labelId has the wrong type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in models.EmailLabelInput
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &in)
			var verr *db.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []db.FieldError{{Field: "body", Message: tt.msg}}, verr.Fields)
		})
	}
}

func TestValidateInput(t *testing.T) {
	err := validateInput(&models.LabelInput{Name: "", Color: "blue"})
	var verr *db.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []db.FieldError{
		{Field: "name", Message: "is required"},
		{Field: "color", Message: "must be a hex color such as #3b82f6"},
	}, verr.Fields)

	assert.NoError(t, validateInput(&models.LabelInput{Name: "Tax", Color: "#abc"}))
}

func TestPlainText(t *testing.T) {
	tests := map[string]string{
		"Invoice":                            "Invoice",
		"<script>alert(1)</script>Invoice":   "Invoice",
		"<b>Q1</b> &amp; Q2":                 "Q1 & Q2",
		"  Tom & Jerry  ":                    "Tom & Jerry",
		`<a href="javascript:x()">click</a>`: "click",
		"Café <i>receipt</i> €12.00":         "Café receipt €12.00",
		"Invoice <ACME-123>":                 "Invoice <ACME-123>",
		"Jane Doe <jane@acme.test>":          "Jane Doe <jane@acme.test>",
		"PO </ACME> closed":                  "PO </ACME> closed",
		"total < 5 & > 2":                    "total < 5 & > 2",
		"<B>Bold</B> <REF-9>":                "Bold <REF-9>",
	}
	for in, want := range tests {
		assert.Equal(t, want, plainText(in), in)
	}

	var nilPtr *string
	plainTextPtr(nilPtr)
	s := "<p>hi</p>"
	plainTextPtr(&s)
	assert.Equal(t, "hi", s)
}

func TestVolume_Months(t *testing.T) {
	store := &mockDashboardStore{}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	h := NewDashboardHandler(store, testLogger())
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	h.Volume(rec, httptest.NewRequest("GET", "/api/dashboard/volume", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultVolumeMonths, store.gotMonths)
	assert.Equal(t, now, store.gotNow)

	rec = httptest.NewRecorder()
	h.Volume(rec, httptest.NewRequest("GET", "/api/dashboard/volume?months=24", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, store.gotMonths)

	for _, bad := range []string{"0", "25", "-3", "six"} {
		rec = httptest.NewRecorder()
		h.Volume(rec, httptest.NewRequest("GET", "/api/dashboard/volume?months="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSyncTrigger(t *testing.T) {
	h := NewSyncHandler(&fakeScheduler{}, testLogger())
	rec := httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest("POST", "/api/sync", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewSyncHandler(&fakeScheduler{err: mailsync.ErrSyncInProgress}, testLogger())
	rec = httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest("POST", "/api/sync", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	h = NewSyncHandler(&fakeScheduler{err: errors.New("imap down")}, testLogger())
	rec = httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest("POST", "/api/sync", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportPDF_ExporterFailure(t *testing.T) {
	marked := false
	store := &mockEmailStore{
		getEmail: func(_ context.Context, id string) (*models.EmailWithLabels, error) {
			return &models.EmailWithLabels{Email: models.Email{ID: id}}, nil
		},
		markExported: func(context.Context, string, string, string) (*models.Email, error) {
			marked = true
			return nil, nil
		},
	}
	h := NewEmailHandler(store, failingExporter{}, testLogger())

	rec := httptest.NewRecorder()
	h.ExportPDF(rec, httptest.NewRequest("POST", "/api/emails/e1/export", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, marked, "a failed export must not mark the email")
}

func TestExportCSV(t *testing.T) {
	var gotFilter models.EmailFilter
	store := &mockEmailStore{
		listAllEmails: func(_ context.Context, f models.EmailFilter) ([]models.EmailWithLabels, error) {
			gotFilter = f
			return []models.EmailWithLabels{{Email: models.Email{Subject: "Rent", ReceivedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}}, nil
		},
	}
	h := NewExportHandler(store, testLogger())
	h.now = func() time.Time { return time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.CSV(rec, httptest.NewRequest("GET", "/api/export/csv?category=Housing", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Housing", gotFilter.Category)
	assert.Equal(t, `attachment; filename="emails-export-2024-03-15.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(export.CSVHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Rent",`))

	rec = httptest.NewRecorder()
	h.CSV(rec, httptest.NewRequest("GET", "/api/export/csv?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(pinger{}).Health(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(pinger{err: errors.New("closed")}).Health(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
}
