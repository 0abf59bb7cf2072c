package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"finmail/internal/db"
	"finmail/internal/models"
)

// maxPageSize caps a single page of emails.
const maxPageSize = 1000

// parseEmailFilter reads limit, offset, search, category, dateFrom and
// dateTo. A date-only dateTo covers the whole of that day.
func parseEmailFilter(q url.Values) (models.EmailFilter, error) {
	f := models.EmailFilter{
		Limit:    models.DefaultPageSize,
		Search:   strings.TrimSpace(q.Get("search")),
		Category: q.Get("category"),
	}
	var fields []db.FieldError

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, db.FieldError{Field: "limit", Message: "must be a non-negative integer"})
		} else {
			f.Limit = min(n, maxPageSize)
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, db.FieldError{Field: "offset", Message: "must be a non-negative integer"})
		} else {
			f.Offset = n
		}
	}
	if v := q.Get("dateFrom"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			fields = append(fields, db.FieldError{Field: "dateFrom", Message: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
		}
		f.DateFrom = t
	}
	if v := q.Get("dateTo"); v != "" {
		t, dateOnly, err := parseDate(v)
		if err != nil {
			fields = append(fields, db.FieldError{Field: "dateTo", Message: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.DateTo = t
	}

	if len(fields) > 0 {
		return f, &db.ValidationError{Fields: fields}
	}
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, false, err
}
