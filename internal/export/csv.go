package export

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finmail/internal/models"
)

// CSVHeader is the first line of every email export.
var CSVHeader = []string{
	"Subject",
	"Sender Name",
	"Sender Email",
	"Category",
	"Amount",
	"Status",
	"Received Date",
	"Labels",
}

// CSVFilename names an export produced at now.
func CSVFilename(now time.Time) string {
	return "emails-export-" + now.UTC().Format("2006-01-02") + ".csv"
}

// WriteEmailsCSV writes emails as CSV. Data fields are always quoted, with
// embedded quotes doubled. Lines end in "\n".
func WriteEmailsCSV(w io.Writer, emails []models.EmailWithLabels) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(CSVHeader, ",")); err != nil {
		return err
	}

	for _, e := range emails {
		names := make([]string, len(e.Labels))
		for i, l := range e.Labels {
			names[i] = l.Name
		}
		record := []string{
			e.Subject,
			e.SenderName,
			e.SenderEmail,
			e.Category,
			FormatAmount(e.Amount),
			e.Status,
			e.ReceivedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			strings.Join(names, "; "),
		}

		bw.WriteByte('\n')
		for i, field := range record {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
			bw.WriteByte('"')
		}
	}
	return bw.Flush()
}

// FormatAmount renders an amount with at least two decimal places, or ""
// when it is absent.
func FormatAmount(a decimal.NullDecimal) string {
	if !a.Valid {
		return ""
	}
	if a.Decimal.Exponent() < -2 {
		return a.Decimal.String()
	}
	return a.Decimal.StringFixed(2)
}
