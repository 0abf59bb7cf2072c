package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"finmail/internal/export"
	"finmail/internal/models"
)

var (
	exportOut      string
	exportSearch   string
	exportCategory string
	exportFrom     string
	exportTo       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export emails",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Write matching emails as CSV",
	Long: `Write every email matching the filters as CSV, newest first. The output
is the same as the dashboard's CSV download.`,
	Example: `  finmail export csv --category Utilities --from 2024-01-01 --to 2024-03-31
  finmail export csv --out -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := exportFilter()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		database, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		emails, err := database.ListAllEmails(ctx, f)
		if err != nil {
			return fmt.Errorf("list emails: %w", err)
		}

		out := exportOut
		if out == "" {
			out = export.CSVFilename(time.Now())
		}
		if out == "-" {
			return export.WriteEmailsCSV(os.Stdout, emails)
		}

		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		cw := &countingWriter{w: file}
		if err := export.WriteEmailsCSV(cw, emails); err != nil {
			file.Close()
			return fmt.Errorf("write %s: %w", out, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", out, err)
		}

		fmt.Printf("Exported %s emails to %s (%s)\n", humanize.Comma(int64(len(emails))), out, humanize.Bytes(uint64(cw.n)))
		return nil
	},
}

func exportFilter() (models.EmailFilter, error) {
	f := models.EmailFilter{Search: exportSearch, Category: exportCategory}
	if exportFrom != "" {
		t, err := time.Parse("2006-01-02", exportFrom)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.DateFrom = t
	}
	if exportTo != "" {
		t, err := time.Parse("2006-01-02", exportTo)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.DateTo = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return f, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func init() {
	exportCSVCmd.Flags().StringVarP(&exportOut, "out", "o", "", `output file, "-" for stdout (default: emails-export-<date>.csv)`)
	exportCSVCmd.Flags().StringVar(&exportSearch, "search", "", "subject substring")
	exportCSVCmd.Flags().StringVar(&exportCategory, "category", "", "category to match")
	exportCSVCmd.Flags().StringVar(&exportFrom, "from", "", "earliest received date, YYYY-MM-DD")
	exportCSVCmd.Flags().StringVar(&exportTo, "to", "", "latest received date, YYYY-MM-DD (inclusive)")

	exportCmd.AddCommand(exportCSVCmd)
	rootCmd.AddCommand(exportCmd)
}
