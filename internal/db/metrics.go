package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finmail/internal/models"
)

// MaxVolumeMonths bounds the MonthlyVolume window.
const MaxVolumeMonths = 24

// MonthBounds returns the first and last instant of the calendar month
// containing now, in now's location.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// amountRow carries the columns the aggregations fold over.
type amountRow struct {
	Category    string              `db:"category"`
	SenderName  string              `db:"sender_name"`
	SenderEmail string              `db:"sender_email"`
	Amount      decimal.NullDecimal `db:"amount"`
	ReceivedAt  timestamp           `db:"received_at"`
}

func (r amountRow) amount() decimal.Decimal {
	if !r.Amount.Valid {
		return decimal.Zero
	}
	return r.Amount.Decimal
}

func (db *DB) count(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	var row struct {
		N int64 `db:"n"`
	}
	q := db.builder(ctx).Select("COUNT(*) AS n").From(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.One(&row); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return row.N, nil
}

func (db *DB) amountsBetween(ctx context.Context, start, end time.Time) ([]amountRow, error) {
	var rows []amountRow
	err := db.builder(ctx).
		Select("category", "sender_name", "sender_email", "amount", "received_at").
		From("emails").
		Where("received_at >= ? AND received_at <= ?", formatTime(start), formatTime(end)).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("load amounts: %w", err)
	}
	return rows, nil
}

// DashboardMetrics computes the summary cards for the month containing now.
func (db *DB) DashboardMetrics(ctx context.Context, now time.Time) (*models.DashboardMetrics, error) {
	var m models.DashboardMetrics
	start, end := MonthBounds(now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := db.count(gctx, "emails", "")
		m.TotalEmails = n
		return err
	})
	g.Go(func() error {
		n, err := db.count(gctx, "emails", "category = ?", models.CategoryUncategorized)
		m.UncategorizedEmails = n
		return err
	})
	g.Go(func() error {
		n, err := db.count(gctx, "attachments", "")
		m.TotalDocuments = n
		return err
	})
	g.Go(func() error {
		rows, err := db.amountsBetween(gctx, start, end)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.amount())
		}
		m.MonthlyExpenses = total.InexactFloat64()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ExpensesByCategory sums this month's amounts per category, largest first.
func (db *DB) ExpensesByCategory(ctx context.Context, now time.Time) ([]models.CategoryExpense, error) {
	start, end := MonthBounds(now)
	rows, err := db.amountsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sum   decimal.Decimal
		count int64
	}
	buckets := make(map[string]*bucket)
	for _, r := range rows {
		b, ok := buckets[r.Category]
		if !ok {
			b = &bucket{sum: decimal.Zero}
			buckets[r.Category] = b
		}
		b.sum = b.sum.Add(r.amount())
		b.count++
	}

	out := make([]models.CategoryExpense, 0, len(buckets))
	sums := make(map[string]decimal.Decimal, len(buckets))
	for cat, b := range buckets {
		out = append(out, models.CategoryExpense{
			Category: cat,
			Amount:   b.sum.InexactFloat64(),
			Count:    b.count,
		})
		sums[cat] = b.sum
	}
	sort.Slice(out, func(i, j int) bool {
		if c := sums[out[i].Category].Cmp(sums[out[j].Category]); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// MonthlyVolume returns email counts and amount totals for the trailing
// months ending with the month containing now, oldest first. Months with
// no email are present with zero values.
func (db *DB) MonthlyVolume(ctx context.Context, now time.Time, months int) ([]models.MonthlyVolume, error) {
	if months < 1 {
		months = 1
	}
	if months > MaxVolumeMonths {
		months = MaxVolumeMonths
	}

	current, end := MonthBounds(now)
	start := current.AddDate(0, -(months - 1), 0)
	rows, err := db.amountsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]models.MonthlyVolume, months)
	sums := make([]decimal.Decimal, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		out[i].Month = key
		sums[i] = decimal.Zero
		index[key] = i
	}
	for _, r := range rows {
		i, ok := index[r.ReceivedAt.In(now.Location()).Format("2006-01")]
		if !ok {
			continue
		}
		out[i].Emails++
		sums[i] = sums[i].Add(r.amount())
	}
	for i := range out {
		out[i].Amount = sums[i].InexactFloat64()
	}
	return out, nil
}

// Contacts aggregates emails per sender address, most recently heard from
// first. A non-empty search matches sender name or address, case
// insensitively.
func (db *DB) Contacts(ctx context.Context, search string) ([]models.Contact, error) {
	q := db.builder(ctx).
		Select("category", "sender_name", "sender_email", "amount", "received_at").
		From("emails")
	if search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		q = q.Where(`(LOWER(sender_name) LIKE ? ESCAPE '\' OR LOWER(sender_email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	var rows []amountRow
	if err := q.OrderBy("received_at DESC", "id DESC").All(&rows); err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	type agg struct {
		contact models.Contact
		total   decimal.Decimal
	}
	var order []string
	byAddr := make(map[string]*agg)
	for _, r := range rows {
		key := strings.ToLower(r.SenderEmail)
		a, ok := byAddr[key]
		if !ok {
			// Rows arrive newest first, so the first row names the contact.
			a = &agg{
				contact: models.Contact{
					Name:          r.SenderName,
					Email:         r.SenderEmail,
					LastEmailDate: r.ReceivedAt.Time,
				},
				total: decimal.Zero,
			}
			byAddr[key] = a
			order = append(order, key)
		}
		a.contact.EmailCount++
		a.total = a.total.Add(r.amount())
	}

	out := make([]models.Contact, len(order))
	for i, key := range order {
		a := byAddr[key]
		a.contact.TotalAmount = a.total.InexactFloat64()
		out[i] = a.contact
	}
	return out, nil
}
