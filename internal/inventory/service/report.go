package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/errors"
)

// Report types
const (
	ReportMonthly = "monthly"
	ReportYearly  = "yearly"
)

const noBatchName = "N/A"

// ReportRow is the disbursement summary of one (item, batch) group
type ReportRow struct {
	ItemName       string `json:"itemName"`
	BatchName      string `json:"batchName"`
	BatchQuantity  int    `json:"batchQuantity"`
	TotalDisbursed int    `json:"totalDisbursed"`
	TotalRemaining int    `json:"totalRemaining"`
}

// ReportRequest selects the report period
type ReportRequest struct {
	Type  string
	Year  int
	Month int
}

// Report is a period summary plus the current stock warnings
type Report struct {
	Type            string                      `json:"type"`
	Start           time.Time                   `json:"start"`
	End             time.Time                   `json:"end"`
	Data            []ReportRow                 `json:"data"`
	LowStockItems   []*repository.InventoryItem `json:"lowStockItems"`
	ExpiringBatches []*repository.Batch         `json:"expiringBatches"`
}

type groupKey struct {
	itemID  int64
	batchID int64
}

// Aggregate folds transactions into per (item, batch) totals. ADD rows add
// to the batch quantity, REMOVE rows count |change| as disbursed, other
// types are ignored. Rows are folded in date order and groups are returned
// in order of first appearance.
func Aggregate(txs []*repository.Transaction) []ReportRow {
	ordered := make([]*repository.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	index := make(map[groupKey]int)
	rows := []ReportRow{}

	for _, tx := range ordered {
		key := groupKey{itemID: tx.ItemID}
		if tx.BatchID != nil {
			key.batchID = *tx.BatchID
		}

		i, ok := index[key]
		if !ok {
			batchName := noBatchName
			if tx.BatchNumber != nil && *tx.BatchNumber != "" {
				batchName = *tx.BatchNumber
			}
			rows = append(rows, ReportRow{ItemName: tx.ItemName, BatchName: batchName})
			i = len(rows) - 1
			index[key] = i
		}

		row := &rows[i]
		switch tx.Type {
		case repository.TransactionAdd:
			row.BatchQuantity += tx.QuantityChange
		case repository.TransactionRemove:
			row.TotalDisbursed += abs(tx.QuantityChange)
		}
		row.TotalRemaining = row.BatchQuantity - row.TotalDisbursed
	}

	return rows
}

// MonthlyRange returns the first and last instant of a calendar month
func MonthlyRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// YearlyRange returns the first and last instant of a calendar year
func YearlyRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// Range validates the request and returns its period
func (r ReportRequest) Range() (time.Time, time.Time, error) {
	switch strings.ToLower(r.Type) {
	case ReportMonthly:
		if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
			return time.Time{}, time.Time{}, errors.Invalid("Year and month are required for monthly reports.")
		}
		start, end := MonthlyRange(r.Year, r.Month)
		return start, end, nil
	case ReportYearly:
		if r.Year <= 0 {
			return time.Time{}, time.Time{}, errors.Invalid("Year is required for yearly reports.")
		}
		start, end := YearlyRange(r.Year)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, errors.Invalid("Invalid report type.")
	}
}

// Report builds the period summary along with current low stock items and
// batches expiring in the next 30 days.
func (s *InventoryService) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	start, end, err := req.Range()
	if err != nil {
		return nil, err
	}

	txs, err := s.repos.Transactions.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.LowStockItems(ctx)
	if err != nil {
		return nil, err
	}

	expiring, err := s.ExpiringBatches(ctx, DefaultExpiryWindowDays)
	if err != nil {
		return nil, err
	}

	return &Report{
		Type:            strings.ToLower(req.Type),
		Start:           start,
		End:             end,
		Data:            Aggregate(txs),
		LowStockItems:   lowStock,
		ExpiringBatches: expiring,
	}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
