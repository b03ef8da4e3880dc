package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/medstock/medstock-backend/internal/inventory/repository"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/errors"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// Import columns, matched case-insensitively against the header row
const (
	colName          = "name"
	colCategory      = "category"
	colDescription   = "description"
	colMinStockLevel = "min_stock_level"
	colUnitPrice     = "unit_price"
	colReorderLevel  = "reorder_level"
	colQuantity      = "quantity"
	colExpiryDate    = "expiry_date"
	colSupplier      = "supplier"
)

var requiredImportColumns = []string{colName, colCategory, colMinStockLevel, colUnitPrice, colReorderLevel}

var importDateLayouts = []string{"2006-01-02", "01/02/2006", "02.01.2006"}

// ImportSuccess is a processed row
type ImportSuccess struct {
	Row         int    `json:"row"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	BatchNumber string `json:"batchNumber,omitempty"`
}

// ImportError is a rejected row
type ImportError struct {
	Row   int    `json:"row"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportResult lists the outcome of every data row
type ImportResult struct {
	Success []ImportSuccess `json:"success"`
	Errors  []ImportError   `json:"errors"`
}

// Importer loads items and batches from a spreadsheet. Each row commits in
// its own transaction; a bad row is reported and the rest carry on.
type Importer struct {
	svc    *InventoryService
	logger *logger.Logger
}

// NewImporter creates a new spreadsheet importer
func NewImporter(svc *InventoryService, log *logger.Logger) *Importer {
	return &Importer{svc: svc, logger: log.WithComponent("importer")}
}

type importRow map[string]string

func (r importRow) get(col string) string {
	return strings.TrimSpace(r[col])
}

// Import reads the first sheet of the workbook. Only an unreadable workbook
// fails the whole import.
func (im *Importer) Import(ctx context.Context, r io.Reader, fileName string) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Dependency("Unable to read the uploaded spreadsheet.", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Dependency("Unable to read the uploaded spreadsheet.", err)
	}

	result := &ImportResult{Success: []ImportSuccess{}, Errors: []ImportError{}}
	if len(rows) < 2 {
		return result, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for i, cells := range rows[1:] {
		rowNum := i + 2
		row := importRow{}
		blank := true
		for j, v := range cells {
			if j < len(header) && header[j] != "" {
				row[header[j]] = v
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		name := row.get(colName)
		batchNumber, err := im.processRow(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Name: name, Error: importErrorMessage(err)})
			im.logger.Debug().Err(err).Int("row", rowNum).Msg("import row rejected")
			continue
		}
		result.Success = append(result.Success, ImportSuccess{
			Row:         rowNum,
			Name:        name,
			Message:     "Processed successfully",
			BatchNumber: batchNumber,
		})
	}

	im.logger.Info().
		Str("file", fileName).
		Int("succeeded", len(result.Success)).
		Int("failed", len(result.Errors)).
		Msg("spreadsheet import finished")

	im.svc.publisher.PublishImportCompleted(ctx, fileName, len(result.Success), len(result.Errors))
	if len(result.Success) > 0 {
		im.svc.requestScan(ctx, "import.completed", 0)
	}
	return result, nil
}

type parsedRow struct {
	name          string
	category      string
	description   string
	minStockLevel int
	unitPrice     decimal.Decimal
	reorderLevel  int
	quantity      *int
	expiryDate    *time.Time
	supplier      string
}

func parseImportRow(row importRow) (*parsedRow, error) {
	var missing []string
	for _, col := range requiredImportColumns {
		if row.get(col) == "" {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	p := &parsedRow{
		name:        row.get(colName),
		category:    row.get(colCategory),
		description: row.get(colDescription),
		supplier:    row.get(colSupplier),
	}

	var err error
	if p.minStockLevel, err = parseWholeNumber(colMinStockLevel, row.get(colMinStockLevel)); err != nil {
		return nil, err
	}
	if p.reorderLevel, err = parseWholeNumber(colReorderLevel, row.get(colReorderLevel)); err != nil {
		return nil, err
	}
	if p.unitPrice, err = decimal.NewFromString(row.get(colUnitPrice)); err != nil {
		return nil, fmt.Errorf("unit_price: %q is not a number", row.get(colUnitPrice))
	}

	if raw := row.get(colQuantity); raw != "" {
		q, err := parseWholeNumber(colQuantity, raw)
		if err != nil {
			return nil, err
		}
		p.quantity = &q
	}

	if raw := row.get(colExpiryDate); raw != "" {
		d, err := ParseImportDate(raw)
		if err != nil {
			return nil, err
		}
		p.expiryDate = &d
	}

	return p, nil
}

func (im *Importer) processRow(ctx context.Context, row importRow) (string, error) {
	p, err := parseImportRow(row)
	if err != nil {
		return "", err
	}

	repos := im.svc.repos
	var batchNumber string
	err = im.svc.db.WithTx(ctx, func(ctx context.Context) error {
		category, err := repos.Categories.FindByName(ctx, p.category)
		if err != nil {
			return err
		}
		if category == nil {
			category = &repository.Category{Name: p.category}
			if err := repos.Categories.Create(ctx, category); err != nil {
				return err
			}
		}

		item, err := repos.Items.FindByName(ctx, p.name)
		if err != nil {
			return err
		}

		isNew := item == nil
		if isNew {
			item = &repository.InventoryItem{
				Name:          p.name,
				CategoryID:    category.ID,
				Description:   p.description,
				MinStockLevel: p.minStockLevel,
				UnitPrice:     p.unitPrice,
				ReorderLevel:  p.reorderLevel,
			}
			if err := repos.Items.Create(ctx, item); err != nil {
				return err
			}
		} else {
			if item, err = repos.Items.GetForUpdate(ctx, item.ID); err != nil {
				return err
			}
			if p.description != "" {
				item.Description = p.description
			}
			item.CategoryID = category.ID
			item.MinStockLevel = p.minStockLevel
			item.UnitPrice = p.unitPrice
			item.ReorderLevel = p.reorderLevel
			item.IsActive = true
			if err := repos.Items.Update(ctx, item); err != nil {
				return err
			}
		}

		if p.quantity != nil {
			batch, _, err := im.svc.addBatch(ctx, AddBatchInput{
				ItemID:     item.ID,
				Quantity:   *p.quantity,
				ExpiryDate: p.expiryDate,
				Supplier:   p.supplier,
			}, func(number string) string { return "Batch added from Excel import: " + number })
			if err != nil {
				return err
			}
			batchNumber = batch.BatchNumber
		}

		txType, remarks := repository.TransactionUpdate, "Item updated from Excel import"
		if isNew {
			txType, remarks = repository.TransactionAdd, "New item added from Excel import"
		}
		return im.svc.appendTransaction(ctx, item.ID, nil, txType, 0, remarks, nil)
	})
	if err != nil {
		return "", err
	}
	return batchNumber, nil
}

// ParseImportDate accepts YYYY-MM-DD, MM/DD/YYYY, DD.MM.YYYY or an Excel serial date
func ParseImportDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expiry_date: %q is not a recognised date", raw)
}

func parseWholeNumber(col, raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: %q is not a whole number", col, raw)
	}
	return int(f), nil
}

func importErrorMessage(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		if len(appErr.Details) > 0 {
			parts := make([]string, 0, len(appErr.Details))
			for field, msg := range appErr.Details {
				parts = append(parts, field+" "+msg)
			}
			sort.Strings(parts)
			return appErr.Message + ": " + strings.Join(parts, "; ")
		}
		return appErr.Message
	}
	if mapped := database.MapPQError(err); mapped != nil {
		return mapped.Message
	}
	return err.Error()
}
