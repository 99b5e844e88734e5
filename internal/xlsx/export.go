package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
	"github.com/warepix/warepix/internal/report"
)

// Exporter writes order and product workbooks into its directory.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

var orderHeader = []string{"Date", "Customer", "Code", "Name", "Supplier", "Size", "Quantity", "Price", "Amount", "Cost", "Remark"}

// Orders writes the orders of one day into orders_<date>.xlsx and returns
// the file path.
func (e *Exporter) Orders(orders []domain.Order, date string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Orders"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, orderHeader)
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "E", 14)
	f.SetColWidth(sheet, "K", "K", 24)

	for i, o := range orders {
		row := i + 2
		setRow(f, sheet, row,
			o.Timestamp.Format("2006-01-02 15:04:05"),
			o.Customer, o.Code, o.Name, o.Supplier, o.Size,
			o.QuantityInt(), o.Price, o.Amount(), o.Cost, o.Remark)
	}
	return e.save(f, fmt.Sprintf("orders_%s.xlsx", date))
}

// SupplierStats writes the daily supplier statistics workbook: a summary
// sheet with totals and profit per supplier, then one detail sheet per
// supplier listing its orders.
func (e *Exporter) SupplierStats(stats []report.SupplierStat, date string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()
	summary := "Summary"
	f.SetSheetName("Sheet1", summary)
	writeHeader(f, summary, []string{"Supplier", "Orders", "Quantity", "Amount", "Cost", "Gross Profit", "Profit Rate %"})
	f.SetColWidth(summary, "A", "G", 14)

	for i, s := range stats {
		setRow(f, summary, i+2,
			s.Supplier, s.OrderCount, s.TotalQuantity, s.TotalAmount,
			s.TotalCost, s.GrossProfit(), s.ProfitRate())

		detail := sheetName(s.Supplier)
		f.NewSheet(detail)
		writeHeader(f, detail, []string{"Time", "Code", "Name", "Customer", "Quantity", "Price", "Amount", "Cost", "Remark"})
		f.SetColWidth(detail, "A", "A", 20)
		f.SetColWidth(detail, "B", "D", 14)
		f.SetColWidth(detail, "I", "I", 24)
		for j, line := range s.Orders {
			setRow(f, detail, j+2,
				line.Timestamp.Format("15:04:05"),
				line.Code, line.Name, line.Customer, line.Quantity,
				line.Price, line.Amount, line.Cost, line.Remark)
		}
	}
	return e.save(f, fmt.Sprintf("supplier_stats_%s.xlsx", date))
}

// Products writes the full product catalog into one workbook.
func (e *Exporter) Products(products []domain.Product) (string, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Products"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, []string{"Code", "Name", "Supplier", "Cost", "Price", "Size", "Remark", "Updated"})
	f.SetColWidth(sheet, "A", "C", 14)
	f.SetColWidth(sheet, "G", "H", 22)

	for i, p := range products {
		setRow(f, sheet, i+2,
			p.Code, p.Name, p.Supplier, p.Cost, p.Price, p.Size, p.Remark,
			p.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return e.save(f, "products.xlsx")
}

type orderCSVRow struct {
	Date     string `csv:"date"`
	Customer string `csv:"customer"`
	Code     string `csv:"code"`
	Name     string `csv:"name"`
	Supplier string `csv:"supplier"`
	Size     string `csv:"size"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Cost     string `csv:"cost"`
	Remark   string `csv:"remark"`
}

// OrdersCSV writes the orders of one day as orders_<date>.csv.
func (e *Exporter) OrdersCSV(orders []domain.Order, date string) (string, error) {
	rows := make([]orderCSVRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, orderCSVRow{
			Date:     o.Timestamp.Format("2006-01-02 15:04:05"),
			Customer: o.Customer,
			Code:     o.Code,
			Name:     o.Name,
			Supplier: o.Supplier,
			Size:     o.Size,
			Quantity: o.Quantity,
			Price:    o.Price,
			Cost:     o.Cost,
			Remark:   o.Remark,
		})
	}

	path := filepath.Join(e.dir, fmt.Sprintf("orders_%s.csv", date))
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create csv export")
	}
	defer file.Close()
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", errors.Wrap(err, "write csv export")
	}
	zap.L().Info("csv export written", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

func (e *Exporter) save(f *excelize.File, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", errors.Wrap(err, "create export dir")
	}
	path := filepath.Join(e.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrap(err, "save workbook")
	}
	zap.L().Info("workbook written", zap.String("path", path))
	return path, nil
}

var columnNames = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}

func writeHeader(f *excelize.File, sheet string, cells []string) {
	for i, cell := range cells {
		f.SetCellValue(sheet, columnNames[i]+"1", cell)
	}
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", columnNames[i], row), v)
	}
}

// sheetName makes a supplier name safe as a worksheet name: Excel caps the
// length at 31 and forbids a handful of characters.
func sheetName(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")", ":", "-").Replace(s)
	runes := []rune(s)
	if len(runes) > 31 {
		s = string(runes[:31])
	}
	if s == "" {
		s = "detail"
	}
	return s
}
