package xlsx

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
)

// Column header aliases. Spreadsheets arrive with English or the legacy
// Chinese headers, both map onto the same canonical field names.
var columnAliases = map[string]string{
	"code":     "code",
	"商品编码":     "code",
	"name":     "name",
	"商品名称":     "name",
	"supplier": "supplier",
	"供应商":      "supplier",
	"供货商":      "supplier",
	"cost":     "cost",
	"成本":       "cost",
	"price":    "price",
	"单价":       "price",
	"价格":       "price",
	"size":     "size",
	"尺码":       "size",
	"remark":   "remark",
	"备注":       "remark",
	"customer": "customer",
	"客户":       "customer",
	"quantity": "quantity",
	"数量":       "quantity",
}

var productRequired = []string{"code", "name", "supplier", "cost", "price", "size"}
var orderRequired = append([]string{"customer", "quantity"}, productRequired...)

type productRow struct {
	Code     string `mapstructure:"code"`
	Name     string `mapstructure:"name"`
	Supplier string `mapstructure:"supplier"`
	Cost     string `mapstructure:"cost"`
	Price    string `mapstructure:"price"`
	Size     string `mapstructure:"size"`
	Remark   string `mapstructure:"remark"`
}

type orderRow struct {
	productRow `mapstructure:",squash"`
	Customer   string `mapstructure:"customer"`
	Quantity   string `mapstructure:"quantity"`
}

// readRows loads the first sheet and returns canonical-keyed row maps. The
// header row is validated against required before any row is produced, so a
// rejected import never yields partial data.
func readRows(path string, required []string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domain.ValidationErrorf("cannot read spreadsheet %s: %v", path, err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, domain.ValidationErrorf("spreadsheet %s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.ValidationErrorf("cannot read sheet %s of %s: %v", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, domain.ValidationErrorf("spreadsheet %s is empty", path)
	}

	header := map[int]string{}
	present := map[string]bool{}
	for i, cell := range rows[0] {
		key := columnAliases[strings.ToLower(strings.TrimSpace(cell))]
		if key != "" {
			header[i] = key
			present[key] = true
		}
	}
	for _, col := range required {
		if !present[col] {
			return nil, domain.ValidationErrorf("spreadsheet %s is missing the %q column", path, col)
		}
	}

	var out []map[string]string
	for _, cells := range rows[1:] {
		row := map[string]string{}
		empty := true
		for i, cell := range cells {
			key, ok := header[i]
			if !ok {
				continue
			}
			value := strings.TrimSpace(cell)
			row[key] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}

func decodeRow(row map[string]string, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err != nil {
		return err
	}
	return dec.Decode(row)
}

// ReadProducts parses a product import spreadsheet. A missing required
// column rejects the whole file before any row is returned.
func ReadProducts(path string) ([]domain.Product, error) {
	rows, err := readRows(path, productRequired)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var products []domain.Product
	for _, raw := range rows {
		var row productRow
		if err := decodeRow(raw, &row); err != nil {
			return nil, domain.ValidationErrorf("bad product row %v: %v", raw, err)
		}
		if row.Code == "" {
			zap.L().Warn("skipping product row without code", zap.Any("row", raw))
			continue
		}
		products = append(products, domain.Product{
			Code:      row.Code,
			Name:      row.Name,
			Supplier:  row.Supplier,
			Cost:      cleanMoney(row.Cost),
			Price:     cleanMoney(row.Price),
			Size:      row.Size,
			Remark:    row.Remark,
			Timestamp: now,
		})
	}
	if len(products) == 0 {
		return nil, domain.ValidationErrorf("no importable product rows in %s", path)
	}
	return products, nil
}

// ReadOrders parses an order import spreadsheet. Quantities and prices are
// coerced leniently the way hand-edited sheets need: unit suffixes and
// currency marks are stripped, unparseable quantities default to one.
func ReadOrders(path string) ([]domain.Order, error) {
	rows, err := readRows(path, orderRequired)
	if err != nil {
		return nil, err
	}

	importTime := time.Now()
	var orders []domain.Order
	for _, raw := range rows {
		var row orderRow
		if err := decodeRow(raw, &row); err != nil {
			return nil, domain.ValidationErrorf("bad order row %v: %v", raw, err)
		}
		if row.Code == "" && row.Customer == "" {
			zap.L().Warn("skipping order row without code and customer", zap.Any("row", raw))
			continue
		}
		orders = append(orders, domain.Order{
			Customer:    row.Customer,
			Code:        row.Code,
			Name:        row.Name,
			Supplier:    row.Supplier,
			Cost:        cleanMoney(row.Cost),
			Price:       cleanMoney(row.Price),
			Size:        row.Size,
			Quantity:    cleanQuantity(row.Quantity),
			Remark:      row.Remark,
			Timestamp:   importTime,
			IsNewImport: true,
		})
	}
	if len(orders) == 0 {
		return nil, domain.ValidationErrorf("no importable order rows in %s", path)
	}
	return orders, nil
}

// cleanQuantity strips unit suffixes and falls back to one piece.
func cleanQuantity(s string) string {
	s = strings.NewReplacer("件", "", "个", "", " ", "").Replace(s)
	if n, err := cast.ToIntE(s); err != nil || n <= 0 {
		return "1"
	}
	return s
}

// cleanMoney strips currency marks and falls back to zero.
func cleanMoney(s string) string {
	s = strings.NewReplacer("¥", "", "￥", "", " ", "").Replace(s)
	if _, err := cast.ToFloat64E(s); err != nil || s == "" {
		return "0"
	}
	return s
}
