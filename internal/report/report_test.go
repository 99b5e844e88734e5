package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/warepix/warepix/internal/domain"
	"github.com/warepix/warepix/internal/store"
)

func newTestBuilder(t *testing.T) (*Builder, *store.BlobStore, *store.RecordStore) {
	t.Helper()
	conn := store.NewConn(filepath.Join(t.TempDir(), "images.db"))
	if err := conn.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	blobs := store.NewBlobStore(conn)
	records, err := store.NewRecordStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewBuilder(blobs, records), blobs, records
}

func TestBuildGridDefaultsMissingProduct(t *testing.T) {
	builder, blobs, _ := newTestBuilder(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "X", "", "img"); err != nil {
		t.Fatal(err)
	}

	groups, err := builder.BuildGrid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Supplier != domain.UnclassifiedSupplier {
		t.Fatalf("expected unclassified group, got %q", groups[0].Supplier)
	}
	if len(groups[0].Items) != 1 {
		t.Fatalf("expected one item, got %d", len(groups[0].Items))
	}
	item := groups[0].Items[0]
	if item.Name != "" || item.Cost != "" || item.Price != "" || item.Size != "" {
		t.Fatalf("missing product must default to empty fields: %+v", item)
	}
	if item.Code != "X" || item.Image != "img" {
		t.Fatalf("image fields lost in join: %+v", item)
	}
}

func TestBuildGridMergesProductFields(t *testing.T) {
	builder, blobs, records := newTestBuilder(t)
	ctx := context.Background()

	if err := records.UpsertProduct(&domain.Product{
		Code: "A1", Supplier: "S1", Name: "shirt", Price: "10", Cost: "4", Size: "M",
	}); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "A1", "S1", "img-a"); err != nil {
		t.Fatal(err)
	}
	// second supplier group
	if err := records.UpsertProduct(&domain.Product{Code: "B2", Supplier: "S2"}); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "B2", "S2", "img-b"); err != nil {
		t.Fatal(err)
	}

	groups, err := builder.BuildGrid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected two supplier groups, got %d", len(groups))
	}
	byName := map[string]SupplierGroup{}
	for _, g := range groups {
		byName[g.Supplier] = g
	}
	item := byName["S1"].Items[0]
	if item.Name != "shirt" || item.Price != "10" || item.Image != "img-a" {
		t.Fatalf("product fields not merged: %+v", item)
	}
}

func seedOrder(t *testing.T, records *store.RecordStore, o domain.Order) domain.Order {
	t.Helper()
	if err := records.UpsertOrder(&o); err != nil {
		t.Fatal(err)
	}
	return o
}

func TestSupplierStats(t *testing.T) {
	builder, _, records := newTestBuilder(t)
	ctx := context.Background()

	seedOrder(t, records, domain.Order{Customer: "Acme", Code: "A1", Supplier: "S1", Size: "M", Quantity: "2", Price: "10", Cost: "4"})
	seedOrder(t, records, domain.Order{Customer: "Acme", Code: "A2", Supplier: "S1", Size: "L", Quantity: "1", Price: "20", Cost: "8"})
	seedOrder(t, records, domain.Order{Customer: "Bob", Code: "Z9", Supplier: "", Size: "S", Quantity: "3", Price: "5", Cost: "2"})

	stats, err := builder.SupplierStats(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 supplier stats, got %d", len(stats))
	}

	s1 := stats[0]
	if s1.Supplier != "S1" {
		t.Fatalf("named supplier must sort before unknown: %+v", stats)
	}
	if s1.TotalQuantity != 3 || s1.OrderCount != 2 {
		t.Fatalf("S1 totals wrong: %+v", s1)
	}
	if s1.TotalAmount != 40 || s1.TotalCost != 16 {
		t.Fatalf("S1 amounts wrong: %+v", s1)
	}
	if s1.GrossProfit() != 24 || s1.ProfitRate() != 60 {
		t.Fatalf("derived figures wrong: profit=%v rate=%v", s1.GrossProfit(), s1.ProfitRate())
	}

	if stats[1].Supplier != UnknownSupplier || stats[1].TotalQuantity != 3 {
		t.Fatalf("unknown supplier bucket wrong: %+v", stats[1])
	}
}

func TestSupplierStatsEmptyDay(t *testing.T) {
	builder, _, records := newTestBuilder(t)

	seedOrder(t, records, domain.Order{Customer: "Acme", Supplier: "S1", Size: "M", Quantity: "1"})

	stats, err := builder.SupplierStats(context.Background(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 0 {
		t.Fatalf("a day without orders must yield no stats: %+v", stats)
	}
}

func TestSupplierOrderSheet(t *testing.T) {
	builder, blobs, records := newTestBuilder(t)
	ctx := context.Background()

	if err := blobs.Put(ctx, "A1", "S1", "img-a1"); err != nil {
		t.Fatal(err)
	}
	seedOrder(t, records, domain.Order{Customer: "c1", Code: "A1", Supplier: "S1", Size: "38", Quantity: "2"})
	seedOrder(t, records, domain.Order{Customer: "c2", Code: "A1", Supplier: "S1", Size: "40", Quantity: "1"})
	seedOrder(t, records, domain.Order{Customer: "c3", Code: "A1", Supplier: "S1", Size: "38", Quantity: "3"})
	// supplier-less orders are skipped on the sheet
	seedOrder(t, records, domain.Order{Customer: "c4", Code: "Z9", Supplier: "", Size: "M", Quantity: "9"})

	sheets, grandTotal, err := builder.SupplierOrderSheet(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 1 {
		t.Fatalf("expected one supplier sheet, got %d", len(sheets))
	}
	sheet := sheets[0]
	if sheet.Supplier != "S1" || sheet.Total != 6 {
		t.Fatalf("sheet totals wrong: %+v", sheet)
	}
	if grandTotal != 6 {
		t.Fatalf("grand total must skip supplier-less orders: %d", grandTotal)
	}
	if len(sheet.Products) != 1 {
		t.Fatalf("same code must aggregate into one row: %+v", sheet.Products)
	}
	row := sheet.Products[0]
	if row.Total != 6 || row.Image != "img-a1" {
		t.Fatalf("product row wrong: %+v", row)
	}
	if len(row.Sizes) != 2 || row.Sizes[0].Size != "38" || row.Sizes[0].Qty != 5 || row.Sizes[1].Size != "40" || row.Sizes[1].Qty != 1 {
		t.Fatalf("size aggregation wrong: %+v", row.Sizes)
	}
}

func TestLabelsExpandQuantityAndHidePrice(t *testing.T) {
	builder, _, records := newTestBuilder(t)
	ctx := context.Background()

	settings, _ := records.LoadSettings()
	settings.HidePriceCustomers = []string{"Secret"}
	if err := records.StoreSettings(settings); err != nil {
		t.Fatal(err)
	}

	seedOrder(t, records, domain.Order{Customer: "Acme", Code: "A1", Size: "M", Quantity: "3", Price: "10"})
	seedOrder(t, records, domain.Order{Customer: "Secret", Code: "B2", Size: "L", Quantity: "1", Price: "99"})

	labels, err := builder.Labels(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 4 {
		t.Fatalf("quantity expansion wrong: %d labels", len(labels))
	}
	for _, l := range labels {
		switch l.Customer {
		case "Acme":
			if !l.ShowPrice {
				t.Fatal("Acme labels must show the price")
			}
		case "Secret":
			if l.ShowPrice {
				t.Fatal("exempted customer still shows the price")
			}
		}
	}
}

func TestSheetHTMLKeepsDataURLs(t *testing.T) {
	sheets := []SupplierSheet{{
		Supplier: "S1",
		Total:    3,
		Products: []SheetProduct{{
			Code:  "A1",
			Name:  "shirt",
			Sizes: []SizeQty{{Size: "38", Qty: 2}, {Size: "40", Qty: 1}},
			Total: 3,
			Image: "data:image/jpeg;base64,AAAA",
		}},
	}}

	html, err := SheetHTML(sheets, 3, "2026-08-31", 14)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "38*2、40*1") {
		t.Fatalf("size list missing: %s", html)
	}
	if strings.Contains(html, "ZgotmplZ") {
		t.Fatal("image data URL was sanitized away")
	}
	if !strings.Contains(html, "data:image/jpeg;base64,AAAA") {
		t.Fatal("image data URL missing from markup")
	}
}

func TestLabelsHTML(t *testing.T) {
	html, err := LabelsHTML([]Label{
		{Customer: "Acme", Code: "A1", Size: "M", Price: "10", ShowPrice: true},
		{Customer: "Secret", Code: "B2", Size: "L", Price: "99", ShowPrice: false},
	}, "2026-08-31", 14)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "price: 10") {
		t.Fatal("visible price missing")
	}
	if strings.Contains(html, "price: 99") {
		t.Fatal("hidden price leaked into markup")
	}
}
