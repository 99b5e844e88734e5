package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/warepix/warepix/config"
	"github.com/warepix/warepix/internal/app"
	"github.com/warepix/warepix/internal/report"
	"github.com/warepix/warepix/internal/xlsx"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile  = flag.String("c", "warepix.yml", "config file")
	dayFlag     = flag.String("d", "", "day to operate on, defaults to today")
	showVersion = flag.Bool("v", false, "print version")
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: warepix [flags] <command> [args]

commands:
  serve                   run the scheduler until interrupted
  import-products <file>  import a product spreadsheet
  import-orders <file>    import an order spreadsheet
  export                  write the daily order and statistics workbooks
  sheet                   write the printable supplier order sheet
  labels                  write the printable shipping labels
  stats                   print the daily supplier statistics
  wipe                    delete all products and images, keeping orders

flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("warepix %s (%s)\n", Version, BuildTime)
		return
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig(*configFile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}
	defer application.Release()

	day := time.Now()
	if *dayFlag != "" {
		parsed, err := dateparse.ParseLocal(*dayFlag)
		if err != nil {
			fatal("cannot parse day %q: %v", *dayFlag, err)
		}
		day = parsed
	}

	ctx := context.Background()
	switch cmd := flag.Arg(0); cmd {
	case "serve":
		serve()
	case "import-products":
		importProducts(ctx, application, flag.Arg(1))
	case "import-orders":
		importOrders(ctx, application, flag.Arg(1))
	case "export":
		if err := application.ExportDaily(ctx, day); err != nil {
			fatal("export failed: %v", err)
		}
	case "sheet":
		writeSheet(ctx, application, day)
	case "labels":
		writeLabels(ctx, application, day)
	case "stats":
		printStats(ctx, application, day)
	case "wipe":
		if err := application.Catalog().WipeProducts(ctx); err != nil {
			fatal("wipe failed: %v", err)
		}
		fmt.Println("products and images deleted, orders kept")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func serve() {
	zap.L().Info("warepix running", zap.String("version", Version))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	zap.L().Info("shutting down")
}

func importProducts(ctx context.Context, application *app.Application, file string) {
	if file == "" {
		fatal("import-products needs a spreadsheet path")
	}
	products, err := xlsx.ReadProducts(file)
	if err != nil {
		fatal("import rejected: %v", err)
	}
	result := application.Catalog().ImportProducts(ctx, products)
	fmt.Println("import:", result.Summary())
}

func importOrders(ctx context.Context, application *app.Application, file string) {
	if file == "" {
		fatal("import-orders needs a spreadsheet path")
	}
	orders, err := xlsx.ReadOrders(file)
	if err != nil {
		fatal("import rejected: %v", err)
	}
	ok, failed := 0, 0
	for i := range orders {
		if err := application.Catalog().SaveOrder(ctx, &orders[i]); err != nil {
			zap.L().Warn("order row rejected", zap.String("customer", orders[i].Customer), zap.Error(err))
			failed++
			continue
		}
		ok++
	}
	fmt.Printf("import: %d saved, %d rejected\n", ok, failed)
}

func writeSheet(ctx context.Context, application *app.Application, day time.Time) {
	sheets, total, err := application.Reports().SupplierOrderSheet(ctx, day)
	if err != nil {
		fatal("sheet failed: %v", err)
	}
	settings, err := application.Records().LoadSettings()
	if err != nil {
		fatal("sheet failed: %v", err)
	}
	date := day.Format("2006-01-02")
	html, err := report.SheetHTML(sheets, total, date, settings.TextSize)
	if err != nil {
		fatal("sheet failed: %v", err)
	}
	path := exportPath(application, fmt.Sprintf("sheet_%s.html", date))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		fatal("sheet failed: %v", err)
	}
	fmt.Println("sheet written:", path)
}

func writeLabels(ctx context.Context, application *app.Application, day time.Time) {
	labels, err := application.Reports().Labels(ctx, day)
	if err != nil {
		fatal("labels failed: %v", err)
	}
	settings, err := application.Records().LoadSettings()
	if err != nil {
		fatal("labels failed: %v", err)
	}
	date := day.Format("2006-01-02")
	html, err := report.LabelsHTML(labels, date, settings.TextSize)
	if err != nil {
		fatal("labels failed: %v", err)
	}
	path := exportPath(application, fmt.Sprintf("labels_%s.html", date))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		fatal("labels failed: %v", err)
	}
	fmt.Println("labels written:", path)
}

func printStats(ctx context.Context, application *app.Application, day time.Time) {
	stats, err := application.Reports().SupplierStats(ctx, day)
	if err != nil {
		fatal("stats failed: %v", err)
	}
	for _, s := range stats {
		fmt.Printf("%-20s orders=%d qty=%d amount=%.2f cost=%.2f profit=%.2f rate=%.1f%%\n",
			s.Supplier, s.OrderCount, s.TotalQuantity, s.TotalAmount, s.TotalCost, s.GrossProfit(), s.ProfitRate())
	}
}

func exportPath(application *app.Application, name string) string {
	cfg := application.Config()
	return filepath.Join(cfg.AbsPath(cfg.Export.Dir), name)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
