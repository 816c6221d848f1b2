package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/mapper"
	"retail-sync/inventory-sync/internal/metrics"
	"retail-sync/inventory-sync/internal/model"
	"retail-sync/inventory-sync/internal/sink"
	"retail-sync/inventory-sync/internal/source"
	"retail-sync/inventory-sync/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	var (
		cfgPath = flag.String("config", "", "path to optional YAML config")
		limit   = flag.Int("limit", 0, "cap on fetched rows (overrides config)")
		dryRun  = flag.Bool("dry-run", false, "fetch, map and dedup but write nothing")
	)
	flag.Parse()

	log.Printf("inventory-sync %s starting...", Version)

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *limit > 0 {
		cfg.Filters.Limit = *limit
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := source.New(cfg)
	if err != nil {
		log.Fatalf("build source: %v", err)
	}
	if c, ok := src.(interface{ Close() }); ok {
		defer c.Close()
	}
	log.Printf("configured source: %s", src.Name())

	dst := sink.New(cfg.Destination)

	start := time.Now()
	if err := run(ctx, cfg, src, dst, *dryRun); err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	if snap := metrics.Dump(); snap != "" {
		log.Printf("metrics:\n%s", snap)
	}
	log.Printf("sync finished in %s", time.Since(start).Truncate(time.Millisecond))
}

// run executes the fixed table sequence: inventory, then product master, then
// price list. The first hard failure aborts the rest; tables already written
// stay committed (the destination upsert is merge, not a transaction).
func run(ctx context.Context, cfg config.Config, src source.Source, dst *sink.Client, dryRun bool) error {
	now := time.Now().UTC()
	fallbackMes, err := source.MonthLabel(now, cfg.Database.Timezone)
	if err != nil {
		return err
	}

	invRows, err := src.InventoryRows(ctx)
	if err != nil {
		return fmt.Errorf("fetch inventory rows: %w", err)
	}
	inventory := make([]model.InventoryRecord, 0, len(invRows))
	skipped := 0
	for _, row := range invRows {
		rec, ok := mapper.Inventory(row, fallbackMes, now)
		if !ok {
			skipped++
			continue
		}
		inventory = append(inventory, rec)
	}
	log.Printf("inventory: %d rows -> %d records (%d without reference)", len(invRows), len(inventory), skipped)
	if err := upsert(ctx, dst, model.TableInventory, model.InventoryConflictKey, sink.Records(inventory), dryRun); err != nil {
		return err
	}

	catRows, err := src.CatalogRows(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalog rows: %w", err)
	}

	products := make([]model.ProductRecord, 0, len(catRows))
	for _, row := range catRows {
		if rec, ok := mapper.Product(row, now); ok {
			products = append(products, rec)
		}
	}
	products = store.MergeLast(products, func(p model.ProductRecord) string { return p.Referencia })
	log.Printf("products: %d rows -> %d records after merge", len(catRows), len(products))
	if err := upsert(ctx, dst, model.TableProducts, model.ProductConflictKey, sink.Records(products), dryRun); err != nil {
		return err
	}

	prices := make([]model.PriceRecord, 0, len(catRows))
	for _, row := range catRows {
		if rec, ok := mapper.Price(row, now); ok {
			prices = append(prices, rec)
		}
	}
	prices = store.MergeLast(prices, func(p model.PriceRecord) string {
		return p.Referencia + "\x00" + p.CodigoListaPrecio
	})
	log.Printf("prices: %d rows -> %d records after merge", len(catRows), len(prices))
	return upsert(ctx, dst, model.TablePrices, model.PriceConflictKey, sink.Records(prices), dryRun)
}

func upsert(ctx context.Context, dst *sink.Client, table string, key []string, records []any, dryRun bool) error {
	if dryRun {
		log.Printf("dry-run: would upsert %d records into %s", len(records), table)
		return nil
	}
	return dst.Upsert(ctx, table, key, records)
}
