package source

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/metrics"
	"retail-sync/inventory-sync/internal/model"
)

// Database reads the two source views directly when no ERP endpoint is in
// front of them. Connection setup is lazy so a dry-run against the ERP path
// never touches the database.
type Database struct {
	cfg     config.DatabaseConfig
	filters config.FilterConfig
	pool    *pgxpool.Pool
	now     func() time.Time
}

func NewDatabase(cfg config.DatabaseConfig, filters config.FilterConfig) *Database {
	return &Database{cfg: cfg, filters: filters, now: time.Now}
}

func (d *Database) Name() string { return "db" }

func (d *Database) connect(ctx context.Context) error {
	if d.pool != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, d.cfg.DSN)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	d.pool = pool
	return nil
}

func (d *Database) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// InventoryRows selects the current month's stock with strictly positive
// quantity, optionally restricted to the warehouse allow-list.
func (d *Database) InventoryRows(ctx context.Context) ([]model.SourceRow, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	label, err := MonthLabel(d.now(), d.cfg.Timezone)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT * FROM %q WHERE upper(mes) = upper($1) AND cantidad_fisica > 0`, d.cfg.InventoryView)
	args := []any{label}
	if len(d.filters.Warehouses) > 0 {
		args = append(args, d.filters.Warehouses)
		q += fmt.Sprintf(" AND codigo_bodega = ANY($%d)", len(args))
	}
	if d.filters.Limit > 0 {
		args = append(args, d.filters.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	log.Printf("db: querying %s for %q", d.cfg.InventoryView, label)
	return d.query(ctx, q, args)
}

// CatalogRows selects the product/price view whole (it is already scoped to
// the active price lists upstream).
func (d *Database) CatalogRows(ctx context.Context) ([]model.SourceRow, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT * FROM %q`, d.cfg.CatalogView)
	var args []any
	if d.filters.Limit > 0 {
		args = append(args, d.filters.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	log.Printf("db: querying %s", d.cfg.CatalogView)
	return d.query(ctx, q, args)
}

func (d *Database) query(ctx context.Context, q string, args []any) ([]model.SourceRow, error) {
	rows, err := d.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out, err := rowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	metrics.Inc("rows_fetched_total", map[string]string{"source": d.Name()}, float64(len(out)))
	return out, nil
}

// rowsToMaps turns a result set into untyped rows keyed by column name, the
// same shape the ERP payload produces. Numeric columns are unwrapped to
// float64 so the mapper sees plain scalars.
func rowsToMaps(rows pgx.Rows) ([]model.SourceRow, error) {
	fields := rows.FieldDescriptions()
	var out []model.SourceRow
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		m := make(model.SourceRow, len(fields))
		for i, fd := range fields {
			m[fd.Name] = plainValue(vals[i])
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func plainValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case string:
		return strings.TrimRight(t, " ") // CHAR(n) views pad with spaces
	default:
		return v
	}
}
