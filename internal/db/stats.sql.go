package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDashboardStats = `-- name: GetDashboardStats :one
SELECT
  (SELECT COUNT(*) FROM invoices)::bigint AS total_invoices,
  (SELECT COALESCE(SUM(total_amount), 0) FROM invoices WHERE created_at >= $1 AND created_at < $2)::numeric AS today_revenue,
  (SELECT COUNT(DISTINCT customer_name) FROM invoices)::bigint AS total_customers,
  (SELECT COALESCE(SUM(quantity), 0) FROM invoice_items)::numeric AS total_quantity
`

type GetDashboardStatsParams struct {
	DayStart pgtype.Timestamptz
	DayEnd   pgtype.Timestamptz
}

type GetDashboardStatsRow struct {
	TotalInvoices  int64
	TodayRevenue   pgtype.Numeric
	TotalCustomers int64
	TotalQuantity  pgtype.Numeric
}

func (q *Queries) GetDashboardStats(ctx context.Context, arg GetDashboardStatsParams) (GetDashboardStatsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardStats, arg.DayStart, arg.DayEnd)
	var i GetDashboardStatsRow
	err := row.Scan(&i.TotalInvoices, &i.TodayRevenue, &i.TotalCustomers, &i.TotalQuantity)
	return i, err
}
