package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesByStoreRow aggregates a store's trading over a date range.
type SalesByStoreRow struct {
	StoreId    int             `json:"store_id"`
	StoreName  string          `json:"store_name"`
	SaleCount  int64           `json:"sale_count"`
	TotalSales decimal.Decimal `json:"total_sales"`
	EmiSales   int64           `json:"emi_sales"`
	Returns    int64           `json:"returns"`
}

func GetSalesByStoreReport(ctx context.Context, fromDate, toDate time.Time) ([]*SalesByStoreRow, error) {
	start := time.Now()
	defer logSlowReport(ctx, "sales_by_store_report", start, map[string]any{
		"from_date": fromDate.Format("2006-01-02"),
		"to_date":   toDate.Format("2006-01-02"),
	})

	caller, err := models.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Can(models.ActionReportView) {
		return nil, utils.ForbiddenError("not allowed to view reports")
	}
	if caller.Role == models.RoleWarehouse {
		return nil, utils.ForbiddenError("not allowed to view sales reports")
	}

	sql := `
SELECT
    sales.store_id,
    stores.name AS store_name,
    COUNT(sales.id) AS sale_count,
    SUM(sales.sale_price) AS total_sales,
    SUM(CASE WHEN sales.on_emi THEN 1 ELSE 0 END) AS emi_sales,
    SUM(CASE WHEN sales.return_date IS NOT NULL THEN 1 ELSE 0 END) AS returns
FROM
    sales
    LEFT JOIN stores ON stores.id = sales.store_id
WHERE
    sales.sale_date >= ? AND sales.sale_date <= ?
`
	args := []interface{}{fromDate, toDate}
	if caller.Role == models.RoleStore {
		sql += "    AND sales.store_id = ?\n"
		args = append(args, caller.StoreId)
	}
	sql += `
GROUP BY
    sales.store_id, store_name
ORDER BY
    total_sales DESC;
`

	var rows []*SalesByStoreRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// EmiDueRow is one active loan plan with its outstanding position.
type EmiDueRow struct {
	EmiDetailId       int             `json:"emi_detail_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	CustomerName      string          `json:"customer_name"`
	CustomerPhone     string          `json:"customer_phone"`
	StoreName         string          `json:"store_name"`
	EmiAmount         decimal.Decimal `json:"emi_amount"`
	TotalInstallments int             `json:"total_installments"`
	InstallmentsPaid  int             `json:"installments_paid"`
	NextEmiDate       *time.Time      `json:"next_emi_date"`
	Overdue           bool            `json:"overdue"`
}

// GetEmiDueReport lists active plans ordered by next due date, flagging
// plans whose due date has passed.
func GetEmiDueReport(ctx context.Context) ([]*EmiDueRow, error) {
	start := time.Now()
	defer logSlowReport(ctx, "emi_due_report", start, nil)

	caller, err := models.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Can(models.ActionReportView) {
		return nil, utils.ForbiddenError("not allowed to view reports")
	}
	if caller.Role == models.RoleWarehouse {
		return nil, utils.ForbiddenError("not allowed to view emi reports")
	}

	if reportCacheEnabled() {
		key := fmt.Sprintf("report:emi_due:%s:%d", caller.Role, caller.StoreId)
		var cached []*EmiDueRow
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		rows, err := queryEmiDueReport(ctx, caller)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, rows, reportCacheTTL())
		return rows, nil
	}

	return queryEmiDueReport(ctx, caller)
}

func queryEmiDueReport(ctx context.Context, caller models.Caller) ([]*EmiDueRow, error) {
	sql := `
SELECT
    emi_details.id AS emi_detail_id,
    sales.invoice_number,
    sales.customer_name,
    sales.customer_phone,
    stores.name AS store_name,
    emi_details.emi_amount,
    emi_details.total_installments,
    emi_details.installments_paid,
    emi_details.next_emi_date,
    (emi_details.next_emi_date IS NOT NULL AND emi_details.next_emi_date < NOW()) AS overdue
FROM
    emi_details
    JOIN sales ON sales.id = emi_details.sale_id
    LEFT JOIN stores ON stores.id = sales.store_id
WHERE
    emi_details.is_active = true
`
	var args []interface{}
	if caller.Role == models.RoleStore {
		sql += "    AND sales.store_id = ?\n"
		args = append(args, caller.StoreId)
	}
	sql += `
ORDER BY
    emi_details.next_emi_date ASC;
`

	var rows []*EmiDueRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
