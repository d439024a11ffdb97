package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
)

// InventoryReportRow is one model's stock position at one location.
type InventoryReportRow struct {
	Model       string `json:"model"`
	Name        string `json:"name"`
	WarehouseId *int   `json:"warehouse_id"`
	StoreId     *int   `json:"store_id"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Count       int64  `json:"count"`
	OnLoan      int64  `json:"on_loan"`
}

// GetInventoryReport aggregates device counts per model, location and
// status, scoped to what the caller is allowed to see.
func GetInventoryReport(ctx context.Context) ([]*InventoryReportRow, error) {
	start := time.Now()
	defer logSlowReport(ctx, "inventory_report", start, nil)

	caller, err := models.CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Can(models.ActionReportView) {
		return nil, utils.ForbiddenError("not allowed to view reports")
	}

	if reportCacheEnabled() {
		key := fmt.Sprintf("report:inventory:%s:%d:%d", caller.Role, caller.WarehouseId, caller.StoreId)
		var cached []*InventoryReportRow
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		rows, err := queryInventoryReport(ctx, caller)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, rows, reportCacheTTL())
		return rows, nil
	}

	return queryInventoryReport(ctx, caller)
}

func queryInventoryReport(ctx context.Context, caller models.Caller) ([]*InventoryReportRow, error) {
	sql := `
SELECT
    devices.model,
    devices.name,
    devices.warehouse_id,
    devices.store_id,
    COALESCE(warehouses.name, stores.name, '') AS location,
    devices.status,
    COUNT(devices.id) AS count,
    SUM(CASE WHEN devices.on_loan THEN 1 ELSE 0 END) AS on_loan
FROM
    devices
    LEFT JOIN warehouses ON warehouses.id = devices.warehouse_id
    LEFT JOIN stores ON stores.id = devices.store_id
`
	var args []interface{}
	switch caller.Role {
	case models.RoleWarehouse:
		sql += "WHERE devices.warehouse_id = ?\n"
		args = append(args, caller.WarehouseId)
	case models.RoleStore:
		sql += "WHERE devices.store_id = ?\n"
		args = append(args, caller.StoreId)
	}
	sql += `
GROUP BY
    devices.model, devices.name, devices.warehouse_id, devices.store_id, location, devices.status
ORDER BY
    devices.model, location;
`

	var rows []*InventoryReportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
