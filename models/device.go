package models

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
	"gorm.io/gorm"
)

// Device is the root entity: one physical phone tracked from warehouse
// intake to sale or return. Exactly one of WarehouseId/StoreId is set,
// according to Status.
type Device struct {
	ID           int          `gorm:"primary_key" json:"id"`
	DeviceId     string       `gorm:"size:50;not null;uniqueIndex" json:"device_id"`
	Name         string       `gorm:"size:100;not null" json:"name" binding:"required"`
	Model        string       `gorm:"size:100;not null" json:"model" binding:"required"`
	Imei1        string       `gorm:"size:20;not null;uniqueIndex" json:"imei_1" binding:"required"`
	Imei2        *string      `gorm:"size:20;uniqueIndex" json:"imei_2"`
	Status       DeviceStatus `gorm:"size:20;index;not null" json:"status"`
	WarehouseId  *int         `gorm:"index" json:"warehouse_id"`
	StoreId      *int         `gorm:"index" json:"store_id"`
	OnLoan       bool         `gorm:"not null;default:false" json:"on_loan"`
	PurchaseDate time.Time    `json:"purchase_date"`
	QrCode       string       `gorm:"size:255" json:"qr_code"`
	Warehouse    *Warehouse   `gorm:"foreignKey:WarehouseId" json:"warehouse,omitempty"`
	Store        *Store       `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDevice struct {
	Name         string    `json:"name" binding:"required"`
	Model        string    `json:"model" binding:"required"`
	Imei1        string    `json:"imei_1" binding:"required"`
	Imei2        *string   `json:"imei_2"`
	WarehouseId  int       `json:"warehouse_id"`
	PurchaseDate time.Time `json:"purchase_date"`
}

type UpdateDeviceInput struct {
	Name         string    `json:"name" binding:"required"`
	Model        string    `json:"model" binding:"required"`
	Imei1        string    `json:"imei_1" binding:"required"`
	Imei2        *string   `json:"imei_2"`
	PurchaseDate time.Time `json:"purchase_date"`
}

type DevicesConnection struct {
	Edges    []*DevicesEdge `json:"edges"`
	PageInfo *PageInfo      `json:"pageInfo"`
}

type DevicesEdge Edge[Device]

func (obj Device) GetId() int {
	return obj.ID
}

// returns decoded cursor string
func (obj Device) GetCursor() string {
	return obj.CreatedAt.String()
}

// GenerateDeviceId builds the public device identifier:
// UPPER(first 3 of model) + "-" + YYYYMMDDHHMMSS + "-" + 6 random hex chars.
// Collisions surface as a uniqueness violation and the caller retries.
func GenerateDeviceId(model string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		trimmed = "DEV"
	}
	prefix := strings.ToUpper(trimmed)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))

	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102150405"), suffix), nil
}

// qrArtifactKey is the opaque reference to the externally rendered QR image.
func qrArtifactKey(deviceId string) string {
	return "qrcodes/" + deviceId + ".png"
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry")
}

func (input *NewDevice) validate(ctx context.Context) error {
	// IMEIs are globally unique across both slots.
	if err := utils.ValidateUnique[Device](ctx, "imei_1", input.Imei1, 0); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Device](ctx, "imei_2", input.Imei1, 0); err != nil {
		return err
	}
	if input.Imei2 != nil && strings.TrimSpace(*input.Imei2) != "" {
		if err := utils.ValidateUnique[Device](ctx, "imei_1", *input.Imei2, 0); err != nil {
			return err
		}
		if err := utils.ValidateUnique[Device](ctx, "imei_2", *input.Imei2, 0); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, input.WarehouseId); err != nil {
		return utils.NotFoundError("warehouse not found")
	}
	return nil
}

// CreateDevice performs warehouse intake: status starts at in_warehouse and
// a warehouse-scoped caller is pinned to its own warehouse.
func CreateDevice(ctx context.Context, input *NewDevice) (*Device, error) {
	caller, err := requireAction(ctx, ActionDeviceCreate)
	if err != nil {
		return nil, err
	}

	if caller.Role == RoleWarehouse {
		input.WarehouseId = caller.WarehouseId
	}
	if input.WarehouseId == 0 {
		return nil, utils.ValidationError("warehouse is required")
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	deviceId, err := GenerateDeviceId(input.Model, time.Now())
	if err != nil {
		return nil, err
	}

	device := Device{
		DeviceId:     deviceId,
		Name:         input.Name,
		Model:        input.Model,
		Imei1:        input.Imei1,
		Imei2:        input.Imei2,
		Status:       DeviceStatusInWarehouse,
		WarehouseId:  &input.WarehouseId,
		PurchaseDate: input.PurchaseDate,
		QrCode:       qrArtifactKey(deviceId),
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Create(&device).Error; err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate device id or IMEI")
		}
		return nil, err
	}

	if err := logDeviceAction(tx, device.ID, DeviceActionCreated,
		"Device created and added to warehouse inventory.", caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &device, nil
}

// UpdateDevice edits descriptive fields only. Status and location are owned
// by the transfer/sale workflows.
func UpdateDevice(ctx context.Context, id int, input *UpdateDeviceInput) (*Device, error) {
	caller, err := requireAction(ctx, ActionDeviceUpdate)
	if err != nil {
		return nil, err
	}

	device, err := utils.FetchModel[Device](ctx, id)
	if err != nil {
		return nil, utils.NotFoundError("device not found")
	}
	if caller.Role == RoleWarehouse {
		if device.WarehouseId == nil || *device.WarehouseId != caller.WarehouseId {
			return nil, utils.ForbiddenError("device belongs to another warehouse")
		}
	}

	if err := utils.ValidateUnique[Device](ctx, "imei_1", input.Imei1, id); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Device](ctx, "imei_2", input.Imei1, id); err != nil {
		return nil, err
	}
	if input.Imei2 != nil && strings.TrimSpace(*input.Imei2) != "" {
		if err := utils.ValidateUnique[Device](ctx, "imei_1", *input.Imei2, id); err != nil {
			return nil, err
		}
		if err := utils.ValidateUnique[Device](ctx, "imei_2", *input.Imei2, id); err != nil {
			return nil, err
		}
	}

	device.Name = input.Name
	device.Model = input.Model
	device.Imei1 = input.Imei1
	device.Imei2 = input.Imei2
	device.PurchaseDate = input.PurchaseDate

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Save(device).Error; err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate IMEI")
		}
		return nil, err
	}

	if err := logDeviceAction(tx, device.ID, DeviceActionStatusChanged,
		"Device details updated.", caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return device, nil
}

// DeleteDevice hard-deletes a unit that never left the warehouse. Any other
// status is history and must be preserved.
func DeleteDevice(ctx context.Context, id int) (*Device, error) {
	if _, err := requireAction(ctx, ActionDeviceDelete); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	device, err := utils.FetchModelForUpdate[Device](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("device not found")
	}
	if device.Status != DeviceStatusInWarehouse {
		tx.Rollback()
		return nil, utils.PreconditionError("can only delete devices that are in warehouse")
	}

	if err := tx.Where("device_id = ?", device.ID).Delete(&DeviceLog{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("device_id = ?", device.ID).Delete(&QcCheck{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(device).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// The QR image is an external artifact keyed by device.QrCode; the
	// artifact store cleans it up from the returned reference.
	return device, nil
}

func GetDevice(ctx context.Context, id int) (*Device, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	device, err := utils.FetchModel[Device](ctx, id, "Warehouse", "Store")
	if err != nil {
		return nil, utils.NotFoundError("device not found")
	}
	if !caller.CanViewDevice(device) {
		return nil, utils.ForbiddenError("not allowed to view this device")
	}
	return device, nil
}

type DeviceFilters struct {
	WarehouseId *int
	StoreId     *int
	Status      *DeviceStatus
	Model       *string
	Imei        *string
	DeviceId    *string
}

func PaginateDevices(ctx context.Context, limit *int, after *string, filters *DeviceFilters) (*DevicesConnection, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Device{})

	// role scoping first, request filters after
	switch caller.Role {
	case RoleWarehouse:
		dbCtx.Where("warehouse_id = ?", caller.WarehouseId)
	case RoleStore:
		dbCtx.Where("store_id = ?", caller.StoreId)
	}

	if filters != nil {
		if filters.WarehouseId != nil {
			dbCtx.Where("warehouse_id = ?", *filters.WarehouseId)
		}
		if filters.StoreId != nil {
			dbCtx.Where("store_id = ?", *filters.StoreId)
		}
		if filters.Status != nil {
			dbCtx.Where("status = ?", *filters.Status)
		}
		if filters.Model != nil && *filters.Model != "" {
			dbCtx.Where("model LIKE ?", "%"+*filters.Model+"%")
		}
		if filters.Imei != nil && *filters.Imei != "" {
			dbCtx.Where("imei_1 LIKE ? OR imei_2 LIKE ?", "%"+*filters.Imei+"%", "%"+*filters.Imei+"%")
		}
		if filters.DeviceId != nil && *filters.DeviceId != "" {
			dbCtx.Where("device_id LIKE ?", "%"+*filters.DeviceId+"%")
		}
	}

	pageLimit := config.SearchLimit
	if limit != nil && *limit > 0 {
		pageLimit = *limit
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Device](dbCtx, pageLimit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection DevicesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		devicesEdge := DevicesEdge(edge)
		connection.Edges = append(connection.Edges, &devicesEdge)
	}
	return &connection, nil
}

type DeviceSummary struct {
	Total       int64 `json:"total"`
	InWarehouse int64 `json:"in_warehouse"`
	Transferred int64 `json:"transferred"`
	InStore     int64 `json:"in_store"`
	Sold        int64 `json:"sold"`
	Returned    int64 `json:"returned"`
}

func GetDeviceSummary(ctx context.Context) (*DeviceSummary, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	base := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&Device{})
		switch caller.Role {
		case RoleWarehouse:
			q = q.Where("warehouse_id = ?", caller.WarehouseId)
		case RoleStore:
			q = q.Where("store_id = ?", caller.StoreId)
		}
		return q
	}

	var summary DeviceSummary
	if err := base().Count(&summary.Total).Error; err != nil {
		return nil, err
	}
	counts := []struct {
		status DeviceStatus
		dest   *int64
	}{
		{DeviceStatusInWarehouse, &summary.InWarehouse},
		{DeviceStatusTransferred, &summary.Transferred},
		{DeviceStatusInStore, &summary.InStore},
		{DeviceStatusSold, &summary.Sold},
		{DeviceStatusReturned, &summary.Returned},
	}
	for _, c := range counts {
		if err := base().Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return &summary, nil
}
