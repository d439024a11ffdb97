package models

import (
	"context"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
)

type Warehouse struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	Phone     string    `gorm:"size:30" json:"phone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	Stores    []Store   `gorm:"foreignKey:WarehouseId" json:"stores,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

type UpdateWarehouseInput struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Phone    *string `json:"phone"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {
	if _, err := requireAction(ctx, ActionWarehouseManage); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Warehouse](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, utils.ValidationError("invalid warehouse phone number")
		}
	}

	warehouse := Warehouse{
		Name:     input.Name,
		Location: input.Location,
		Phone:    input.Phone,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate warehouse name")
		}
		return nil, err
	}
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, id int, input *UpdateWarehouseInput) (*Warehouse, error) {
	if _, err := requireAction(ctx, ActionWarehouseManage); err != nil {
		return nil, err
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, utils.NotFoundError("warehouse not found")
	}

	updates := map[string]interface{}{}
	if input.Name != nil && *input.Name != warehouse.Name {
		if err := utils.ValidateUnique[Warehouse](ctx, "name", *input.Name, id); err != nil {
			return nil, err
		}
		updates["name"] = *input.Name
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.Phone != nil {
		if *input.Phone != "" {
			if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
				return nil, utils.ValidationError("invalid warehouse phone number")
			}
		}
		updates["phone"] = *input.Phone
	}
	if len(updates) == 0 {
		return warehouse, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(warehouse).Updates(updates).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

// ToggleWarehouseStatus flips active/inactive. Deactivation is refused
// while stock remains, and cascades to the warehouse's users inside the
// same transaction so nobody keeps a live login against a dead site.
func ToggleWarehouseStatus(ctx context.Context, id int) (*Warehouse, error) {
	if _, err := requireAction(ctx, ActionWarehouseManage); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	warehouse, err := utils.FetchModelForUpdate[Warehouse](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("warehouse not found")
	}

	deactivating := warehouse.IsActive == nil || *warehouse.IsActive
	if deactivating {
		var stock int64
		if err := tx.Model(&Device{}).
			Where("warehouse_id = ? AND status IN ?", id,
				[]DeviceStatus{DeviceStatusInWarehouse, DeviceStatusTransferred}).
			Count(&stock).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if stock > 0 {
			tx.Rollback()
			return nil, utils.PreconditionError("cannot deactivate warehouse with devices in stock")
		}
		if err := tx.Model(&User{}).
			Where("warehouse_id = ?", id).
			Update("is_active", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	newState := !deactivating || warehouse.IsActive == nil
	if warehouse.IsActive != nil {
		newState = !*warehouse.IsActive
	}
	if err := tx.Model(warehouse).Update("is_active", newState).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	warehouse.IsActive = &newState

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

// DeleteWarehouse hard-deletes only an empty warehouse; anything with
// stores or device history stays and should be deactivated instead.
func DeleteWarehouse(ctx context.Context, id int) error {
	if _, err := requireAction(ctx, ActionWarehouseManage); err != nil {
		return err
	}

	if _, err := utils.FetchModel[Warehouse](ctx, id); err != nil {
		return utils.NotFoundError("warehouse not found")
	}

	storeCount, err := utils.ResourceCountWhere[Store](ctx, "warehouse_id = ?", id)
	if err != nil {
		return err
	}
	if storeCount > 0 {
		return utils.PreconditionError("cannot delete warehouse with stores attached")
	}
	deviceCount, err := utils.ResourceCountWhere[Device](ctx, "warehouse_id = ?", id)
	if err != nil {
		return err
	}
	if deviceCount > 0 {
		return utils.PreconditionError("cannot delete warehouse with device history")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(&Warehouse{}, id).Error
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role == RoleWarehouse && caller.WarehouseId != id {
		return nil, utils.ForbiddenError("not allowed to view this warehouse")
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, id, "Stores")
	if err != nil {
		return nil, utils.NotFoundError("warehouse not found")
	}
	return warehouse, nil
}

func ListWarehouses(ctx context.Context) ([]*Warehouse, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Warehouse{})
	if caller.Role == RoleWarehouse {
		dbCtx.Where("id = ?", caller.WarehouseId)
	}

	var warehouses []*Warehouse
	if err := dbCtx.Order("name asc").Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// WarehouseStats summarizes a warehouse's stock for the dashboard.
type WarehouseStats struct {
	WarehouseId     int   `json:"warehouse_id"`
	InWarehouse     int64 `json:"in_warehouse"`
	InTransit       int64 `json:"in_transit"`
	OpenTransfers   int64 `json:"open_transfers"`
	StoreCount      int64 `json:"store_count"`
	PendingRequests int64 `json:"pending_requests"`
}

func GetWarehouseStats(ctx context.Context, id int) (*WarehouseStats, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOnWarehouse(id) {
		return nil, utils.ForbiddenError("not allowed to view this warehouse")
	}
	if _, err := utils.FetchModel[Warehouse](ctx, id); err != nil {
		return nil, utils.NotFoundError("warehouse not found")
	}

	db := config.GetDB()
	stats := WarehouseStats{WarehouseId: id}

	if err := db.WithContext(ctx).Model(&Device{}).
		Where("warehouse_id = ? AND status = ?", id, DeviceStatusInWarehouse).
		Count(&stats.InWarehouse).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Device{}).
		Where("warehouse_id = ? AND status = ?", id, DeviceStatusTransferred).
		Count(&stats.InTransit).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Transfer{}).
		Where("warehouse_id = ? AND status IN ?", id,
			[]TransferStatus{TransferStatusPending, TransferStatusInTransit}).
		Count(&stats.OpenTransfers).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Store{}).
		Where("warehouse_id = ?", id).
		Count(&stats.StoreCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&DemandRequest{}).
		Where("warehouse_id = ? AND status = ?", id, DemandStatusPending).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
