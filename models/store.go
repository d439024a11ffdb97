package models

import (
	"context"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
)

type Store struct {
	ID          int        `gorm:"primary_key" json:"id"`
	Name        string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	WarehouseId int        `gorm:"index;not null" json:"warehouse_id"`
	Address     string     `gorm:"type:text" json:"address"`
	Phone       string     `gorm:"size:30" json:"phone"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseId" json:"warehouse,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name        string `json:"name" binding:"required"`
	WarehouseId int    `json:"warehouse_id" binding:"required"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

type UpdateStoreInput struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {
	if _, err := requireAction(ctx, ActionStoreManage); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Store](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	warehouse, err := utils.FetchModel[Warehouse](ctx, input.WarehouseId)
	if err != nil {
		return nil, utils.NotFoundError("warehouse not found")
	}
	if warehouse.IsActive != nil && !*warehouse.IsActive {
		return nil, utils.PreconditionError("cannot attach a store to an inactive warehouse")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, utils.ValidationError("invalid store phone number")
		}
	}

	store := Store{
		Name:        input.Name,
		WarehouseId: input.WarehouseId,
		Address:     input.Address,
		Phone:       input.Phone,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate store name")
		}
		return nil, err
	}
	return &store, nil
}

func UpdateStore(ctx context.Context, id int, input *UpdateStoreInput) (*Store, error) {
	if _, err := requireAction(ctx, ActionStoreManage); err != nil {
		return nil, err
	}

	store, err := utils.FetchModel[Store](ctx, id)
	if err != nil {
		return nil, utils.NotFoundError("store not found")
	}

	updates := map[string]interface{}{}
	if input.Name != nil && *input.Name != store.Name {
		if err := utils.ValidateUnique[Store](ctx, "name", *input.Name, id); err != nil {
			return nil, err
		}
		updates["name"] = *input.Name
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.Phone != nil {
		if *input.Phone != "" {
			if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
				return nil, utils.ValidationError("invalid store phone number")
			}
		}
		updates["phone"] = *input.Phone
	}
	if len(updates) == 0 {
		return store, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(store).Updates(updates).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// ToggleStoreStatus flips active/inactive. Deactivation is refused while
// the store holds unsold stock, and cascades to the store's users in the
// same transaction.
func ToggleStoreStatus(ctx context.Context, id int) (*Store, error) {
	if _, err := requireAction(ctx, ActionStoreManage); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	store, err := utils.FetchModelForUpdate[Store](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("store not found")
	}

	deactivating := store.IsActive == nil || *store.IsActive
	if deactivating {
		var stock int64
		if err := tx.Model(&Device{}).
			Where("store_id = ? AND status = ?", id, DeviceStatusInStore).
			Count(&stock).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if stock > 0 {
			tx.Rollback()
			return nil, utils.PreconditionError("cannot deactivate store with devices in stock")
		}
		if err := tx.Model(&User{}).
			Where("store_id = ?", id).
			Update("is_active", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	newState := false
	if store.IsActive != nil {
		newState = !*store.IsActive
	}
	if err := tx.Model(store).Update("is_active", newState).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	store.IsActive = &newState

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return store, nil
}

// DeleteStore hard-deletes only a store with no trading history.
func DeleteStore(ctx context.Context, id int) error {
	if _, err := requireAction(ctx, ActionStoreManage); err != nil {
		return err
	}
	if _, err := utils.FetchModel[Store](ctx, id); err != nil {
		return utils.NotFoundError("store not found")
	}

	deviceCount, err := utils.ResourceCountWhere[Device](ctx, "store_id = ?", id)
	if err != nil {
		return err
	}
	if deviceCount > 0 {
		return utils.PreconditionError("cannot delete store with device history")
	}
	saleCount, err := utils.ResourceCountWhere[Sale](ctx, "store_id = ?", id)
	if err != nil {
		return err
	}
	if saleCount > 0 {
		return utils.PreconditionError("cannot delete store with sales history")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(&Store{}, id).Error
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role == RoleStore && caller.StoreId != id {
		return nil, utils.ForbiddenError("not allowed to view this store")
	}

	store, err := utils.FetchModel[Store](ctx, id, "Warehouse")
	if err != nil {
		return nil, utils.NotFoundError("store not found")
	}
	return store, nil
}

func ListStores(ctx context.Context, warehouseId *int) ([]*Store, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Store{})

	switch caller.Role {
	case RoleWarehouse:
		dbCtx.Where("warehouse_id = ?", caller.WarehouseId)
	case RoleStore:
		dbCtx.Where("id = ?", caller.StoreId)
	}
	if warehouseId != nil {
		dbCtx.Where("warehouse_id = ?", *warehouseId)
	}

	var stores []*Store
	if err := dbCtx.Order("name asc").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// StoreStats summarizes a store's stock and trading for the dashboard.
type StoreStats struct {
	StoreId    int   `json:"store_id"`
	InStock    int64 `json:"in_stock"`
	Incoming   int64 `json:"incoming"`
	TotalSales int64 `json:"total_sales"`
	ActiveEmis int64 `json:"active_emis"`
	Returns    int64 `json:"returns"`
}

func GetStoreStats(ctx context.Context, id int) (*StoreStats, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOnStore(id) {
		return nil, utils.ForbiddenError("not allowed to view this store")
	}
	if _, err := utils.FetchModel[Store](ctx, id); err != nil {
		return nil, utils.NotFoundError("store not found")
	}

	db := config.GetDB()
	stats := StoreStats{StoreId: id}

	if err := db.WithContext(ctx).Model(&Device{}).
		Where("store_id = ? AND status = ?", id, DeviceStatusInStore).
		Count(&stats.InStock).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Transfer{}).
		Where("store_id = ? AND status IN ?", id,
			[]TransferStatus{TransferStatusPending, TransferStatusInTransit}).
		Count(&stats.Incoming).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Sale{}).
		Where("store_id = ?", id).
		Count(&stats.TotalSales).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&EmiDetail{}).
		Joins("JOIN sales ON sales.id = emi_details.sale_id").
		Where("sales.store_id = ? AND emi_details.is_active = ?", id, true).
		Count(&stats.ActiveEmis).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Sale{}).
		Where("store_id = ? AND return_date IS NOT NULL", id).
		Count(&stats.Returns).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
