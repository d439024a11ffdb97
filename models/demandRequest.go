package models

import (
	"context"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
)

// DemandRequest is a store asking its warehouse for stock of a given
// model. The warehouse approves or rejects it; a later transfer that
// satisfies an approved request marks it fulfilled.
type DemandRequest struct {
	ID          int          `gorm:"primary_key" json:"id"`
	StoreId     int          `gorm:"index;not null" json:"store_id"`
	WarehouseId int          `gorm:"index;not null" json:"warehouse_id"`
	Model       string       `gorm:"size:255;not null" json:"model"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	Notes       string       `gorm:"type:text" json:"notes"`
	Status      DemandStatus `gorm:"size:20;index;not null" json:"status"`
	RequestedBy int          `gorm:"not null" json:"requested_by"`
	ProcessedBy *int         `json:"processed_by"`
	ProcessedAt *time.Time   `json:"processed_at"`
	Remarks     string       `gorm:"type:text" json:"remarks"`
	Store       *Store       `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	Warehouse   *Warehouse   `gorm:"foreignKey:WarehouseId" json:"warehouse,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDemandRequest struct {
	StoreId  int    `json:"store_id" binding:"required"`
	Model    string `json:"model" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Notes    string `json:"notes"`
}

type ProcessDemandInput struct {
	Status  DemandStatus `json:"status" binding:"required"`
	Remarks string       `json:"remarks"`
}

// CreateDemandRequest opens a pending request against the store's own
// warehouse.
func CreateDemandRequest(ctx context.Context, input *NewDemandRequest) (*DemandRequest, error) {
	caller, err := requireAction(ctx, ActionDemandCreate)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOnStore(input.StoreId) {
		return nil, utils.ForbiddenError("not allowed to raise requests for this store")
	}

	store, err := utils.FetchModel[Store](ctx, input.StoreId)
	if err != nil {
		return nil, utils.NotFoundError("store not found")
	}
	if store.IsActive != nil && !*store.IsActive {
		return nil, utils.PreconditionError("store is not active")
	}

	request := DemandRequest{
		StoreId:     store.ID,
		WarehouseId: store.WarehouseId,
		Model:       input.Model,
		Quantity:    input.Quantity,
		Notes:       input.Notes,
		Status:      DemandStatusPending,
		RequestedBy: caller.UserId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ProcessDemandRequest moves a request out of pending. Approved requests
// can later be marked fulfilled once the covering transfer ships.
func ProcessDemandRequest(ctx context.Context, id int, input *ProcessDemandInput) (*DemandRequest, error) {
	caller, err := requireAction(ctx, ActionDemandProcess)
	if err != nil {
		return nil, err
	}
	if !input.Status.IsValid() || input.Status == DemandStatusPending {
		return nil, utils.ValidationError("status must be approved, rejected or fulfilled")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	request, err := utils.FetchModelForUpdate[DemandRequest](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("demand request not found")
	}
	if !caller.CanActOnWarehouse(request.WarehouseId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to process requests for this warehouse")
	}

	switch input.Status {
	case DemandStatusApproved, DemandStatusRejected:
		if request.Status != DemandStatusPending {
			tx.Rollback()
			return nil, utils.PreconditionError("demand request has already been processed")
		}
	case DemandStatusFulfilled:
		if request.Status != DemandStatusApproved {
			tx.Rollback()
			return nil, utils.PreconditionError("only approved requests can be fulfilled")
		}
	}

	now := time.Now()
	if err := tx.Model(request).Updates(map[string]interface{}{
		"status":       input.Status,
		"processed_by": caller.UserId,
		"processed_at": now,
		"remarks":      input.Remarks,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	request.Status = input.Status
	request.ProcessedBy = &caller.UserId
	request.ProcessedAt = &now
	request.Remarks = input.Remarks

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return request, nil
}

func GetDemandRequest(ctx context.Context, id int) (*DemandRequest, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	request, err := utils.FetchModel[DemandRequest](ctx, id, "Store", "Warehouse")
	if err != nil {
		return nil, utils.NotFoundError("demand request not found")
	}

	switch caller.Role {
	case RoleWarehouse:
		if request.WarehouseId != caller.WarehouseId {
			return nil, utils.ForbiddenError("not allowed to view this request")
		}
	case RoleStore:
		if request.StoreId != caller.StoreId {
			return nil, utils.ForbiddenError("not allowed to view this request")
		}
	}
	return request, nil
}

type DemandFilters struct {
	StoreId     *int
	WarehouseId *int
	Status      *DemandStatus
}

func ListDemandRequests(ctx context.Context, filters *DemandFilters) ([]*DemandRequest, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&DemandRequest{}).Preload("Store")

	switch caller.Role {
	case RoleWarehouse:
		dbCtx.Where("warehouse_id = ?", caller.WarehouseId)
	case RoleStore:
		dbCtx.Where("store_id = ?", caller.StoreId)
	}
	if filters != nil {
		if filters.StoreId != nil {
			dbCtx.Where("store_id = ?", *filters.StoreId)
		}
		if filters.WarehouseId != nil {
			dbCtx.Where("warehouse_id = ?", *filters.WarehouseId)
		}
		if filters.Status != nil {
			dbCtx.Where("status = ?", *filters.Status)
		}
	}

	var requests []*DemandRequest
	if err := dbCtx.Order("created_at desc").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
