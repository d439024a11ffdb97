package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
	"github.com/sirupsen/logrus"
)

// Transfer is one batch shipment of devices from a warehouse to a store.
// Status walks pending -> in_transit -> received, or -> cancelled while the
// batch is still open.
type Transfer struct {
	ID           int            `gorm:"primary_key" json:"id"`
	WarehouseId  int            `gorm:"index;not null" json:"warehouse_id"`
	StoreId      int            `gorm:"index;not null" json:"store_id"`
	InitiatedBy  int            `gorm:"not null" json:"initiated_by"`
	ReceivedBy   *int           `json:"received_by"`
	Status       TransferStatus `gorm:"size:20;index;not null" json:"status"`
	TransferDate time.Time      `gorm:"not null" json:"transfer_date"`
	ReceivedDate *time.Time     `json:"received_date"`
	Notes        string         `gorm:"type:text" json:"notes"`
	QcPassed     bool           `gorm:"not null;default:false" json:"qc_passed"`
	Items        []TransferItem `gorm:"foreignKey:TransferId" json:"items"`
	Warehouse    *Warehouse     `gorm:"foreignKey:WarehouseId" json:"warehouse,omitempty"`
	Store        *Store         `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	Initiator    *User          `gorm:"foreignKey:InitiatedBy" json:"initiator,omitempty"`
	Receiver     *User          `gorm:"foreignKey:ReceivedBy" json:"receiver,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type TransferItem struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TransferId int       `gorm:"index;not null" json:"transfer_id"`
	DeviceId   int       `gorm:"index;not null" json:"device_id"`
	Device     *Device   `gorm:"foreignKey:DeviceId" json:"device,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewTransfer struct {
	WarehouseId int    `json:"warehouse_id" binding:"required"`
	StoreId     int    `json:"store_id" binding:"required"`
	DeviceIds   []int  `json:"device_ids" binding:"required,min=1"`
	Notes       string `json:"notes"`
	QcPassed    bool   `json:"qc_passed"`
}

type TransfersConnection struct {
	Edges    []*TransfersEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

type TransfersEdge Edge[Transfer]

func (obj Transfer) GetId() int {
	return obj.ID
}

// returns decoded cursor string
func (obj Transfer) GetCursor() string {
	return obj.CreatedAt.String()
}

func (input *NewTransfer) validate(ctx context.Context) error {
	warehouse, err := utils.FetchModel[Warehouse](ctx, input.WarehouseId)
	if err != nil {
		return utils.NotFoundError("warehouse not found")
	}
	if warehouse.IsActive != nil && !*warehouse.IsActive {
		return utils.PreconditionError("warehouse is not active")
	}
	store, err := utils.FetchModel[Store](ctx, input.StoreId)
	if err != nil {
		return utils.NotFoundError("store not found")
	}
	if store.IsActive != nil && !*store.IsActive {
		return utils.PreconditionError("store is not active")
	}
	if store.WarehouseId != input.WarehouseId {
		return utils.PreconditionError("store does not belong to the selected warehouse")
	}
	return nil
}

// CreateTransfer moves a batch of devices to transferred, all-or-nothing.
// Each device row is taken FOR UPDATE so a concurrent transfer racing for
// the same unit loses with a guard error instead of double-shipping it.
func CreateTransfer(ctx context.Context, input *NewTransfer) (*Transfer, error) {
	caller, err := requireAction(ctx, ActionTransferCreate)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOnWarehouse(input.WarehouseId) {
		return nil, utils.ForbiddenError("not allowed to transfer from this warehouse")
	}

	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	deviceIds := utils.UniqueSlice(input.DeviceIds)

	logger := config.GetLogger()

	// Redis lock is a best-effort optimization to keep racing batch creates
	// from piling up on the same warehouse. Reliability must not depend on
	// Redis: the per-device row locks below are authoritative.
	if locker := config.GetRedisLock(); locker != nil {
		lock, lockErr := locker.Obtain(ctx, fmt.Sprintf("lock:transfer:warehouse:%d", input.WarehouseId),
			10*time.Second, nil)
		if lockErr != nil && lockErr != redislock.ErrNotObtained {
			config.LogError(logger, "transfer.go", "CreateTransfer", "redislock.Obtain", nil, lockErr)
		}
		if lockErr == nil {
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}

	transfer := Transfer{
		WarehouseId:  input.WarehouseId,
		StoreId:      input.StoreId,
		InitiatedBy:  caller.UserId,
		Status:       TransferStatusPending,
		TransferDate: time.Now(),
		Notes:        input.Notes,
		QcPassed:     input.QcPassed,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Create(&transfer).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, deviceId := range deviceIds {
		device, err := utils.FetchModelForUpdate[Device](tx, deviceId)
		if err != nil {
			tx.Rollback()
			return nil, utils.NotFoundError(fmt.Sprintf("device %d not found", deviceId))
		}
		if device.Status != DeviceStatusInWarehouse && device.Status != DeviceStatusReturned {
			tx.Rollback()
			return nil, utils.PreconditionError(
				fmt.Sprintf("device %s is not available for transfer", device.DeviceId))
		}
		if device.Status == DeviceStatusInWarehouse &&
			(device.WarehouseId == nil || *device.WarehouseId != input.WarehouseId) {
			tx.Rollback()
			return nil, utils.PreconditionError(
				fmt.Sprintf("device %s does not belong to the selected warehouse", device.DeviceId))
		}
		// A returned device sits at a store; its home warehouse is the store's.
		// Warehouse-scoped callers may only re-issue units from their own network.
		if device.Status == DeviceStatusReturned && caller.Role == RoleWarehouse {
			if device.StoreId == nil {
				tx.Rollback()
				return nil, utils.PreconditionError(
					fmt.Sprintf("device %s is not available for transfer", device.DeviceId))
			}
			var homeStore Store
			if err := tx.First(&homeStore, *device.StoreId).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			if homeStore.WarehouseId != input.WarehouseId {
				tx.Rollback()
				return nil, utils.ForbiddenError(
					fmt.Sprintf("device %s belongs to another warehouse's store", device.DeviceId))
			}
		}

		item := TransferItem{TransferId: transfer.ID, DeviceId: device.ID}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := tx.Model(device).Updates(map[string]interface{}{
			"status":       DeviceStatusTransferred,
			"warehouse_id": input.WarehouseId,
			"store_id":     nil,
		}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		if err := logDeviceAction(tx, device.ID, DeviceActionTransferred,
			fmt.Sprintf("Device transferred from warehouse to store (Transfer #%d)", transfer.ID),
			caller.UserId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"transfer_id":  transfer.ID,
		"warehouse_id": transfer.WarehouseId,
		"store_id":     transfer.StoreId,
		"device_count": len(deviceIds),
	}).Info("transfer created")

	return &transfer, nil
}

// MarkTransferInTransit flags a pending batch as on the road. No device
// rows change.
func MarkTransferInTransit(ctx context.Context, id int) (*Transfer, error) {
	caller, err := requireAction(ctx, ActionTransferTransit)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	transfer, err := utils.FetchModelForUpdate[Transfer](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("transfer not found")
	}
	if !caller.CanActOnWarehouse(transfer.WarehouseId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to update this transfer")
	}
	if transfer.Status != TransferStatusPending {
		tx.Rollback()
		return nil, utils.PreconditionError("transfer must be in pending status to update to in transit")
	}

	if err := tx.Model(transfer).Update("status", TransferStatusInTransit).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	transfer.Status = TransferStatusInTransit

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return transfer, nil
}

// ReceiveTransfer lands every device of an open batch in the destination
// store and stamps the receiver.
func ReceiveTransfer(ctx context.Context, id int) (*Transfer, error) {
	caller, err := requireAction(ctx, ActionTransferReceive)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	transfer, err := utils.FetchModelForUpdate[Transfer](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("transfer not found")
	}
	if !caller.CanActOnStore(transfer.StoreId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to receive this transfer")
	}
	if !transfer.Status.isOpen() {
		tx.Rollback()
		return nil, utils.PreconditionError("transfer cannot be received in its current status")
	}

	now := time.Now()
	if err := tx.Model(transfer).Updates(map[string]interface{}{
		"status":        TransferStatusReceived,
		"received_by":   caller.UserId,
		"received_date": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	transfer.Status = TransferStatusReceived
	transfer.ReceivedBy = &caller.UserId
	transfer.ReceivedDate = &now

	var items []TransferItem
	if err := tx.Where("transfer_id = ?", transfer.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, item := range items {
		device, err := utils.FetchModelForUpdate[Device](tx, item.DeviceId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Model(device).Updates(map[string]interface{}{
			"status":       DeviceStatusInStore,
			"warehouse_id": nil,
			"store_id":     transfer.StoreId,
		}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := logDeviceAction(tx, device.ID, DeviceActionReceived,
			fmt.Sprintf("Device received at store (Transfer #%d)", transfer.ID),
			caller.UserId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return transfer, nil
}

// CancelTransfer reverts every device of an open batch to the source
// warehouse, leaving only the audit trail behind.
func CancelTransfer(ctx context.Context, id int) (*Transfer, error) {
	caller, err := requireAction(ctx, ActionTransferCancel)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	transfer, err := utils.FetchModelForUpdate[Transfer](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("transfer not found")
	}
	if !caller.CanActOnWarehouse(transfer.WarehouseId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to cancel this transfer")
	}
	if !transfer.Status.isOpen() {
		tx.Rollback()
		return nil, utils.PreconditionError("transfer cannot be cancelled in its current status")
	}

	if err := tx.Model(transfer).Update("status", TransferStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	transfer.Status = TransferStatusCancelled

	var items []TransferItem
	if err := tx.Where("transfer_id = ?", transfer.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, item := range items {
		device, err := utils.FetchModelForUpdate[Device](tx, item.DeviceId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Model(device).Updates(map[string]interface{}{
			"status":       DeviceStatusInWarehouse,
			"warehouse_id": transfer.WarehouseId,
			"store_id":     nil,
		}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := logDeviceAction(tx, device.ID, DeviceActionStatusChanged,
			fmt.Sprintf("Transfer cancelled, device returned to warehouse (Transfer #%d)", transfer.ID),
			caller.UserId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return transfer, nil
}

func GetTransfer(ctx context.Context, id int) (*Transfer, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	transfer, err := utils.FetchModel[Transfer](ctx, id, "Items", "Items.Device", "Warehouse", "Store", "Initiator", "Receiver")
	if err != nil {
		return nil, utils.NotFoundError("transfer not found")
	}

	switch caller.Role {
	case RoleWarehouse:
		if transfer.WarehouseId != caller.WarehouseId {
			return nil, utils.ForbiddenError("not allowed to view this transfer")
		}
	case RoleStore:
		if transfer.StoreId != caller.StoreId {
			return nil, utils.ForbiddenError("not allowed to view this transfer")
		}
	}

	if transfer.Initiator != nil {
		transfer.Initiator.PrepareGive()
	}
	if transfer.Receiver != nil {
		transfer.Receiver.PrepareGive()
	}
	return transfer, nil
}

type TransferFilters struct {
	WarehouseId *int
	StoreId     *int
	Status      *TransferStatus
}

func PaginateTransfers(ctx context.Context, limit *int, after *string, filters *TransferFilters) (*TransfersConnection, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Transfer{})

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
	}

	pageLimit := config.SearchLimit
	if limit != nil && *limit > 0 {
		pageLimit = *limit
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Transfer](dbCtx, pageLimit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection TransfersConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		transfersEdge := TransfersEdge(edge)
		connection.Edges = append(connection.Edges, &transfersEdge)
	}
	return &connection, nil
}
