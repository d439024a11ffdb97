package models

import (
	"context"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
	"gorm.io/gorm"
)

// DeviceLog is the append-only audit trail of a device. Rows are written
// inside the same transaction as the transition they describe and are never
// updated or deleted.
type DeviceLog struct {
	ID          int       `gorm:"primary_key" json:"id"`
	DeviceId    int       `gorm:"index;not null" json:"device_id"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	Description string    `gorm:"type:text" json:"description"`
	PerformedBy int       `gorm:"index;not null" json:"performed_by"`
	Performer   *User     `gorm:"foreignKey:PerformedBy" json:"performer,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// logDeviceAction appends one audit row. Call with the workflow's tx so a
// rollback also discards the log entry.
func logDeviceAction(tx *gorm.DB, deviceId int, action string, description string, performedBy int) error {
	entry := DeviceLog{
		DeviceId:    deviceId,
		Action:      action,
		Description: description,
		PerformedBy: performedBy,
	}
	return tx.Create(&entry).Error
}

// ListDeviceLogs returns the audit trail newest-first, subject to the same
// role visibility as the owning device.
func ListDeviceLogs(ctx context.Context, deviceId int) ([]*DeviceLog, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	device, err := utils.FetchModel[Device](ctx, deviceId)
	if err != nil {
		return nil, utils.NotFoundError("device not found")
	}
	if !caller.CanViewDevice(device) {
		return nil, utils.ForbiddenError("not allowed to view this device")
	}

	db := config.GetDB()
	var logs []*DeviceLog
	err = db.WithContext(ctx).
		Where("device_id = ?", deviceId).
		Preload("Performer").
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		if l.Performer != nil {
			l.Performer.PrepareGive()
		}
	}
	return logs, nil
}
