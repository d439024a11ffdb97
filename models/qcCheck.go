package models

import (
	"context"
	"fmt"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
)

// QcCheck is one quality inspection of a device, performed at warehouse
// intake or on store receipt. Checks accumulate; none is ever updated.
type QcCheck struct {
	ID        int       `gorm:"primary_key" json:"id"`
	DeviceId  int       `gorm:"index;not null" json:"device_id"`
	CheckedBy int       `gorm:"not null" json:"checked_by"`
	Passed    bool      `gorm:"not null" json:"passed"`
	Remarks   string    `gorm:"type:text" json:"remarks"`
	Checker   *User     `gorm:"foreignKey:CheckedBy" json:"checker,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewQcCheck struct {
	DeviceId int    `json:"device_id" binding:"required"`
	Passed   *bool  `json:"passed" binding:"required"`
	Remarks  string `json:"remarks"`
}

// RecordQcCheck appends an inspection result for a device the caller can
// see, with a matching entry on the device log.
func RecordQcCheck(ctx context.Context, input *NewQcCheck) (*QcCheck, error) {
	caller, err := requireAction(ctx, ActionQcRecord)
	if err != nil {
		return nil, err
	}

	device, err := utils.FetchModel[Device](ctx, input.DeviceId)
	if err != nil {
		return nil, utils.NotFoundError("device not found")
	}
	if !caller.CanViewDevice(device) {
		return nil, utils.ForbiddenError("not allowed to inspect this device")
	}

	check := QcCheck{
		DeviceId:  device.ID,
		CheckedBy: caller.UserId,
		Passed:    *input.Passed,
		Remarks:   input.Remarks,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Create(&check).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	verdict := "passed"
	if !check.Passed {
		verdict = "failed"
	}
	if err := logDeviceAction(tx, device.ID, DeviceActionQcCheck,
		fmt.Sprintf("QC check %s: %s", verdict, input.Remarks), caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &check, nil
}

// ListQcChecks returns a device's inspection history, newest first.
func ListQcChecks(ctx context.Context, deviceId int) ([]*QcCheck, error) {
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
	var checks []*QcCheck
	if err := db.WithContext(ctx).Model(&QcCheck{}).
		Preload("Checker").
		Where("device_id = ?", deviceId).
		Order("created_at desc").
		Find(&checks).Error; err != nil {
		return nil, err
	}
	for _, check := range checks {
		if check.Checker != nil {
			check.Checker.PrepareGive()
		}
	}
	return checks, nil
}
