package models

import (
	"context"
	"fmt"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
	"github.com/shopspring/decimal"
)

// EmiDetail is the loan plan attached to a sale. InstallmentsPaid never
// exceeds TotalInstallments, and IsActive drops to false the moment the
// last installment lands.
type EmiDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	SaleId            int             `gorm:"uniqueIndex;not null" json:"sale_id"`
	DownPayment       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"down_payment"`
	EmiAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"emi_amount"`
	TotalInstallments int             `gorm:"not null" json:"total_installments"`
	InstallmentsPaid  int             `gorm:"not null;default:0" json:"installments_paid"`
	NextEmiDate       *time.Time      `json:"next_emi_date"`
	IsActive          bool            `gorm:"not null;default:true;index" json:"is_active"`
	ClosedReason      *string         `gorm:"type:text" json:"closed_reason"`
	Sale              *Sale           `gorm:"foreignKey:SaleId" json:"sale,omitempty"`
	Payments          []EmiPayment    `gorm:"foreignKey:EmiDetailId" json:"payments,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type EmiPayment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	EmiDetailId   int             `gorm:"index;not null" json:"emi_detail_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"size:30;not null" json:"payment_method"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
	TransactionId *string         `gorm:"size:100" json:"transaction_id"`
	ReceivedBy    int             `gorm:"not null" json:"received_by"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewEmiPayment struct {
	EmiDetailId   int             `json:"emi_detail_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	PaymentDate   *time.Time      `json:"payment_date"`
	TransactionId *string         `json:"transaction_id"`
}

type CloseEmiInput struct {
	EmiDetailId int    `json:"emi_detail_id" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// IsFullyPaid reports whether every installment has been collected.
func (emi *EmiDetail) IsFullyPaid() bool {
	return emi.InstallmentsPaid >= emi.TotalInstallments
}

// RemainingAmount is the outstanding balance across unpaid installments.
func (emi *EmiDetail) RemainingAmount() decimal.Decimal {
	remaining := emi.TotalInstallments - emi.InstallmentsPaid
	if remaining <= 0 {
		return decimal.Zero
	}
	return emi.EmiAmount.Mul(decimal.NewFromInt(int64(remaining)))
}

// NextDueDate advances a due date by exactly one calendar month. Anchoring
// on the previous due date rather than the payment date keeps the schedule
// from drifting when payments arrive late or early.
func NextDueDate(previous time.Time) time.Time {
	return previous.AddDate(0, 1, 0)
}

// RecordEmiPayment appends one installment payment. When the final
// installment lands the plan closes and the device comes off loan, with an
// "EMI completed" entry on the device log.
func RecordEmiPayment(ctx context.Context, input *NewEmiPayment) (*EmiDetail, error) {
	caller, err := requireAction(ctx, ActionEmiPayment)
	if err != nil {
		return nil, err
	}
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, utils.ValidationError("payment amount must be greater than zero")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	emi, err := utils.FetchModelForUpdate[EmiDetail](tx, input.EmiDetailId)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("emi record not found")
	}

	var sale Sale
	if err := tx.First(&sale, emi.SaleId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if !caller.CanActOnStore(sale.StoreId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to record payments for this store")
	}

	if !emi.IsActive {
		tx.Rollback()
		return nil, utils.PreconditionError("emi plan is not active")
	}
	if emi.IsFullyPaid() {
		tx.Rollback()
		return nil, utils.PreconditionError("emi plan is already fully paid")
	}

	paymentDate := time.Now()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	payment := EmiPayment{
		EmiDetailId:   emi.ID,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
		PaymentDate:   paymentDate,
		TransactionId: input.TransactionId,
		ReceivedBy:    caller.UserId,
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	emi.InstallmentsPaid++
	updates := map[string]interface{}{
		"installments_paid": emi.InstallmentsPaid,
	}

	if emi.IsFullyPaid() {
		emi.IsActive = false
		emi.NextEmiDate = nil
		updates["is_active"] = false
		updates["next_emi_date"] = nil
	} else if emi.NextEmiDate != nil {
		next := NextDueDate(*emi.NextEmiDate)
		emi.NextEmiDate = &next
		updates["next_emi_date"] = next
	}

	if err := tx.Model(emi).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if emi.IsFullyPaid() {
		device, err := utils.FetchModelForUpdate[Device](tx, sale.DeviceId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Model(device).Update("on_loan", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := logDeviceAction(tx, device.ID, DeviceActionStatusChanged,
			fmt.Sprintf("EMI completed (Invoice %s)", sale.InvoiceNumber),
			caller.UserId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return emi, nil
}

// CloseEmi forcibly retires an active plan without a payment row. Reserved
// for privileged roles; the reason lands on the device log.
func CloseEmi(ctx context.Context, input *CloseEmiInput) (*EmiDetail, error) {
	caller, err := requireAction(ctx, ActionEmiClose)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	emi, err := utils.FetchModelForUpdate[EmiDetail](tx, input.EmiDetailId)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("emi record not found")
	}
	if !emi.IsActive {
		tx.Rollback()
		return nil, utils.PreconditionError("emi plan is already inactive")
	}

	var sale Sale
	if err := tx.First(&sale, emi.SaleId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	emi.IsActive = false
	emi.ClosedReason = &input.Reason
	if err := tx.Model(emi).Updates(map[string]interface{}{
		"is_active":     false,
		"closed_reason": input.Reason,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	device, err := utils.FetchModelForUpdate[Device](tx, sale.DeviceId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(device).Update("on_loan", false).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := logDeviceAction(tx, device.ID, DeviceActionStatusChanged,
		fmt.Sprintf("EMI closed by admin: %s (Invoice %s)", input.Reason, sale.InvoiceNumber),
		caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return emi, nil
}

func GetEmiDetail(ctx context.Context, id int) (*EmiDetail, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	emi, err := utils.FetchModel[EmiDetail](ctx, id, "Sale", "Sale.Device", "Payments")
	if err != nil {
		return nil, utils.NotFoundError("emi record not found")
	}
	if caller.Role == RoleStore && (emi.Sale == nil || emi.Sale.StoreId != caller.StoreId) {
		return nil, utils.ForbiddenError("not allowed to view this emi record")
	}
	if caller.Role == RoleWarehouse {
		return nil, utils.ForbiddenError("not allowed to view emi records")
	}
	return emi, nil
}

type EmiFilters struct {
	StoreId    *int
	ActiveOnly *bool
	Overdue    *bool
}

// ListEmiDetails returns loan plans scoped by role, optionally narrowed to
// active or overdue plans. Overdue means an active plan whose next due
// date has passed.
func ListEmiDetails(ctx context.Context, filters *EmiFilters) ([]*EmiDetail, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role == RoleWarehouse {
		return nil, utils.ForbiddenError("not allowed to view emi records")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&EmiDetail{}).
		Joins("JOIN sales ON sales.id = emi_details.sale_id").
		Preload("Sale").Preload("Sale.Device").Preload("Payments")

	if caller.Role == RoleStore {
		dbCtx.Where("sales.store_id = ?", caller.StoreId)
	}
	if filters != nil {
		if filters.StoreId != nil {
			dbCtx.Where("sales.store_id = ?", *filters.StoreId)
		}
		if filters.ActiveOnly != nil && *filters.ActiveOnly {
			dbCtx.Where("emi_details.is_active = ?", true)
		}
		if filters.Overdue != nil && *filters.Overdue {
			dbCtx.Where("emi_details.is_active = ? AND emi_details.next_emi_date < ?", true, time.Now())
		}
	}

	var emis []*EmiDetail
	if err := dbCtx.Order("emi_details.next_emi_date asc").Find(&emis).Error; err != nil {
		return nil, err
	}
	return emis, nil
}
