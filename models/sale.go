package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sale records one device leaving a store, either as a cash sale or on an
// EMI plan. A returned sale keeps its row; the return is stamped on it and
// on the device.
type Sale struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceNumber   string          `gorm:"size:40;uniqueIndex;not null" json:"invoice_number"`
	DeviceId        int             `gorm:"index;not null" json:"device_id"`
	StoreId         int             `gorm:"index;not null" json:"store_id"`
	SoldBy          int             `gorm:"not null" json:"sold_by"`
	CustomerName    string          `gorm:"size:255;not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"size:30;not null" json:"customer_phone"`
	CustomerEmail   *string         `gorm:"size:255" json:"customer_email"`
	CustomerAddress string          `gorm:"type:text" json:"customer_address"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	OnEmi           bool            `gorm:"not null;default:false" json:"on_emi"`
	SaleDate        time.Time       `gorm:"not null" json:"sale_date"`
	ReturnDate      *time.Time      `json:"return_date"`
	ReturnReason    *string         `gorm:"type:text" json:"return_reason"`
	InvoicePdf      string          `gorm:"size:255" json:"invoice_pdf"`
	Device          *Device         `gorm:"foreignKey:DeviceId" json:"device,omitempty"`
	Store           *Store          `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	Seller          *User           `gorm:"foreignKey:SoldBy" json:"seller,omitempty"`
	EmiDetail       *EmiDetail      `gorm:"foreignKey:SaleId" json:"emi_detail,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// EmiTerms is the optional loan plan supplied at sale time.
type EmiTerms struct {
	DownPayment       decimal.Decimal `json:"down_payment"`
	EmiAmount         decimal.Decimal `json:"emi_amount" binding:"required"`
	TotalInstallments int             `json:"total_installments" binding:"required,min=1"`
	FirstEmiDate      *time.Time      `json:"first_emi_date"`
}

type NewSale struct {
	StoreId         int             `json:"store_id" binding:"required"`
	DeviceId        int             `json:"device_id" binding:"required"`
	CustomerName    string          `json:"customer_name" binding:"required"`
	CustomerPhone   string          `json:"customer_phone" binding:"required"`
	CustomerEmail   *string         `json:"customer_email"`
	CustomerAddress string          `json:"customer_address"`
	SalePrice       decimal.Decimal `json:"sale_price" binding:"required"`
	EmiTerms        *EmiTerms       `json:"emi_terms"`
}

type ReturnDeviceInput struct {
	SaleId int    `json:"sale_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type SalesConnection struct {
	Edges    []*SalesEdge `json:"edges"`
	PageInfo *PageInfo    `json:"pageInfo"`
}

type SalesEdge Edge[Sale]

func (obj Sale) GetId() int {
	return obj.ID
}

// returns decoded cursor string
func (obj Sale) GetCursor() string {
	return obj.CreatedAt.String()
}

// GenerateInvoiceNumber builds the per-store invoice number from the store
// name prefix, the sale date and a running count scoped to that store.
// Format: ABC-20060102-000042.
func GenerateInvoiceNumber(storeName string, count int, now time.Time) string {
	prefix := strings.ToUpper(storeName)
	prefix = strings.ReplaceAll(prefix, " ", "")
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, now.Format("20060102"), count)
}

func (input *NewSale) validate() error {
	if input.SalePrice.IsNegative() || input.SalePrice.IsZero() {
		return utils.ValidationError("sale price must be greater than zero")
	}
	if err := utils.ValidatePhoneNumber(input.CustomerPhone, utils.CountryCode); err != nil {
		return utils.ValidationError("invalid customer phone number")
	}
	if input.CustomerEmail != nil && *input.CustomerEmail != "" && !utils.IsValidEmail(*input.CustomerEmail) {
		return utils.ValidationError("invalid customer email")
	}
	if input.EmiTerms != nil {
		if input.EmiTerms.TotalInstallments < 1 {
			return utils.ValidationError("total installments must be at least 1")
		}
		if input.EmiTerms.EmiAmount.IsNegative() || input.EmiTerms.EmiAmount.IsZero() {
			return utils.ValidationError("emi amount must be greater than zero")
		}
		if input.EmiTerms.DownPayment.IsNegative() {
			return utils.ValidationError("down payment cannot be negative")
		}
	}
	return nil
}

// CreateSale sells an in-store device. Invoice generation, the optional
// EMI plan and the device mutation commit together or not at all. The
// store row is locked FOR UPDATE so the per-store invoice count cannot be
// claimed twice by racing sales.
func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {
	caller, err := requireAction(ctx, ActionSaleCreate)
	if err != nil {
		return nil, err
	}
	if !caller.CanActOnStore(input.StoreId) {
		return nil, utils.ForbiddenError("not allowed to sell from this store")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	store, err := utils.FetchModelForUpdate[Store](tx, input.StoreId)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("store not found")
	}
	if store.IsActive != nil && !*store.IsActive {
		tx.Rollback()
		return nil, utils.PreconditionError("store is not active")
	}

	device, err := utils.FetchModelForUpdate[Device](tx, input.DeviceId)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("device not found")
	}
	if device.Status != DeviceStatusInStore {
		tx.Rollback()
		return nil, utils.PreconditionError("device is not available for sale")
	}
	if device.StoreId == nil || *device.StoreId != input.StoreId {
		tx.Rollback()
		return nil, utils.PreconditionError("device does not belong to the selected store")
	}

	var saleCount int64
	if err := tx.Model(&Sale{}).Where("store_id = ?", input.StoreId).Count(&saleCount).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	sale := Sale{
		InvoiceNumber:   GenerateInvoiceNumber(store.Name, int(saleCount)+1, now),
		DeviceId:        device.ID,
		StoreId:         input.StoreId,
		SoldBy:          caller.UserId,
		CustomerName:    input.CustomerName,
		CustomerPhone:   input.CustomerPhone,
		CustomerEmail:   input.CustomerEmail,
		CustomerAddress: input.CustomerAddress,
		SalePrice:       input.SalePrice,
		OnEmi:           input.EmiTerms != nil,
		SaleDate:        now,
	}
	// The PDF is rendered out of band; the row only carries the artifact key.
	sale.InvoicePdf = fmt.Sprintf("invoices/%s.pdf", sale.InvoiceNumber)

	if err := tx.Create(&sale).Error; err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("duplicate invoice number, please retry")
		}
		return nil, err
	}

	if input.EmiTerms != nil {
		firstDue := now.AddDate(0, 1, 0)
		if input.EmiTerms.FirstEmiDate != nil {
			firstDue = *input.EmiTerms.FirstEmiDate
		}
		emi := EmiDetail{
			SaleId:            sale.ID,
			DownPayment:       input.EmiTerms.DownPayment,
			EmiAmount:         input.EmiTerms.EmiAmount,
			TotalInstallments: input.EmiTerms.TotalInstallments,
			InstallmentsPaid:  0,
			NextEmiDate:       &firstDue,
			IsActive:          true,
		}
		if err := tx.Create(&emi).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		sale.EmiDetail = &emi
	}

	if err := tx.Model(device).Updates(map[string]interface{}{
		"status":  DeviceStatusSold,
		"on_loan": input.EmiTerms != nil,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := logDeviceAction(tx, device.ID, DeviceActionSold,
		fmt.Sprintf("Device sold to %s (Invoice %s)", input.CustomerName, sale.InvoiceNumber),
		caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"sale_id":        sale.ID,
		"invoice_number": sale.InvoiceNumber,
		"store_id":       sale.StoreId,
		"on_emi":         sale.OnEmi,
	}).Info("sale created")

	return &sale, nil
}

// ReturnDevice takes a sold device back. A device under an active loan
// with unpaid installments cannot be returned; the loan must be settled or
// administratively closed first.
func ReturnDevice(ctx context.Context, input *ReturnDeviceInput) (*Sale, error) {
	caller, err := requireAction(ctx, ActionSaleReturn)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	sale, err := utils.FetchModelForUpdate[Sale](tx, input.SaleId)
	if err != nil {
		tx.Rollback()
		return nil, utils.NotFoundError("sale not found")
	}
	if !caller.CanActOnStore(sale.StoreId) {
		tx.Rollback()
		return nil, utils.ForbiddenError("not allowed to process returns for this store")
	}
	if sale.ReturnDate != nil {
		tx.Rollback()
		return nil, utils.PreconditionError("sale has already been returned")
	}

	device, err := utils.FetchModelForUpdate[Device](tx, sale.DeviceId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if device.Status != DeviceStatusSold {
		tx.Rollback()
		return nil, utils.PreconditionError("device is not in sold status")
	}

	var emi EmiDetail
	hasEmi := false
	if sale.OnEmi {
		err := tx.Where("sale_id = ?", sale.ID).First(&emi).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			tx.Rollback()
			return nil, err
		}
		if err == nil {
			hasEmi = true
			if emi.InstallmentsPaid < emi.TotalInstallments {
				tx.Rollback()
				return nil, utils.PreconditionError("cannot return device with pending EMI payments")
			}
		}
	}

	now := time.Now()
	if err := tx.Model(sale).Updates(map[string]interface{}{
		"return_date":   now,
		"return_reason": input.Reason,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	sale.ReturnDate = &now
	sale.ReturnReason = &input.Reason

	if err := tx.Model(device).Updates(map[string]interface{}{
		"status":  DeviceStatusReturned,
		"on_loan": false,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if hasEmi && emi.IsActive {
		if err := tx.Model(&emi).Update("is_active", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := logDeviceAction(tx, device.ID, DeviceActionReturned,
		fmt.Sprintf("Device returned: %s (Invoice %s)", input.Reason, sale.InvoiceNumber),
		caller.UserId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return sale, nil
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sale, err := utils.FetchModel[Sale](ctx, id, "Device", "Store", "Seller", "EmiDetail", "EmiDetail.Payments")
	if err != nil {
		return nil, utils.NotFoundError("sale not found")
	}
	if caller.Role == RoleStore && sale.StoreId != caller.StoreId {
		return nil, utils.ForbiddenError("not allowed to view this sale")
	}
	if caller.Role == RoleWarehouse {
		return nil, utils.ForbiddenError("not allowed to view sales")
	}
	if sale.Seller != nil {
		sale.Seller.PrepareGive()
	}
	return sale, nil
}

type SaleFilters struct {
	StoreId  *int
	OnEmi    *bool
	Returned *bool
	FromDate *time.Time
	ToDate   *time.Time
}

func PaginateSales(ctx context.Context, limit *int, after *string, filters *SaleFilters) (*SalesConnection, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Sale{}).Preload("Device").Preload("EmiDetail")

	switch caller.Role {
	case RoleStore:
		dbCtx.Where("store_id = ?", caller.StoreId)
	case RoleWarehouse:
		return nil, utils.ForbiddenError("not allowed to view sales")
	}

	if filters != nil {
		if filters.StoreId != nil {
			dbCtx.Where("store_id = ?", *filters.StoreId)
		}
		if filters.OnEmi != nil {
			dbCtx.Where("on_emi = ?", *filters.OnEmi)
		}
		if filters.Returned != nil {
			if *filters.Returned {
				dbCtx.Where("return_date IS NOT NULL")
			} else {
				dbCtx.Where("return_date IS NULL")
			}
		}
		if filters.FromDate != nil {
			dbCtx.Where("sale_date >= ?", *filters.FromDate)
		}
		if filters.ToDate != nil {
			dbCtx.Where("sale_date <= ?", *filters.ToDate)
		}
	}

	pageLimit := config.SearchLimit
	if limit != nil && *limit > 0 {
		pageLimit = *limit
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Sale](dbCtx, pageLimit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection SalesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		salesEdge := SalesEdge(edge)
		connection.Edges = append(connection.Edges, &salesEdge)
	}
	return &connection, nil
}
