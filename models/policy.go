package models

import (
	"context"

	"github.com/phonelink/devices_backend/utils"
)

// Role is the closed set of caller roles. Adding a role means extending the
// policy table below; there are no string comparisons scattered elsewhere.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleWarehouse  Role = "warehouse"
	RoleStore      Role = "store"
	RoleCustomer   Role = "customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleWarehouse, RoleStore, RoleCustomer:
		return true
	}
	return false
}

// Action names every mutation the policy table gates.
type Action string

const (
	ActionDeviceCreate    Action = "device.create"
	ActionDeviceUpdate    Action = "device.update"
	ActionDeviceDelete    Action = "device.delete"
	ActionTransferCreate  Action = "transfer.create"
	ActionTransferTransit Action = "transfer.transit"
	ActionTransferReceive Action = "transfer.receive"
	ActionTransferCancel  Action = "transfer.cancel"
	ActionSaleCreate      Action = "sale.create"
	ActionSaleReturn      Action = "sale.return"
	ActionEmiPayment      Action = "emi.payment"
	ActionEmiClose        Action = "emi.close"
	ActionQcRecord        Action = "qc.record"
	ActionDemandCreate    Action = "demand.create"
	ActionDemandProcess   Action = "demand.process"
	ActionUserManage      Action = "user.manage"
	ActionWarehouseManage Action = "warehouse.manage"
	ActionStoreManage     Action = "store.manage"
	ActionReportView      Action = "report.view"
)

// Caller is the authenticated identity every operation receives through
// context. WarehouseId/StoreId are zero unless the role is scoped.
type Caller struct {
	UserId      int
	Name        string
	Role        Role
	WarehouseId int
	StoreId     int
}

func CallerFromContext(ctx context.Context) (Caller, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return Caller{}, utils.ForbiddenError("user identity is required")
	}
	roleStr, ok := utils.GetUserRoleFromContext(ctx)
	if !ok {
		return Caller{}, utils.ForbiddenError("user role is required")
	}
	role := Role(roleStr)
	if !role.IsValid() {
		return Caller{}, utils.ForbiddenError("unknown role")
	}
	caller := Caller{UserId: userId, Role: role}
	if name, ok := utils.GetUserNameFromContext(ctx); ok {
		caller.Name = name
	}
	if warehouseId, ok := utils.GetWarehouseIdFromContext(ctx); ok {
		caller.WarehouseId = warehouseId
	}
	if storeId, ok := utils.GetStoreIdFromContext(ctx); ok {
		caller.StoreId = storeId
	}
	return caller, nil
}

// policyTable is the single source of role capabilities. Scope checks
// (warehouse/store ownership) are layered on top via CanActOnWarehouse and
// CanActOnStore; this table only answers "may this role ever do this".
var policyTable = map[Role]map[Action]bool{
	RoleSuperAdmin: allActions(),
	RoleAdmin:      allActions(),
	RoleWarehouse: {
		ActionDeviceCreate:    true,
		ActionDeviceUpdate:    true,
		ActionTransferCreate:  true,
		ActionTransferTransit: true,
		ActionTransferCancel:  true,
		ActionQcRecord:        true,
		ActionDemandProcess:   true,
		ActionReportView:      true,
	},
	RoleStore: {
		ActionTransferReceive: true,
		ActionSaleCreate:      true,
		ActionSaleReturn:      true,
		ActionEmiPayment:      true,
		ActionQcRecord:        true,
		ActionDemandCreate:    true,
		ActionReportView:      true,
	},
	RoleCustomer: {},
}

func allActions() map[Action]bool {
	return map[Action]bool{
		ActionDeviceCreate:    true,
		ActionDeviceUpdate:    true,
		ActionDeviceDelete:    true,
		ActionTransferCreate:  true,
		ActionTransferTransit: true,
		ActionTransferReceive: true,
		ActionTransferCancel:  true,
		ActionSaleCreate:      true,
		ActionSaleReturn:      true,
		ActionEmiPayment:      true,
		ActionEmiClose:        true,
		ActionQcRecord:        true,
		ActionDemandCreate:    true,
		ActionDemandProcess:   true,
		ActionUserManage:      true,
		ActionWarehouseManage: true,
		ActionStoreManage:     true,
		ActionReportView:      true,
	}
}

// Can answers whether the caller's role permits the action at all.
func (c Caller) Can(action Action) bool {
	actions, ok := policyTable[c.Role]
	if !ok {
		return false
	}
	return actions[action]
}

// CanActOnWarehouse layers the ownership scope: a warehouse-scoped caller
// may only touch its own warehouse.
func (c Caller) CanActOnWarehouse(warehouseId int) bool {
	switch c.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleWarehouse:
		return c.WarehouseId == warehouseId
	}
	return false
}

// CanActOnStore layers the ownership scope: a store-scoped caller may only
// touch its own store.
func (c Caller) CanActOnStore(storeId int) bool {
	switch c.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleStore:
		return c.StoreId == storeId
	}
	return false
}

// CanViewDevice applies the read-side visibility filter shared by device,
// log and QC reads.
func (c Caller) CanViewDevice(device *Device) bool {
	switch c.Role {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleWarehouse:
		return device.WarehouseId != nil && *device.WarehouseId == c.WarehouseId
	case RoleStore:
		return device.StoreId != nil && *device.StoreId == c.StoreId
	}
	return false
}

// requireAction is the uniform gate every mutating operation calls first.
func requireAction(ctx context.Context, action Action) (Caller, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return Caller{}, err
	}
	if !caller.Can(action) {
		return Caller{}, utils.ForbiddenError("not allowed to perform " + string(action))
	}
	return caller, nil
}
