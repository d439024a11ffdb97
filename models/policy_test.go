package models_test

import (
	"context"
	"testing"

	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
)

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role   models.Role
		action models.Action
		want   bool
	}{
		{models.RoleSuperAdmin, models.ActionUserManage, true},
		{models.RoleSuperAdmin, models.ActionEmiClose, true},
		{models.RoleAdmin, models.ActionTransferCreate, true},
		{models.RoleAdmin, models.ActionSaleCreate, true},
		{models.RoleWarehouse, models.ActionTransferCreate, true},
		{models.RoleWarehouse, models.ActionTransferCancel, true},
		{models.RoleWarehouse, models.ActionSaleCreate, false},
		{models.RoleWarehouse, models.ActionTransferReceive, false},
		{models.RoleWarehouse, models.ActionUserManage, false},
		{models.RoleStore, models.ActionTransferReceive, true},
		{models.RoleStore, models.ActionSaleCreate, true},
		{models.RoleStore, models.ActionSaleReturn, true},
		{models.RoleStore, models.ActionTransferCreate, false},
		{models.RoleStore, models.ActionDeviceCreate, false},
		{models.RoleStore, models.ActionEmiClose, false},
		{models.RoleCustomer, models.ActionSaleCreate, false},
		{models.RoleCustomer, models.ActionReportView, false},
	}

	for _, tc := range cases {
		caller := models.Caller{Role: tc.role}
		if got := caller.Can(tc.action); got != tc.want {
			t.Errorf("%s / %s: got %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestScopePredicates(t *testing.T) {
	warehouseCaller := models.Caller{Role: models.RoleWarehouse, WarehouseId: 7}
	if !warehouseCaller.CanActOnWarehouse(7) {
		t.Fatalf("warehouse caller should act on its own warehouse")
	}
	if warehouseCaller.CanActOnWarehouse(8) {
		t.Fatalf("warehouse caller must not act on another warehouse")
	}
	if warehouseCaller.CanActOnStore(1) {
		t.Fatalf("warehouse caller must not act on stores")
	}

	storeCaller := models.Caller{Role: models.RoleStore, StoreId: 3}
	if !storeCaller.CanActOnStore(3) {
		t.Fatalf("store caller should act on its own store")
	}
	if storeCaller.CanActOnStore(4) {
		t.Fatalf("store caller must not act on another store")
	}

	admin := models.Caller{Role: models.RoleAdmin}
	if !admin.CanActOnWarehouse(99) || !admin.CanActOnStore(99) {
		t.Fatalf("admin scope is global")
	}
}

func TestCanViewDevice(t *testing.T) {
	warehouseId := 7
	storeId := 3
	atWarehouse := &models.Device{WarehouseId: &warehouseId}
	atStore := &models.Device{StoreId: &storeId}

	warehouseCaller := models.Caller{Role: models.RoleWarehouse, WarehouseId: 7}
	if !warehouseCaller.CanViewDevice(atWarehouse) {
		t.Fatalf("warehouse caller should see devices in its warehouse")
	}
	if warehouseCaller.CanViewDevice(atStore) {
		t.Fatalf("warehouse caller must not see devices at stores")
	}

	storeCaller := models.Caller{Role: models.RoleStore, StoreId: 3}
	if !storeCaller.CanViewDevice(atStore) {
		t.Fatalf("store caller should see devices at its store")
	}
	if storeCaller.CanViewDevice(atWarehouse) {
		t.Fatalf("store caller must not see warehouse stock")
	}

	customer := models.Caller{Role: models.RoleCustomer}
	if customer.CanViewDevice(atStore) || customer.CanViewDevice(atWarehouse) {
		t.Fatalf("customer role has no inventory visibility")
	}
}

func TestCallerFromContextRejectsUnknownRole(t *testing.T) {
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	ctx = utils.SetUserRoleInContext(ctx, "janitor")

	if _, err := models.CallerFromContext(ctx); err == nil {
		t.Fatalf("expected an error for an unknown role")
	}
}
