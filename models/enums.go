package models

// DeviceStatus is the lifecycle state of a physical unit. Status and
// location columns move together: in_warehouse/transferred carry a
// warehouse_id, in_store/sold/returned carry a store_id.
type DeviceStatus string

const (
	DeviceStatusInWarehouse DeviceStatus = "in_warehouse"
	DeviceStatusTransferred DeviceStatus = "transferred"
	DeviceStatusInStore     DeviceStatus = "in_store"
	DeviceStatusSold        DeviceStatus = "sold"
	DeviceStatusReturned    DeviceStatus = "returned"
)

func (s DeviceStatus) IsValid() bool {
	switch s {
	case DeviceStatusInWarehouse, DeviceStatusTransferred, DeviceStatusInStore,
		DeviceStatusSold, DeviceStatusReturned:
		return true
	}
	return false
}

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusReceived  TransferStatus = "received"
	TransferStatusCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusInTransit, TransferStatusReceived, TransferStatusCancelled:
		return true
	}
	return false
}

// isOpen reports whether the batch can still be received or cancelled.
func (s TransferStatus) isOpen() bool {
	return s == TransferStatusPending || s == TransferStatusInTransit
}

type DemandStatus string

const (
	DemandStatusPending   DemandStatus = "pending"
	DemandStatusApproved  DemandStatus = "approved"
	DemandStatusRejected  DemandStatus = "rejected"
	DemandStatusFulfilled DemandStatus = "fulfilled"
)

func (s DemandStatus) IsValid() bool {
	switch s {
	case DemandStatusPending, DemandStatusApproved, DemandStatusRejected, DemandStatusFulfilled:
		return true
	}
	return false
}

// Device log action tags. Append-only; one entry per state-changing call.
const (
	DeviceActionCreated       = "created"
	DeviceActionTransferred   = "transferred"
	DeviceActionReceived      = "received"
	DeviceActionSold          = "sold"
	DeviceActionReturned      = "returned"
	DeviceActionStatusChanged = "status_changed"
	DeviceActionQcCheck       = "qc_check"
)
