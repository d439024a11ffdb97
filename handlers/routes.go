package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/middlewares"
)

// RegisterRoutes wires the REST surface. Role checks live in the models
// layer; the route table only separates public from authenticated.
func RegisterRoutes(r *gin.Engine) {
	r.POST("/api/login", login)

	api := r.Group("/api", middlewares.RequireAuth())
	{
		api.POST("/logout", logout)
		api.POST("/change-password", changePassword)

		api.POST("/devices", createDevice)
		api.GET("/devices", listDevices)
		api.GET("/devices/summary", deviceSummary)
		api.GET("/devices/:id", getDevice)
		api.PUT("/devices/:id", updateDevice)
		api.DELETE("/devices/:id", deleteDevice)
		api.GET("/devices/:id/logs", deviceLogs)
		api.GET("/devices/:id/qc-checks", listQcChecks)
		api.POST("/qc-checks", recordQcCheck)

		api.POST("/transfers", createTransfer)
		api.GET("/transfers", listTransfers)
		api.GET("/transfers/:id", getTransfer)
		api.POST("/transfers/:id/in-transit", markTransferInTransit)
		api.POST("/transfers/:id/receive", receiveTransfer)
		api.POST("/transfers/:id/cancel", cancelTransfer)

		api.POST("/sales", createSale)
		api.GET("/sales", listSales)
		api.GET("/sales/:id", getSale)
		api.POST("/sales/return", returnDevice)

		api.GET("/emis", listEmiDetails)
		api.GET("/emis/:id", getEmiDetail)
		api.POST("/emis/payments", recordEmiPayment)
		api.POST("/emis/close", closeEmi)

		api.POST("/warehouses", createWarehouse)
		api.GET("/warehouses", listWarehouses)
		api.GET("/warehouses/:id", getWarehouse)
		api.PUT("/warehouses/:id", updateWarehouse)
		api.POST("/warehouses/:id/toggle-status", toggleWarehouseStatus)
		api.DELETE("/warehouses/:id", deleteWarehouse)
		api.GET("/warehouses/:id/stats", warehouseStats)

		api.POST("/stores", createStore)
		api.GET("/stores", listStores)
		api.GET("/stores/:id", getStore)
		api.PUT("/stores/:id", updateStore)
		api.POST("/stores/:id/toggle-status", toggleStoreStatus)
		api.DELETE("/stores/:id", deleteStore)
		api.GET("/stores/:id/stats", storeStats)

		api.POST("/users", createUser)
		api.GET("/users", listUsers)
		api.GET("/users/:id", getUser)
		api.POST("/users/:id/reset-password", resetPassword)
		api.POST("/users/:id/toggle-status", toggleUserStatus)

		api.POST("/demand-requests", createDemandRequest)
		api.GET("/demand-requests", listDemandRequests)
		api.GET("/demand-requests/:id", getDemandRequest)
		api.POST("/demand-requests/:id/process", processDemandRequest)

		api.GET("/reports/inventory", inventoryReport)
		api.GET("/reports/inventory/export", exportInventoryReport)
		api.GET("/reports/sales-by-store", salesByStoreReport)
		api.GET("/reports/emi-due", emiDueReport)
		api.GET("/reports/emi-due/export", exportEmiDueReport)
	}
}
