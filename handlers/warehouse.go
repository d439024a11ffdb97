package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
)

func createWarehouse(c *gin.Context) {
	var input models.NewWarehouse
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, warehouse)
}

func updateWarehouse(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var input models.UpdateWarehouseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, warehouse)
}

func toggleWarehouseStatus(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	warehouse, err := models.ToggleWarehouseStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, warehouse)
}

func deleteWarehouse(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := models.DeleteWarehouse(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getWarehouse(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	warehouse, err := models.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, warehouse)
}

func listWarehouses(c *gin.Context) {
	warehouses, err := models.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, warehouses)
}

func warehouseStats(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := models.GetWarehouseStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
