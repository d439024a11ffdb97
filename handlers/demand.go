package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
)

func createDemandRequest(c *gin.Context) {
	var input models.NewDemandRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	request, err := models.CreateDemandRequest(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, request)
}

func processDemandRequest(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var input models.ProcessDemandInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	request, err := models.ProcessDemandRequest(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, request)
}

func getDemandRequest(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	request, err := models.GetDemandRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, request)
}

func listDemandRequests(c *gin.Context) {
	filters := models.DemandFilters{
		StoreId:     queryInt(c, "store_id"),
		WarehouseId: queryInt(c, "warehouse_id"),
	}
	if s := c.Query("status"); s != "" {
		status := models.DemandStatus(s)
		filters.Status = &status
	}
	requests, err := models.ListDemandRequests(c.Request.Context(), &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, requests)
}
