package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
)

func createTransfer(c *gin.Context) {
	var input models.NewTransfer
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	transfer, err := models.CreateTransfer(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, transfer)
}

func markTransferInTransit(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	transfer, err := models.MarkTransferInTransit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, transfer)
}

func receiveTransfer(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	transfer, err := models.ReceiveTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, transfer)
}

func cancelTransfer(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	transfer, err := models.CancelTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, transfer)
}

func getTransfer(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	transfer, err := models.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, transfer)
}

func listTransfers(c *gin.Context) {
	filters := models.TransferFilters{
		WarehouseId: queryInt(c, "warehouse_id"),
		StoreId:     queryInt(c, "store_id"),
	}
	if s := c.Query("status"); s != "" {
		status := models.TransferStatus(s)
		if !status.IsValid() {
			respondError(c, utils.ValidationError("invalid transfer status"))
			return
		}
		filters.Status = &status
	}
	limit, after := pageParams(c)
	connection, err := models.PaginateTransfers(c.Request.Context(), limit, after, &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, connection)
}
