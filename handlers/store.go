package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
)

func createStore(c *gin.Context) {
	var input models.NewStore
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	store, err := models.CreateStore(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, store)
}

func updateStore(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var input models.UpdateStoreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	store, err := models.UpdateStore(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func toggleStoreStatus(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	store, err := models.ToggleStoreStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func deleteStore(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := models.DeleteStore(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getStore(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	store, err := models.GetStore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func listStores(c *gin.Context) {
	stores, err := models.ListStores(c.Request.Context(), queryInt(c, "warehouse_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stores)
}

func storeStats(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := models.GetStoreStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
