package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
)

func createUser(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	credentials, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	// one-shot: the plain password appears only in this response
	respondCreated(c, credentials)
}

func resetPassword(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	credentials, err := models.ResetPassword(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, credentials)
}

func toggleUserStatus(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := models.ToggleUserStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func getUser(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := models.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

func listUsers(c *gin.Context) {
	filters := models.UserFilters{
		WarehouseId: queryInt(c, "warehouse_id"),
		StoreId:     queryInt(c, "store_id"),
	}
	if r := c.Query("role"); r != "" {
		role := models.Role(r)
		filters.Role = &role
	}
	users, err := models.ListUsers(c.Request.Context(), &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, users)
}
