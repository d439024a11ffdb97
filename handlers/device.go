package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
)

func pathId(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, utils.ValidationError("invalid id")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) *int {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryString(c *gin.Context, name string) *string {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	return &v
}

func queryBool(c *gin.Context, name string) *bool {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func pageParams(c *gin.Context) (*int, *string) {
	limit := queryInt(c, "limit")
	after := queryString(c, "after")
	return limit, after
}

func createDevice(c *gin.Context) {
	var input models.NewDevice
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	device, err := models.CreateDevice(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, device)
}

func updateDevice(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var input models.UpdateDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	device, err := models.UpdateDevice(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, device)
}

func deleteDevice(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	device, err := models.DeleteDevice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, device)
}

func getDevice(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	device, err := models.GetDevice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, device)
}

func listDevices(c *gin.Context) {
	filters := models.DeviceFilters{
		WarehouseId: queryInt(c, "warehouse_id"),
		StoreId:     queryInt(c, "store_id"),
		Model:       queryString(c, "model"),
		Imei:        queryString(c, "imei"),
		DeviceId:    queryString(c, "device_id"),
	}
	if s := c.Query("status"); s != "" {
		status := models.DeviceStatus(s)
		if !status.IsValid() {
			respondError(c, utils.ValidationError("invalid device status"))
			return
		}
		filters.Status = &status
	}
	limit, after := pageParams(c)
	connection, err := models.PaginateDevices(c.Request.Context(), limit, after, &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, connection)
}

func deviceSummary(c *gin.Context) {
	summary, err := models.GetDeviceSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

func deviceLogs(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := models.ListDeviceLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, logs)
}

func recordQcCheck(c *gin.Context) {
	var input models.NewQcCheck
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	check, err := models.RecordQcCheck(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, check)
}

func listQcChecks(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	checks, err := models.ListQcChecks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, checks)
}
