package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models"
)

func createSale(c *gin.Context) {
	var input models.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	sale, err := models.CreateSale(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, sale)
}

func returnDevice(c *gin.Context) {
	var input models.ReturnDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	sale, err := models.ReturnDevice(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sale)
}

func getSale(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	sale, err := models.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sale)
}

func queryDate(c *gin.Context, name string) *time.Time {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}

func listSales(c *gin.Context) {
	filters := models.SaleFilters{
		StoreId:  queryInt(c, "store_id"),
		OnEmi:    queryBool(c, "on_emi"),
		Returned: queryBool(c, "returned"),
		FromDate: queryDate(c, "from_date"),
		ToDate:   queryDate(c, "to_date"),
	}
	limit, after := pageParams(c)
	connection, err := models.PaginateSales(c.Request.Context(), limit, after, &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, connection)
}

func recordEmiPayment(c *gin.Context) {
	var input models.NewEmiPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	emi, err := models.RecordEmiPayment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, emi)
}

func closeEmi(c *gin.Context) {
	var input models.CloseEmiInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	emi, err := models.CloseEmi(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, emi)
}

func getEmiDetail(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		respondError(c, err)
		return
	}
	emi, err := models.GetEmiDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, emi)
}

func listEmiDetails(c *gin.Context) {
	filters := models.EmiFilters{
		StoreId:    queryInt(c, "store_id"),
		ActiveOnly: queryBool(c, "active"),
		Overdue:    queryBool(c, "overdue"),
	}
	emis, err := models.ListEmiDetails(c.Request.Context(), &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, emis)
}
