package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phonelink/devices_backend/models/reports"
)

func inventoryReport(c *gin.Context) {
	rows, err := reports.GetInventoryReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

func salesByStoreReport(c *gin.Context) {
	toDate := time.Now()
	fromDate := toDate.AddDate(0, -1, 0)
	if d := queryDate(c, "from_date"); d != nil {
		fromDate = *d
	}
	if d := queryDate(c, "to_date"); d != nil {
		toDate = *d
	}
	rows, err := reports.GetSalesByStoreReport(c.Request.Context(), fromDate, toDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

func emiDueReport(c *gin.Context) {
	rows, err := reports.GetEmiDueReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

func exportXlsx(c *gin.Context, filename string, export func(*gin.Context) error) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := export(c); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func exportInventoryReport(c *gin.Context) {
	exportXlsx(c, "inventory.xlsx", func(c *gin.Context) error {
		return reports.ExportInventoryReportExcel(c.Request.Context(), c.Writer)
	})
}

func exportEmiDueReport(c *gin.Context) {
	exportXlsx(c, "emi_due.xlsx", func(c *gin.Context) error {
		return reports.ExportEmiDueReportExcel(c.Request.Context(), c.Writer)
	})
}
