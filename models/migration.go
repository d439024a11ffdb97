package models

import (
	"log"

	"github.com/phonelink/devices_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Warehouse{}, &Store{}, &User{},
		&Device{}, &DeviceLog{}, &QcCheck{},
		&Transfer{}, &TransferItem{},
		&Sale{}, &EmiDetail{}, &EmiPayment{},
		&DemandRequest{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
