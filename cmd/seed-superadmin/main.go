// seed-superadmin creates or resets the bootstrap superadmin account and
// prints the generated password exactly once. Every other account is
// provisioned through the API by an authenticated admin; this tool only
// solves the first-login problem on a fresh database.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-superadmin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
	"gorm.io/gorm"
)

func main() {
	username := flag.String("username", "superadmin", "username of the bootstrap account")
	name := flag.String("name", "Super Admin", "display name of the bootstrap account")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	plainPassword, err := utils.GeneratePassword(12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate password: %v\n", err)
		os.Exit(1)
	}
	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	cleanUsername := strings.TrimSpace(*username)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", cleanUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Username:   cleanUsername,
			Name:       *name,
			Password:   string(hashed),
			Role:       models.RoleSuperAdmin,
			IsActive:   utils.NewTrue(),
			FirstLogin: true,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create superadmin: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created superadmin: username=%q password=%q (shown once, change on first login)\n", cleanUsername, plainPassword)
		return
	}

	// Reset the existing account: fresh password, active, forced re-login.
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", cleanUsername).Updates(map[string]any{
		"password":    string(hashed),
		"name":        *name,
		"role":        models.RoleSuperAdmin,
		"is_active":   utils.NewTrue(),
		"first_login": true,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update superadmin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reset superadmin: username=%q password=%q (shown once, change on first login)\n", cleanUsername, plainPassword)
}
