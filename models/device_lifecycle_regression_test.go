package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phonelink/devices_backend/config"
	"github.com/phonelink/devices_backend/models"
	"github.com/phonelink/devices_backend/utils"
	"github.com/shopspring/decimal"
)

func TestDeviceLifecycleWarehouseToSaleAndReturn(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "devices_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	ctx = seedAdminCaller(t, ctx)

	// Credential check fails closed: any mismatch is invalid credentials.
	if _, err := models.Login(ctx, "seed.admin", "not-the-password"); err == nil {
		t.Fatalf("expected login rejection for a wrong password")
	}

	// 1) Warehouse, store, and three devices in stock.
	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Central Depot", Location: "Pune"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Galaxy Plaza", WarehouseId: warehouse.ID})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	var devices []*models.Device
	for i := 0; i < 3; i++ {
		device, err := models.CreateDevice(ctx, &models.NewDevice{
			Name:        "Pixel 9",
			Model:       "Pixel 9 128GB",
			Imei1:       fmt.Sprintf("35891000000010%d", i),
			WarehouseId: warehouse.ID,
		})
		if err != nil {
			t.Fatalf("CreateDevice(%d): %v", i, err)
		}
		if device.Status != models.DeviceStatusInWarehouse {
			t.Fatalf("expected new device in_warehouse; got %s", device.Status)
		}
		if device.WarehouseId == nil || *device.WarehouseId != warehouse.ID || device.StoreId != nil {
			t.Fatalf("new device location mismatch: %+v", device)
		}
		devices = append(devices, device)
	}

	// 2) Batch transfer to the store.
	transfer, err := models.CreateTransfer(ctx, &models.NewTransfer{
		WarehouseId: warehouse.ID,
		StoreId:     store.ID,
		DeviceIds:   []int{devices[0].ID, devices[1].ID, devices[2].ID},
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if transfer.Status != models.TransferStatusPending {
		t.Fatalf("expected pending transfer; got %s", transfer.Status)
	}
	for _, device := range devices {
		reloaded := reloadDevice(t, ctx, device.ID)
		if reloaded.Status != models.DeviceStatusTransferred {
			t.Fatalf("device %d: expected transferred; got %s", device.ID, reloaded.Status)
		}
	}

	// A device already in a batch cannot go into a second one.
	if _, err := models.CreateTransfer(ctx, &models.NewTransfer{
		WarehouseId: warehouse.ID,
		StoreId:     store.ID,
		DeviceIds:   []int{devices[0].ID},
	}); err == nil {
		t.Fatalf("expected rejection when transferring an already-transferred device")
	}

	// 3) Transit and receipt.
	if _, err := models.MarkTransferInTransit(ctx, transfer.ID); err != nil {
		t.Fatalf("MarkTransferInTransit: %v", err)
	}
	received, err := models.ReceiveTransfer(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("ReceiveTransfer: %v", err)
	}
	if received.Status != models.TransferStatusReceived {
		t.Fatalf("expected received transfer; got %s", received.Status)
	}
	for _, device := range devices {
		reloaded := reloadDevice(t, ctx, device.ID)
		if reloaded.Status != models.DeviceStatusInStore {
			t.Fatalf("device %d: expected in_store after receipt; got %s", device.ID, reloaded.Status)
		}
		if reloaded.StoreId == nil || *reloaded.StoreId != store.ID || reloaded.WarehouseId != nil {
			t.Fatalf("device %d: location mismatch after receipt: %+v", device.ID, reloaded)
		}
	}

	// A received batch cannot be cancelled.
	if _, err := models.CancelTransfer(ctx, transfer.ID); err == nil {
		t.Fatalf("expected rejection when cancelling a received transfer")
	}

	// 4) Cancel round-trip: a fourth device goes out and comes straight back.
	secondImei := "358910000000299"
	extra, err := models.CreateDevice(ctx, &models.NewDevice{
		Name:        "Pixel 9",
		Model:       "Pixel 9 256GB",
		Imei1:       "358910000000199",
		Imei2:       &secondImei,
		WarehouseId: warehouse.ID,
	})
	if err != nil {
		t.Fatalf("CreateDevice(extra): %v", err)
	}

	// IMEIs are unique across both slots: a new primary IMEI colliding with
	// an existing secondary one is rejected.
	if _, err := models.CreateDevice(ctx, &models.NewDevice{
		Name:        "Pixel 9",
		Model:       "Pixel 9 256GB",
		Imei1:       secondImei,
		WarehouseId: warehouse.ID,
	}); err == nil {
		t.Fatalf("expected rejection when imei_1 duplicates another device's imei_2")
	}
	roundTrip, err := models.CreateTransfer(ctx, &models.NewTransfer{
		WarehouseId: warehouse.ID,
		StoreId:     store.ID,
		DeviceIds:   []int{extra.ID},
	})
	if err != nil {
		t.Fatalf("CreateTransfer(round trip): %v", err)
	}
	if _, err := models.CancelTransfer(ctx, roundTrip.ID); err != nil {
		t.Fatalf("CancelTransfer: %v", err)
	}
	extraReloaded := reloadDevice(t, ctx, extra.ID)
	if extraReloaded.Status != models.DeviceStatusInWarehouse {
		t.Fatalf("expected cancelled device back in_warehouse; got %s", extraReloaded.Status)
	}
	if extraReloaded.WarehouseId == nil || *extraReloaded.WarehouseId != warehouse.ID || extraReloaded.StoreId != nil {
		t.Fatalf("cancelled device location mismatch: %+v", extraReloaded)
	}

	// 5) Sell the first device on a two-installment plan.
	sale, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		DeviceId:      devices[0].ID,
		CustomerName:  "Asha Verma",
		CustomerPhone: "9876543210",
		SalePrice:     decimal.NewFromInt(54999),
		EmiTerms: &models.EmiTerms{
			DownPayment:       decimal.NewFromInt(10000),
			EmiAmount:         decimal.NewFromInt(22500),
			TotalInstallments: 2,
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !regexp.MustCompile(`^GAL-\d{8}-000001$`).MatchString(sale.InvoiceNumber) {
		t.Fatalf("unexpected invoice number: %q", sale.InvoiceNumber)
	}
	if sale.EmiDetail == nil || !sale.EmiDetail.IsActive {
		t.Fatalf("expected an active emi plan on the sale")
	}
	soldDevice := reloadDevice(t, ctx, devices[0].ID)
	if soldDevice.Status != models.DeviceStatusSold || !soldDevice.OnLoan {
		t.Fatalf("expected sold device on loan; got status=%s on_loan=%v", soldDevice.Status, soldDevice.OnLoan)
	}

	// Selling the same device twice must fail and leave a single sale row.
	if _, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		DeviceId:      devices[0].ID,
		CustomerName:  "Asha Verma",
		CustomerPhone: "9876543210",
		SalePrice:     decimal.NewFromInt(54999),
	}); err == nil {
		t.Fatalf("expected rejection when selling a sold device")
	}
	var saleCount int64
	if err := db.WithContext(ctx).Model(&models.Sale{}).Where("device_id = ?", devices[0].ID).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if saleCount != 1 {
		t.Fatalf("expected exactly one sale row; got %d", saleCount)
	}

	// 6) Return is blocked while installments are outstanding.
	if _, err := models.ReturnDevice(ctx, &models.ReturnDeviceInput{SaleId: sale.ID, Reason: "buyer remorse"}); err == nil {
		t.Fatalf("expected rejection when returning a device with pending installments")
	}

	// 7) Pay the plan down; completion closes it and takes the device off loan.
	for i := 0; i < 2; i++ {
		emi, err := models.RecordEmiPayment(ctx, &models.NewEmiPayment{
			EmiDetailId:   sale.EmiDetail.ID,
			Amount:        decimal.NewFromInt(22500),
			PaymentMethod: "cash",
		})
		if err != nil {
			t.Fatalf("RecordEmiPayment(%d): %v", i+1, err)
		}
		if i == 0 {
			if !emi.IsActive || emi.NextEmiDate == nil {
				t.Fatalf("expected plan still active with a next due date after payment 1: %+v", emi)
			}
		} else {
			if emi.IsActive || emi.NextEmiDate != nil {
				t.Fatalf("expected plan closed after final payment: %+v", emi)
			}
		}
	}
	settledDevice := reloadDevice(t, ctx, devices[0].ID)
	if settledDevice.OnLoan {
		t.Fatalf("expected device off loan after final installment")
	}
	assertDeviceLogContains(t, ctx, devices[0].ID, "EMI completed")

	// Paying a closed plan must fail.
	if _, err := models.RecordEmiPayment(ctx, &models.NewEmiPayment{
		EmiDetailId:   sale.EmiDetail.ID,
		Amount:        decimal.NewFromInt(22500),
		PaymentMethod: "cash",
	}); err == nil {
		t.Fatalf("expected rejection when paying a closed plan")
	}

	// 8) Return now goes through.
	returnedSale, err := models.ReturnDevice(ctx, &models.ReturnDeviceInput{SaleId: sale.ID, Reason: "display defect"})
	if err != nil {
		t.Fatalf("ReturnDevice: %v", err)
	}
	if returnedSale.ReturnDate == nil || returnedSale.ReturnReason == nil {
		t.Fatalf("expected return stamped on the sale: %+v", returnedSale)
	}
	returnedDevice := reloadDevice(t, ctx, devices[0].ID)
	if returnedDevice.Status != models.DeviceStatusReturned || returnedDevice.OnLoan {
		t.Fatalf("expected returned device off loan; got status=%s on_loan=%v", returnedDevice.Status, returnedDevice.OnLoan)
	}

	// A sale can only be returned once.
	if _, err := models.ReturnDevice(ctx, &models.ReturnDeviceInput{SaleId: sale.ID, Reason: "again"}); err == nil {
		t.Fatalf("expected rejection when returning an already-returned sale")
	}

	// 9) A returned device still belongs to its home warehouse's network: a
	// warehouse-scoped caller from another network cannot sweep it up.
	otherWarehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "North Depot"})
	if err != nil {
		t.Fatalf("CreateWarehouse(other): %v", err)
	}
	otherStore, err := models.CreateStore(ctx, &models.NewStore{Name: "North Outlet", WarehouseId: otherWarehouse.ID})
	if err != nil {
		t.Fatalf("CreateStore(other): %v", err)
	}
	otherWarehouseId := otherWarehouse.ID
	keeperCreds, err := models.CreateUser(ctx, &models.NewUser{
		Username:    "north.keeper",
		Name:        "North Keeper",
		Role:        models.RoleWarehouse,
		WarehouseId: &otherWarehouseId,
	})
	if err != nil {
		t.Fatalf("CreateUser(keeper): %v", err)
	}
	keeperCtx := utils.SetUserIdInContext(context.Background(), keeperCreds.User.ID)
	keeperCtx = utils.SetUserNameInContext(keeperCtx, keeperCreds.User.Name)
	keeperCtx = utils.SetUserRoleInContext(keeperCtx, string(models.RoleWarehouse))
	keeperCtx = utils.SetWarehouseIdInContext(keeperCtx, otherWarehouse.ID)

	if _, err := models.CreateTransfer(keeperCtx, &models.NewTransfer{
		WarehouseId: otherWarehouse.ID,
		StoreId:     otherStore.ID,
		DeviceIds:   []int{devices[0].ID},
	}); err == nil {
		t.Fatalf("expected rejection when a foreign warehouse re-issues a returned device")
	}
	if got := reloadDevice(t, ctx, devices[0].ID); got.Status != models.DeviceStatusReturned {
		t.Fatalf("expected device untouched after the rejected re-issue; got %s", got.Status)
	}

	// 10) Returned devices are re-issuable through a fresh transfer.
	reissue, err := models.CreateTransfer(ctx, &models.NewTransfer{
		WarehouseId: warehouse.ID,
		StoreId:     store.ID,
		DeviceIds:   []int{devices[0].ID},
	})
	if err != nil {
		t.Fatalf("CreateTransfer(re-issue): %v", err)
	}
	reissued := reloadDevice(t, ctx, devices[0].ID)
	if reissued.Status != models.DeviceStatusTransferred {
		t.Fatalf("expected re-issued device transferred; got %s", reissued.Status)
	}
	if reissued.WarehouseId == nil || *reissued.WarehouseId != warehouse.ID || reissued.StoreId != nil {
		t.Fatalf("re-issued device location mismatch: %+v", reissued)
	}
	if _, err := models.GetTransfer(ctx, reissue.ID); err != nil {
		t.Fatalf("GetTransfer(re-issue): %v", err)
	}

	// 11) Administrative closure: receive the re-issue, sell on a fresh plan,
	// and write the part-paid loan off without a payment row.
	if _, err := models.ReceiveTransfer(ctx, reissue.ID); err != nil {
		t.Fatalf("ReceiveTransfer(re-issue): %v", err)
	}
	secondSale, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       store.ID,
		DeviceId:      devices[0].ID,
		CustomerName:  "Rohan Iyer",
		CustomerPhone: "9876501234",
		SalePrice:     decimal.NewFromInt(49999),
		EmiTerms: &models.EmiTerms{
			EmiAmount:         decimal.NewFromInt(15000),
			TotalInstallments: 3,
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(second): %v", err)
	}
	if _, err := models.RecordEmiPayment(ctx, &models.NewEmiPayment{
		EmiDetailId:   secondSale.EmiDetail.ID,
		Amount:        decimal.NewFromInt(15000),
		PaymentMethod: "cash",
	}); err != nil {
		t.Fatalf("RecordEmiPayment(second plan): %v", err)
	}
	closed, err := models.CloseEmi(ctx, &models.CloseEmiInput{
		EmiDetailId: secondSale.EmiDetail.ID,
		Reason:      "customer defaulted, written off",
	})
	if err != nil {
		t.Fatalf("CloseEmi: %v", err)
	}
	if closed.IsActive || closed.ClosedReason == nil || *closed.ClosedReason == "" {
		t.Fatalf("expected an inactive plan with a closure reason: %+v", closed)
	}
	writtenOffDevice := reloadDevice(t, ctx, devices[0].ID)
	if writtenOffDevice.OnLoan {
		t.Fatalf("expected device off loan after administrative closure")
	}
	assertDeviceLogContains(t, ctx, devices[0].ID, "EMI closed by admin")

	// Closure leaves no payment row behind and blocks further payments.
	var paymentCount int64
	if err := db.WithContext(ctx).Model(&models.EmiPayment{}).
		Where("emi_detail_id = ?", secondSale.EmiDetail.ID).
		Count(&paymentCount).Error; err != nil {
		t.Fatalf("count emi payments: %v", err)
	}
	if paymentCount != 1 {
		t.Fatalf("expected the single recorded installment only; got %d payment rows", paymentCount)
	}
	if _, err := models.RecordEmiPayment(ctx, &models.NewEmiPayment{
		EmiDetailId:   secondSale.EmiDetail.ID,
		Amount:        decimal.NewFromInt(15000),
		PaymentMethod: "cash",
	}); err == nil {
		t.Fatalf("expected rejection when paying a written-off plan")
	}

	// 12) The audit trail carries the whole history.
	logs, err := models.ListDeviceLogs(ctx, devices[0].ID)
	if err != nil {
		t.Fatalf("ListDeviceLogs: %v", err)
	}
	var transferredCount int
	for _, entry := range logs {
		if entry.Action == models.DeviceActionTransferred {
			transferredCount++
		}
	}
	if transferredCount != 2 {
		t.Fatalf("expected 2 transferred log entries (issue + re-issue); got %d", transferredCount)
	}
}

func TestConcurrentTransferCreateSingleWinner(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "devices_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	ctx = seedAdminCaller(t, ctx)

	warehouse, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Race Depot"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Race Store", WarehouseId: warehouse.ID})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	device, err := models.CreateDevice(ctx, &models.NewDevice{
		Name:        "Moto G",
		Model:       "Moto G84",
		Imei1:       "358910000000500",
		WarehouseId: warehouse.ID,
	})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	// Two callers race to put the same device into a batch. The per-device
	// row lock decides; exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = models.CreateTransfer(ctx, &models.NewTransfer{
				WarehouseId: warehouse.ID,
				StoreId:     store.ID,
				DeviceIds:   []int{device.ID},
			})
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one of two racing transfers to fail; got %d failures (errs=%v)", failures, errs)
	}

	reloaded := reloadDevice(t, ctx, device.ID)
	if reloaded.Status != models.DeviceStatusTransferred {
		t.Fatalf("expected device transferred after the race; got %s", reloaded.Status)
	}

	db := config.GetDB()
	var transferCount int64
	if err := db.WithContext(ctx).Model(&models.TransferItem{}).Where("device_id = ?", device.ID).Count(&transferCount).Error; err != nil {
		t.Fatalf("count transfer items: %v", err)
	}
	if transferCount != 1 {
		t.Fatalf("expected the device in exactly one batch; got %d", transferCount)
	}

	var logCount int64
	if err := db.WithContext(ctx).Model(&models.DeviceLog{}).
		Where("device_id = ? AND action = ?", device.ID, models.DeviceActionTransferred).
		Count(&logCount).Error; err != nil {
		t.Fatalf("count device logs: %v", err)
	}
	if logCount != 1 {
		t.Fatalf("expected exactly one transferred log entry; got %d", logCount)
	}
}

// seedAdminCaller provisions the first admin account and returns a context
// carrying its identity, so audit rows reference a real user.
func seedAdminCaller(t *testing.T, ctx context.Context) context.Context {
	t.Helper()

	bootstrap := utils.SetUserIdInContext(ctx, 1)
	bootstrap = utils.SetUserNameInContext(bootstrap, "seed")
	bootstrap = utils.SetUserRoleInContext(bootstrap, string(models.RoleAdmin))

	creds, err := models.CreateUser(bootstrap, &models.NewUser{
		Username: "seed.admin",
		Name:     "Seed Admin",
		Role:     models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser(seed admin): %v", err)
	}

	ctx = utils.SetUserIdInContext(ctx, creds.User.ID)
	ctx = utils.SetUserNameInContext(ctx, creds.User.Name)
	ctx = utils.SetUserRoleInContext(ctx, string(models.RoleAdmin))
	return ctx
}

func reloadDevice(t *testing.T, ctx context.Context, id int) *models.Device {
	t.Helper()
	db := config.GetDB()
	var device models.Device
	if err := db.WithContext(ctx).First(&device, id).Error; err != nil {
		t.Fatalf("reload device %d: %v", id, err)
	}
	return &device
}

func assertDeviceLogContains(t *testing.T, ctx context.Context, deviceId int, fragment string) {
	t.Helper()
	logs, err := models.ListDeviceLogs(ctx, deviceId)
	if err != nil {
		t.Fatalf("ListDeviceLogs: %v", err)
	}
	for _, entry := range logs {
		if strings.Contains(entry.Description, fragment) {
			return
		}
	}
	t.Fatalf("expected a device log containing %q", fragment)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("devices-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("devices-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=devices_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
