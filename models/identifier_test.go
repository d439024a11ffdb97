package models_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/phonelink/devices_backend/models"
	"github.com/shopspring/decimal"
)

func TestGenerateDeviceIdFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)

	id, err := models.GenerateDeviceId("Galaxy S24", now)
	if err != nil {
		t.Fatalf("GenerateDeviceId: %v", err)
	}

	re := regexp.MustCompile(`^GAL-20260830140509-[0-9A-F]{6}$`)
	if !re.MatchString(id) {
		t.Fatalf("unexpected device id format: %q", id)
	}
}

func TestGenerateDeviceIdShortAndEmptyModel(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	id, err := models.GenerateDeviceId("X1", now)
	if err != nil {
		t.Fatalf("GenerateDeviceId: %v", err)
	}
	if got := id[:3]; got != "X1-" {
		t.Fatalf("expected short model to keep its full prefix; got %q", id)
	}

	id, err = models.GenerateDeviceId("   ", now)
	if err != nil {
		t.Fatalf("GenerateDeviceId: %v", err)
	}
	if got := id[:4]; got != "DEV-" {
		t.Fatalf("expected DEV fallback prefix for blank model; got %q", id)
	}
}

func TestGenerateDeviceIdIsRandomized(t *testing.T) {
	now := time.Now()
	a, err := models.GenerateDeviceId("Pixel", now)
	if err != nil {
		t.Fatalf("GenerateDeviceId: %v", err)
	}
	b, err := models.GenerateDeviceId("Pixel", now)
	if err != nil {
		t.Fatalf("GenerateDeviceId: %v", err)
	}
	if a == b {
		t.Fatalf("two ids generated in the same second should differ: %q", a)
	}
}

func TestGenerateInvoiceNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	got := models.GenerateInvoiceNumber("Main Street", 1, now)
	if got != "MAI-20260830-000001" {
		t.Fatalf("unexpected invoice number: %q", got)
	}

	got = models.GenerateInvoiceNumber("AB", 42, now)
	if got != "AB-20260830-000042" {
		t.Fatalf("unexpected invoice number for short store name: %q", got)
	}
}

func TestNextDueDateAnchorsOnPreviousDueDate(t *testing.T) {
	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// three on-time months
	for _, want := range []time.Time{
		time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
	} {
		due = models.NextDueDate(due)
		if !due.Equal(want) {
			t.Fatalf("expected next due %s; got %s", want, due)
		}
	}
}

func TestEmiDerivedValues(t *testing.T) {
	emi := models.EmiDetail{
		EmiAmount:         decimal.NewFromInt(2500),
		TotalInstallments: 6,
		InstallmentsPaid:  2,
	}

	if emi.IsFullyPaid() {
		t.Fatalf("2 of 6 installments should not be fully paid")
	}
	if got := emi.RemainingAmount(); got.Cmp(decimal.NewFromInt(10000)) != 0 {
		t.Fatalf("expected remaining 10000; got %s", got.String())
	}

	emi.InstallmentsPaid = 6
	if !emi.IsFullyPaid() {
		t.Fatalf("6 of 6 installments should be fully paid")
	}
	if got := emi.RemainingAmount(); !got.IsZero() {
		t.Fatalf("expected remaining 0 when fully paid; got %s", got.String())
	}
}
