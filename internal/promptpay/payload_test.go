package promptpay

import (
	"errors"
	"strings"
	"testing"
)

func TestCRC16KnownVector(t *testing.T) {
	// Standard CRC-16/CCITT-FALSE check value.
	if got := crc16("123456789"); got != 0x29B1 {
		t.Fatalf("expected 0x29B1, got 0x%04X", got)
	}
}

func TestPayloadStaticPhone(t *testing.T) {
	payload, err := Payload("081-111-1111", 0)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := "00020101021129370016A000000677010111011300668111111115802TH530376463040EF4"
	if payload != want {
		t.Fatalf("payload mismatch:\n got %s\nwant %s", payload, want)
	}
}

func TestPayloadDynamicAmount(t *testing.T) {
	payload, err := Payload("0899999999", 422)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := "00020101021229370016A000000677010111011300668999999995802TH530376454044.2263049DF5"
	if payload != want {
		t.Fatalf("payload mismatch:\n got %s\nwant %s", payload, want)
	}
	if !strings.Contains(payload, "54044.22") {
		t.Fatalf("amount field missing: %s", payload)
	}
}

func TestPayloadNationalID(t *testing.T) {
	payload, err := Payload("1111111111111", 0)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !strings.Contains(payload, "02131111111111111") {
		t.Fatalf("expected national id merchant field: %s", payload)
	}
}

func TestPayloadInvalidTarget(t *testing.T) {
	if _, err := Payload("12345", 0); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}
