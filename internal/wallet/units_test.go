package wallet

import "testing"

func TestFormatNative(t *testing.T) {
	cases := []struct {
		family ChainFamily
		minor  string
		want   string
	}{
		{FamilyHedera, "250000000", "2.5"},     // tinybar, 10^-8
		{FamilyHedera, "1", "0.00000001"},
		{FamilyCardano, "1500000", "1.5"},      // lovelace, 10^-6
		{FamilyCardano, "1000000", "1"},
	}
	for _, tc := range cases {
		got, err := FormatNative(tc.family, tc.minor)
		if err != nil {
			t.Fatalf("FormatNative(%s, %s): %v", tc.family, tc.minor, err)
		}
		if got != tc.want {
			t.Errorf("FormatNative(%s, %s) = %s, want %s", tc.family, tc.minor, got, tc.want)
		}
	}
}

func TestFormatNativeRejectsGarbage(t *testing.T) {
	if _, err := FormatNative(FamilyHedera, "12,5"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestParseQuantity(t *testing.T) {
	if _, err := ParseQuantity("0"); err == nil {
		t.Fatal("zero quantity accepted")
	}
	if _, err := ParseQuantity("-5"); err == nil {
		t.Fatal("negative quantity accepted")
	}
	if _, err := ParseQuantity("12.5"); err == nil {
		t.Fatal("fractional quantity accepted")
	}
	q, err := ParseQuantity("340282366920938463463374607431768211456") // 2^128
	if err != nil {
		t.Fatalf("big quantity rejected: %v", err)
	}
	if q.BitLen() != 129 {
		t.Fatalf("precision lost: bitlen %d", q.BitLen())
	}
}

func TestNativeSymbol(t *testing.T) {
	if NativeSymbol(FamilyHedera) != "HBAR" || NativeSymbol(FamilyCardano) != "ADA" {
		t.Fatal("unexpected native symbols")
	}
}
