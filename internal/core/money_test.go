package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0.5", 50, true},
		{".5", 50, true},
		{"12.344", 1234, true},
		{"12.345", 1235, true},
		{"12.346", 1235, true},
		{"", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"0", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1500000})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1500000" {
		t.Fatalf("expected bare integer, got %s", b)
	}
	var m Money
	if err := json.Unmarshal([]byte("42"), &m); err != nil || m.Cents != 42 {
		t.Fatalf("unmarshal: %v, %d", err, m.Cents)
	}
}

func TestMoneyUnmarshalDecimalString(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`"12.34"`, 1234, true},
		{`"12,34"`, 1234, true},
		{`"99.99"`, 9999, true},
		{`"500"`, 50000, true},
		{`"abc"`, 0, false},
		{`"-5"`, 0, false},
		{`""`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok && (err != nil || m.Cents != tc.want) {
			t.Fatalf("%s: got %d, %v; want %d", tc.in, m.Cents, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.in)
		}
	}
}

func TestFormatINR(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "₹0"},
		{999_00, "₹999"},
		{1_000_00, "₹1,000"},
		{15_000_00, "₹15,000"},
		{1_23_456_00, "₹1,23,456"},
		{12_34_567_00, "₹12,34,567"},
		{1_23_45_678_00, "₹1,23,45,678"},
		{-15_000_00, "-₹15,000"},
	}
	for _, tc := range cases {
		if got := FormatINR(Money{Cents: tc.cents}); got != tc.want {
			t.Fatalf("%d: got %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 60}
	if a.Add(b).Cents != 210 {
		t.Fatal("add broken")
	}
	if b.Sub(a).Cents != -90 {
		t.Fatal("sub broken")
	}
	if (Money{Cents: 199}).Units() != 1 {
		t.Fatal("units broken")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(NewDate(2026, 3, 5)); got != "05 Mar 2026" {
		t.Fatalf("got %q", got)
	}
}
