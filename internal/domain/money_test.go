package domain_test

import (
	"testing"

	"github.com/consigline/crm-api-go/internal/domain"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"R$ 1.500,00", 1500, true},
		{"R$ 1.500", 1500, true},
		{"1.500", 1500, true},
		{"1.234.567", 1234567, true},
		{"1.234.567,89", 1234567.89, true},
		{"1,500.00", 1500, true},
		{"1500.00", 1500, true},
		{"1500", 1500, true},
		{"1.5", 1.5, true},
		{"0,50", 0.5, true},
		{"r$ 250,75", 250.75, true},
		{"", 0, false},
		{"R$", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := domain.ParseMoney(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseMoney(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseMoney(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
