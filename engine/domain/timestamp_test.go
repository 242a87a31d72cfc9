package domain

import "testing"

func TestFormatCreatedISO(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "1970-01-01T00:00:00Z"},
		{1700000000, "2023-11-14T22:13:20Z"},
		{1700000000.5, "2023-11-14T22:13:20.500000Z"},
		{1700000000.000001, "2023-11-14T22:13:20.000001Z"},
		{2.5e-6, "1970-01-01T00:00:00.000002Z"},
		{1.25e-5, "1970-01-01T00:00:00.000012Z"},
		{1.5e-6, "1970-01-01T00:00:00.000002Z"},
	}
	for _, tc := range cases {
		if got := FormatCreatedISO(tc.in); got != tc.want {
			t.Errorf("FormatCreatedISO(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
