package pgutil

import "testing"

func TestIsID(t *testing.T) {
	cases := []struct {
		ids  []string
		want bool
	}{
		{[]string{"5f1c3c1e-8a43-4d8e-9d6e-0b4c2a7e9f10"}, true},
		{[]string{"5f1c3c1e-8a43-4d8e-9d6e-0b4c2a7e9f10", "0b4c2a7e-9f10-4d8e-8a43-5f1c3c1e9d6e"}, true},
		{[]string{"abc"}, false},
		{[]string{""}, false},
		{[]string{"5f1c3c1e-8a43-4d8e-9d6e-0b4c2a7e9f10", "client-1"}, false},
		{nil, true},
	}
	for _, tc := range cases {
		if got := IsID(tc.ids...); got != tc.want {
			t.Fatalf("IsID(%q) = %v, want %v", tc.ids, got, tc.want)
		}
	}
}
