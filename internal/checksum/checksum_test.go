package checksum

import "testing"

func TestMatch(t *testing.T) {
	data := []byte("# Note\nbody\n")
	sum := Sum(data)

	cases := []struct {
		tag  string
		want bool
	}{
		{sum, true},
		{ETag(sum), true},
		{"W/" + ETag(sum), true},
		{" " + ETag(sum) + " ", true},
		{"*", true},
		{"stale", false},
		{ETag(Sum([]byte("other"))), false},
	}
	for _, tc := range cases {
		if got := Match(data, tc.tag); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.tag, got, tc.want)
		}
	}
}
