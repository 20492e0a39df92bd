package checksum

import "testing"

func TestSum_StableAndDistinct(t *testing.T) {
	a := Sum([]byte("content"))
	b := Sum([]byte("content"))
	c := Sum([]byte("other"))
	if a != b {
		t.Error("same content produced different sums")
	}
	if a == c {
		t.Error("different content produced equal sums")
	}
	if len(a) != 64 {
		t.Errorf("sum length = %d, want 64 hex chars", len(a))
	}
}
