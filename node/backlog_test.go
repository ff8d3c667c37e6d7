package node

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBacklogPreservesFIFOOrder(t *testing.T) {
	var b backlog
	b.push("a")
	b.push("b")
	b.push("c")

	got := b.drain()
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("drain order (-want +got):\n%s", diff)
	}

	if got := b.drain(); len(got) != 0 {
		t.Errorf("second drain = %v, want empty", got)
	}
}
