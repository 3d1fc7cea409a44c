package routingtable

import (
	"testing"

	"chordring/internal/domain"
	"chordring/internal/ring"
)

func newTestTable(t *testing.T, succListSize int) (*RoutingTable, *domain.Node) {
	t.Helper()
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	self := &domain.Node{ID: 1, Addr: "127.0.0.1:5000"}
	return New(self, space, succListSize), self
}

func TestInitSingleNode(t *testing.T) {
	rt, self := newTestTable(t, 2)
	rt.InitSingleNode()

	if got := rt.FirstSuccessor(); got != self {
		t.Fatalf("FirstSuccessor = %v, want self", got)
	}
	if got := rt.GetPredecessor(); got != self {
		t.Fatalf("GetPredecessor = %v, want self", got)
	}
	for i := 0; i < rt.FingerCount(); i++ {
		if got := rt.GetFinger(i); got != self {
			t.Fatalf("GetFinger(%d) = %v, want self", i, got)
		}
	}
}

func TestSentinelSuccessorSlotDefaultsToSelf(t *testing.T) {
	rt, self := newTestTable(t, 2)
	if got := rt.GetSuccessor(2); got != self {
		t.Fatalf("sentinel successor slot = %v, want self", got)
	}
	if got := rt.GetSuccessor(0); got != nil {
		t.Fatalf("GetSuccessor(0) = %v, want nil before stabilization", got)
	}
}

func TestSetSuccessorMirrorsFingerZero(t *testing.T) {
	rt, _ := newTestTable(t, 2)
	n1 := &domain.Node{ID: 5, Addr: "a"}
	rt.SetSuccessor(0, n1)

	if got := rt.GetFinger(0); got != n1 {
		t.Fatalf("GetFinger(0) = %v, want %v (P4: successors[0]==fingers[0])", got, n1)
	}
}

func TestShiftSuccessorsClosesGap(t *testing.T) {
	rt, self := newTestTable(t, 2)
	n1 := &domain.Node{ID: 5, Addr: "a"}
	n2 := &domain.Node{ID: 9, Addr: "b"}
	rt.SetSuccessor(0, n1)
	rt.SetSuccessor(1, n2)

	rt.ShiftSuccessors(0)

	if got := rt.GetSuccessor(0); got != n2 {
		t.Fatalf("after shift, GetSuccessor(0) = %v, want %v", got, n2)
	}
	if got := rt.GetFinger(0); got != n2 {
		t.Fatalf("after shift, GetFinger(0) = %v, want %v", got, n2)
	}
	// index 2 (the sentinel) is untouched by a shift starting at 0.
	if got := rt.GetSuccessor(2); got != self {
		t.Fatalf("sentinel slot after shift = %v, want self", got)
	}
}

func TestNextSuccessor(t *testing.T) {
	rt, _ := newTestTable(t, 2)
	n1 := &domain.Node{ID: 5, Addr: "a"}
	n2 := &domain.Node{ID: 9, Addr: "b"}
	rt.SetSuccessor(0, n1)
	rt.SetSuccessor(1, n2)

	if got := rt.NextSuccessor(); got != n2 {
		t.Fatalf("NextSuccessor() = %v, want %v", got, n2)
	}
}
