package node

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/routingtable"
	"chordring/internal/storage"
	"chordring/internal/transport"
)

// newTestNode spins up a real node behind a real loopback listener, so
// tests exercise the actual wire protocol rather than mocking it out.
func newTestNode(t *testing.T, space ring.Space, id ring.ID, succSize int) *Node {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	self := &domain.Node{ID: id, Addr: lis.Addr().String()}
	rt := routingtable.New(self, space, succSize)
	store := storage.NewMemoryStorage(space, &logger.NopLogger{})
	tc := transport.NewClient(
		transport.WithTimeouts(200*time.Millisecond, 200*time.Millisecond),
		transport.WithMaxElapsed(500*time.Millisecond),
	)
	n := New(rt, store, tc, WithLogger(&logger.NopLogger{}))

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				_, _ = c.Write([]byte(n.Handle(context.Background(), strings.TrimRight(line, "\r\n")) + "\n"))
			}(conn)
		}
	}()
	t.Cleanup(func() { _ = lis.Close() })

	return n
}

// fakeHelper is a minimal stand-in peer that answers FIND_SUCCESSOR
// requests from a fixed answer table, recording every id it was asked to
// resolve so a test can assert exactly which lookups it triggered.
func fakeHelper(t *testing.T, answers map[string]string) (addr string, calls func() []string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var mu sync.Mutex
	var seen []string
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil {
					return
				}
				cmd, rest := transport.DecodeRequest(strings.TrimRight(line, "\n"))
				resp := transport.EncodeErr("unexpected command")
				if cmd == transport.CmdFindSuccessor {
					mu.Lock()
					seen = append(seen, rest)
					mu.Unlock()
					if a, ok := answers[rest]; ok {
						resp = a
					}
				}
				_, _ = c.Write([]byte(resp + "\n"))
			}(conn)
		}
	}()
	t.Cleanup(func() { _ = lis.Close() })

	return lis.Addr().String(), func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(seen))
		copy(out, seen)
		return out
	}
}

// TestRefineFingerTableSkipRule reproduces spec.md's worked finger-skip
// example (S6): a node with key 4 joining a ring where successor(4)=10
// starts every finger at the placeholder 10. Refinement reuses that
// placeholder for every start it still covers (i=1,2) and only issues a
// FIND_SUCCESSOR lookup once the placeholder stops covering the interval
// (i=3); the result of that lookup is then itself reused where it still
// applies (i=4).
func TestRefineFingerTableSkipRule(t *testing.T) {
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	helperAddr, calls := fakeHelper(t, map[string]string{
		"12": transport.EncodeOK("20/127.0.0.1:1"),
	})

	self := &domain.Node{ID: 4, Addr: "127.0.0.1:2"}
	rt := routingtable.New(self, space, 2)
	placeholder := &domain.Node{ID: 10, Addr: "127.0.0.1:3"}
	for i := 0; i < rt.FingerCount(); i++ {
		rt.SetFinger(i, placeholder)
	}
	store := storage.NewMemoryStorage(space, &logger.NopLogger{})
	tc := transport.NewClient(
		transport.WithTimeouts(200*time.Millisecond, 200*time.Millisecond),
		transport.WithMaxElapsed(500*time.Millisecond),
	)
	n := New(rt, store, tc, WithLogger(&logger.NopLogger{}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n.refineFingerTable(ctx, &domain.Node{Addr: helperAddr})

	wantFinger := map[int]ring.ID{1: 10, 2: 10, 3: 20, 4: 20}
	for i, wantID := range wantFinger {
		if got := rt.GetFinger(i); got == nil || got.ID != wantID {
			t.Fatalf("finger(%d) = %v, want id %d", i, got, wantID)
		}
	}
	if got := calls(); len(got) != 1 || got[0] != "12" {
		t.Fatalf("helper calls = %v, want exactly one FIND_SUCCESSOR:12", got)
	}
}

// TestJoinAndStabilizeConverge reproduces spec.md's two-node scenario: a
// lone node at 5 bootstraps a ring, a node at 20 joins via it, and a few
// stabilize rounds on the bootstrap side converge both directions of the
// successor/predecessor pair.
func TestJoinAndStabilizeConverge(t *testing.T) {
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}

	a := newTestNode(t, space, 5, 2)
	a.Bootstrap()

	b := newTestNode(t, space, 20, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.JoinVia(ctx, a.RoutingTable().Self().Addr); err != nil {
		t.Fatalf("JoinVia: %v", err)
	}

	if got := b.RoutingTable().FirstSuccessor(); got == nil || got.ID != a.RoutingTable().Self().ID {
		t.Fatalf("b.successor = %v, want a", got)
	}
	if got := b.RoutingTable().GetPredecessor(); got == nil || got.ID != a.RoutingTable().Self().ID {
		t.Fatalf("b.predecessor = %v, want a", got)
	}
	if got := a.RoutingTable().GetPredecessor(); got == nil || got.ID != b.RoutingTable().Self().ID {
		t.Fatalf("a.predecessor = %v, want b (updated by join's Notify)", got)
	}

	for i := 0; i < 20; i++ {
		a.stabilize(ctx)
		if s := a.RoutingTable().FirstSuccessor(); s != nil && s.ID == b.RoutingTable().Self().ID {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := a.RoutingTable().FirstSuccessor(); got == nil || got.ID != b.RoutingTable().Self().ID {
		t.Fatalf("a.successor = %v, want b", got)
	}
}

// TestSuccessorOwnsWholeRingAlone checks P3/P4-adjacent behavior for the
// degenerate single-node ring: every id is owned by self.
func TestSuccessorOwnsWholeRingAlone(t *testing.T) {
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	a := newTestNode(t, space, 7, 2)
	a.Bootstrap()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, id := range []ring.ID{0, 7, 19, 31} {
		got, err := a.Successor(ctx, id)
		if err != nil {
			t.Fatalf("Successor(%d): %v", id, err)
		}
		if got.ID != 7 {
			t.Fatalf("Successor(%d) = %v, want self", id, got)
		}
	}
}

// TestUpdateIthFingerRejectsWorseCandidate confirms spec.md §4.4's
// acceptance rule: a candidate only replaces an existing finger when it
// falls strictly between self and that finger.
func TestUpdateIthFingerRejectsWorseCandidate(t *testing.T) {
	space, err := ring.NewSpace(5)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	a := newTestNode(t, space, 5, 2)
	a.Bootstrap()
	ctx := context.Background()

	closer := &domain.Node{ID: 10, Addr: "127.0.0.1:1"}
	a.UpdateIthFinger(ctx, 2, closer)
	if got := a.RoutingTable().GetFinger(2); got == nil || got.ID != 10 {
		t.Fatalf("finger(2) = %v, want 10", got)
	}

	farther := &domain.Node{ID: 20, Addr: "127.0.0.1:2"}
	a.UpdateIthFinger(ctx, 2, farther)
	if got := a.RoutingTable().GetFinger(2); got == nil || got.ID != 10 {
		t.Fatalf("finger(2) = %v after farther candidate, want unchanged 10", got)
	}
}
