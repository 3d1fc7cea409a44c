package ring

import "testing"

func mustSpace(t *testing.T, bits int) Space {
	t.Helper()
	s, err := NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace(%d): %v", bits, err)
	}
	return s
}

func TestBelongs_NonWrapping(t *testing.T) {
	s := mustSpace(t, 3) // ring of size 8

	cases := []struct {
		name       string
		l, r       ID
		lI, rI     bool
		id         ID
		wantBelong bool
	}{
		{"strictly inside (l,r)", 2, 6, false, false, 4, true},
		{"at l, l exclusive", 2, 6, false, false, 2, false},
		{"at l, l inclusive", 2, 6, true, false, 2, true},
		{"at r, r exclusive", 2, 6, false, false, 6, false},
		{"at r, r inclusive", 2, 6, false, true, 6, true},
		{"before l", 2, 6, true, true, 1, false},
		{"after r", 2, 6, true, true, 7, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := s.Belongs(c.l, c.lI, c.r, c.rI, c.id)
			if got != c.wantBelong {
				t.Errorf("Belongs(%d,%v,%d,%v,%d) = %v, want %v",
					c.l, c.lI, c.r, c.rI, c.id, got, c.wantBelong)
			}
		})
	}
}

func TestBelongs_Wrapping(t *testing.T) {
	s := mustSpace(t, 3) // ring of size 8

	cases := []struct {
		name       string
		l, r       ID
		lI, rI     bool
		id         ID
		wantBelong bool
	}{
		{"wrap: inside before 0", 6, 2, false, false, 7, true},
		{"wrap: inside after 0", 6, 2, false, false, 1, true},
		{"wrap: at l exclusive", 6, 2, false, false, 6, false},
		{"wrap: at l inclusive", 6, 2, true, false, 6, true},
		{"wrap: at r exclusive", 6, 2, false, false, 2, false},
		{"wrap: at r inclusive", 6, 2, false, true, 2, true},
		{"wrap: outside the arc", 6, 2, true, true, 4, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := s.Belongs(c.l, c.lI, c.r, c.rI, c.id)
			if got != c.wantBelong {
				t.Errorf("Belongs(%d,%v,%d,%v,%d) = %v, want %v",
					c.l, c.lI, c.r, c.rI, c.id, got, c.wantBelong)
			}
		})
	}
}

func TestBelongs_DegenerateEqualEndpoints(t *testing.T) {
	s := mustSpace(t, 3)

	// l == r: the arc covers the whole ring. Every id other than l itself
	// is "strictly between"; l is covered only if an endpoint is inclusive.
	for id := ID(0); id < ID(8); id++ {
		got := s.Belongs(3, false, 3, false, id)
		want := id != 3
		if got != want {
			t.Errorf("Belongs(3,false,3,false,%d) = %v, want %v", id, got, want)
		}
	}
	if !s.Belongs(3, true, 3, false, 3) {
		t.Errorf("expected l itself to belong when lInclusive is true")
	}
	if !s.Belongs(3, false, 3, true, 3) {
		t.Errorf("expected l itself to belong when rInclusive is true")
	}
}

// TestBelongsWorkedEdgeTable reproduces the edge table literally, using a
// ring wide enough to hold its largest operand (id=30).
func TestBelongsWorkedEdgeTable(t *testing.T) {
	s := mustSpace(t, 5) // mod 32

	cases := []struct {
		l, r   ID
		lI, rI bool
		id     ID
		want   bool
	}{
		{5, 10, false, false, 7, true},
		{5, 10, false, false, 5, false},
		{5, 10, true, false, 5, true},
		{28, 3, false, false, 30, true},
		{28, 3, false, false, 3, false},
		{7, 7, false, false, 7, false},
		{7, 7, true, false, 3, true},
	}
	for _, c := range cases {
		got := s.Belongs(c.l, c.lI, c.r, c.rI, c.id)
		if got != c.want {
			t.Errorf("Belongs(%d,%v,%d,%v,%d) = %v, want %v",
				c.l, c.lI, c.r, c.rI, c.id, got, c.want)
		}
	}
}

func TestBetween(t *testing.T) {
	s := mustSpace(t, 3)
	// Between(l, r, id) == id ∈ (l, r]
	if s.Between(2, 6, 2) {
		t.Errorf("Between should exclude the left endpoint")
	}
	if !s.Between(2, 6, 6) {
		t.Errorf("Between should include the right endpoint")
	}
	if !s.Between(6, 2, 7) {
		t.Errorf("Between should handle wraparound")
	}
}

func TestHashStringDeterministicAndInRange(t *testing.T) {
	s := mustSpace(t, 5) // ring of size 32, matching the spec's worked examples

	for _, v := range []string{"a", "node-1", "127.0.0.1:5000", ""} {
		id1 := s.HashString(v)
		id2 := s.HashString(v)
		if id1 != id2 {
			t.Errorf("HashString(%q) not deterministic: %d != %d", v, id1, id2)
		}
		if uint64(id1) >= s.Mod {
			t.Errorf("HashString(%q) = %d out of range [0,%d)", v, id1, s.Mod)
		}
	}
}

func TestAddPow2(t *testing.T) {
	s := mustSpace(t, 3) // mod 8
	if got := s.AddPow2(6, 2); got != ID((6+4)%8) {
		t.Errorf("AddPow2(6,2) = %d, want %d", got, (6+4)%8)
	}
	if got := s.AddPow2(7, 0); got != ID((7+1)%8) {
		t.Errorf("AddPow2(7,0) = %d, want %d", got, (7+1)%8)
	}
}
