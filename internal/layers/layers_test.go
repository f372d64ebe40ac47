package layers

import (
	"errors"
	"math/rand"
	"testing"

	"gocarousel/internal/domain"
	"gocarousel/internal/vector"
)

func canvasWith(ids ...string) *vector.Canvas {
	c := vector.NewCanvas(100, 100)
	for _, id := range ids {
		c.Add(vector.NewObject(domain.GraphicObject{ID: id, Type: domain.TypeRect, Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1}))
	}
	return c
}

func stackIDs(c *vector.Canvas) []string {
	var out []string
	for _, o := range c.Objects() {
		out = append(out, o.ID)
	}
	return out
}

func TestDescribeReverseOrderAndNames(t *testing.T) {
	c := canvasWith("a", "b")
	c.Add(vector.NewObject(domain.GraphicObject{ID: "t", Type: domain.TypeText, Text: "Headline", Visible: true}))
	d := Describe(c.Objects())
	if len(d) != 3 {
		t.Fatalf("len = %d", len(d))
	}
	if d[0].ID != "t" || d[0].ZIndex != 2 || d[0].Name != "Headline" {
		t.Fatalf("top descriptor: %+v", d[0])
	}
	if d[2].ID != "a" || d[2].ZIndex != 0 || d[2].Name != "Rect 1" || d[1].Name != "Rect 2" {
		t.Fatalf("bottom descriptors: %+v", d)
	}
}

// Any permutation applied through Reorder must show up identically in the
// stack and in the re-derived descriptors.
func TestReorderPermutationsStayInSync(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		c := canvasWith(ids...)
		perm := append([]string(nil), ids...)
		r.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		if err := Reorder(c, perm); err != nil {
			t.Fatalf("reorder %v: %v", perm, err)
		}
		d := Describe(c.Objects())
		stack := stackIDs(c)
		for i, l := range d {
			if l.ID != perm[i] {
				t.Fatalf("descriptor %d = %s want %s", i, l.ID, perm[i])
			}
			if stack[l.ZIndex] != l.ID {
				t.Fatalf("zIndex %d points at %s, want %s", l.ZIndex, stack[l.ZIndex], l.ID)
			}
		}
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	cases := [][]string{
		{"a", "b"},
		{"a", "b", "x"},
		{"a", "a", "b"},
		{"a", "b", "c", "d"},
	}
	for _, ids := range cases {
		c := canvasWith("a", "b", "c")
		before := stackIDs(c)
		err := Reorder(c, ids)
		if !errors.Is(err, ErrNotPermutation) {
			t.Fatalf("ids %v: err = %v", ids, err)
		}
		after := stackIDs(c)
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("stack mutated on rejected reorder: %v -> %v", before, after)
			}
		}
	}
}

func TestMoveWithRepeatedImportIDs(t *testing.T) {
	c := canvasWith("x", "x", "y")
	st := stackIDs(c)
	if st[0] != "x" || st[1] == "x" || st[2] != "y" {
		t.Fatalf("stack ids = %v", st)
	}
	if err := Move(c, 2, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := stackIDs(c); got[2] != "x" || got[0] != st[1] {
		t.Fatalf("after move = %v", got)
	}
}

func TestMoveLayer(t *testing.T) {
	c := canvasWith("a", "b", "c") // display: c b a
	if err := Move(c, 0, 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	// display: b a c -> stack: c a b
	got := stackIDs(c)
	if got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("stack = %v", got)
	}
	if err := Move(c, 0, 5); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestToggleVisibilityAndLock(t *testing.T) {
	c := canvasWith("a")
	o := c.ByID("a")
	c.SetActive(o)
	vis, err := ToggleVisibility(c, "a")
	if err != nil || vis || o.Visible {
		t.Fatalf("visibility: %v %v", vis, err)
	}
	if c.Active() != nil {
		t.Fatalf("hidden object should be deselected")
	}
	locked, err := ToggleLock(c, "a")
	if err != nil || !locked || !o.Locked {
		t.Fatalf("lock: %v %v", locked, err)
	}
	d := Describe(c.Objects())
	if d[0].Visible || !d[0].Locked {
		t.Fatalf("descriptor flags: %+v", d[0])
	}
	if _, err := ToggleLock(c, "zz"); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("unknown id err = %v", err)
	}
	if err := Rename(c, "a", "Badge"); err != nil || Describe(c.Objects())[0].Name != "Badge" {
		t.Fatalf("rename failed: %v", err)
	}
}
