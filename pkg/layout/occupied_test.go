package layout

import "testing"

func TestTrackerIsFree(t *testing.T) {
	tr := NewTracker(10)
	tr.Add("a", 100, 100, 50, 50) // occupies 90..160 on both axes

	tests := []struct {
		name       string
		x, y, w, h int
		want       bool
	}{
		{"same spot", 100, 100, 50, 50, false},
		{"inside", 110, 110, 5, 5, false},
		{"touching margins on the right", 170, 100, 10, 10, true},
		{"one pixel into the margin", 169, 100, 10, 10, false},
		{"far away", 500, 500, 10, 10, true},
		{"above, touching margins", 100, 70, 10, 10, true},
		{"enclosing", 0, 0, 400, 400, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.IsFree(tt.x, tt.y, tt.w, tt.h); got != tt.want {
				t.Errorf("IsFree(%d, %d, %d, %d) = %v, want %v", tt.x, tt.y, tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestTrackerIsFreeExcept(t *testing.T) {
	tr := NewTracker(10)
	tr.Add("parent", 0, 0, 100, 50)
	tr.Add("other", 200, 0, 100, 50)

	if tr.IsFree(0, 50, 100, 30) {
		t.Fatal("region under parent should be blocked by its margin")
	}
	if !tr.isFreeExcept(0, 50, 100, 30, map[string]bool{"parent": true}) {
		t.Error("region under parent should be free when parent is skipped")
	}
	if tr.isFreeExcept(150, 0, 100, 30, map[string]bool{"parent": true}) {
		t.Error("skipping parent must not hide other owners")
	}
}

func TestTrackerAppendOnly(t *testing.T) {
	tr := NewTracker(5)
	tr.Add("a", 0, 0, 10, 10)
	tr.Add("a", 0, 0, 10, 10)

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	areas := tr.Areas()
	want := Area{X1: -5, Y1: -5, X2: 15, Y2: 15, Owner: "a"}
	if areas[0] != want {
		t.Errorf("Areas()[0] = %+v, want %+v", areas[0], want)
	}

	areas[0].X1 = 1000
	if tr.Areas()[0].X1 != -5 {
		t.Error("Areas() should return a copy")
	}
}
