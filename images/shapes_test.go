package images

import (
	"math"
	"testing"
)

// TestIoU_Correctness validates the IoU implementation against known test cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // intersection=2500, union=17500, iou=1/7
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25, // intersection=2500, union=10000
			epsilon:  0.001,
		},
		{
			name:     "Zero-area first rect",
			r1:       Rect{50, 50, 50, 50},
			r2:       Rect{0, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Inverted coordinates",
			r1:       Rect{100, 100, 0, 0},
			r2:       Rect{0, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateIoU(tt.r1, tt.r2)
			if math.Abs(float64(got-tt.expected)) > float64(tt.epsilon) {
				t.Errorf("CalculateIoU(%v, %v) = %f, expected %f", tt.r1, tt.r2, got, tt.expected)
			}
		})
	}
}

// TestIoU_Symmetry verifies that IoU(a,b) == IoU(b,a) for a range of boxes.
func TestIoU_Symmetry(t *testing.T) {
	boxes := []Rect{
		{0, 0, 100, 100},
		{50, 50, 150, 150},
		{0, 0, 10, 10},
		{-20, -20, 30, 30},
		{5, 5, 5, 5},
	}

	for i, a := range boxes {
		for j, b := range boxes {
			if CalculateIoU(a, b) != CalculateIoU(b, a) {
				t.Errorf("IoU not symmetric for boxes %d and %d", i, j)
			}
		}
	}
}

func TestCoverage(t *testing.T) {
	tests := []struct {
		name     string
		r        Rect
		w, h     int
		expected float32
	}{
		{"Full frame", Rect{0, 0, 800, 600}, 800, 600, 1.0},
		{"Quarter", Rect{0, 0, 400, 300}, 800, 600, 0.25},
		{"Degenerate frame", Rect{0, 0, 100, 100}, 0, 0, 0.0},
		{"Degenerate box", Rect{10, 10, 10, 50}, 800, 600, 0.0},
		{"Oversized box clamps to 1", Rect{-100, -100, 900, 700}, 800, 600, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coverage(tt.r, tt.w, tt.h)
			if math.Abs(float64(got-tt.expected)) > 0.001 {
				t.Errorf("Coverage(%v, %d, %d) = %f, expected %f", tt.r, tt.w, tt.h, got, tt.expected)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	r := Rect{-50, -10, 900, 700}.Clamp(800, 600)
	if r != (Rect{0, 0, 800, 600}) {
		t.Errorf("Clamp out-of-bounds = %v, expected full frame", r)
	}

	inside := Rect{10, 20, 30, 40}.Clamp(800, 600)
	if inside != (Rect{10, 20, 30, 40}) {
		t.Errorf("Clamp should not move an in-bounds rect, got %v", inside)
	}

	outside := Rect{900, 700, 950, 750}.Clamp(800, 600)
	if outside.Area() != 0 {
		t.Errorf("Clamp of a fully outside rect should be degenerate, got %v", outside)
	}
}

func TestIntersectAndArea(t *testing.T) {
	a := Rect{0, 0, 100, 100}
	b := Rect{50, 50, 150, 150}
	inter := a.Intersect(b)
	if inter != (Rect{50, 50, 100, 100}) {
		t.Errorf("Intersect = %v", inter)
	}
	if inter.Area() != 2500 {
		t.Errorf("Intersect area = %d, expected 2500", inter.Area())
	}

	disjoint := a.Intersect(Rect{200, 200, 300, 300})
	if disjoint.Area() != 0 {
		t.Errorf("Disjoint intersection should have zero area, got %d", disjoint.Area())
	}
}

func TestFullFrame(t *testing.T) {
	f := FullFrame(800, 600)
	if f.Area() != 480000 {
		t.Errorf("FullFrame area = %d", f.Area())
	}
	if Coverage(f, 800, 600) != 1.0 {
		t.Errorf("FullFrame coverage should be 1.0")
	}
}
