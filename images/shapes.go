// Package images - Image geometry primitives.
package images

// Rect is a lightweight axis-aligned bounding box in pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Area returns the area of the rectangle in pixels. Degenerate rectangles
// (zero or negative extent on either axis) have area 0.
func (r Rect) Area() int {
	w := r.X2 - r.X1
	h := r.Y2 - r.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Intersect returns the overlapping region of two rectangles. When the
// rectangles do not overlap the result has zero area; callers that only need
// the area can rely on Area() returning 0 for it.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
		X2: min(r.X2, o.X2),
		Y2: min(r.Y2, o.Y2),
	}
}

// Center returns the center point of the rectangle.
func (r Rect) Center() (x, y int) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Clamp restricts the rectangle to the bounds of a width×height frame.
// Coordinates are clipped into [0,width]×[0,height]; the result may be
// degenerate when the input lies entirely outside the frame.
func (r Rect) Clamp(width, height int) Rect {
	return Rect{
		X1: min(max(r.X1, 0), width),
		Y1: min(max(r.Y1, 0), height),
		X2: min(max(r.X2, 0), width),
		Y2: min(max(r.Y2, 0), height),
	}
}

// FullFrame returns the rectangle covering an entire width×height image.
func FullFrame(width, height int) Rect {
	return Rect{X1: 0, Y1: 0, X2: width, Y2: height}
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// IoU = Area of Intersection / Area of Union, always in [0,1]. A value of
// 1.0 means the rectangles are identical, 0.0 means they do not overlap.
// The union is computed with the inclusion-exclusion principle
// (Area(A) + Area(B) - Area(A∩B)) so the overlap is not double-counted.
//
// Degenerate inputs never fail: if either rectangle has zero area, or the
// intersection is empty, the result is 0.0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: The IoU score in [0,1].
func CalculateIoU(r, o Rect) float32 {
	inter := r.Intersect(o).Area()
	if inter <= 0 {
		return 0.0
	}

	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0.0
	}

	// Cast to float32 to ensure floating-point division.
	return float32(inter) / float32(union)
}

// Coverage returns the fraction of a width×height frame covered by the
// rectangle, in [0,1]. A degenerate frame or rectangle yields 0.
func Coverage(r Rect, width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 0.0
	}
	area := r.Area()
	if area <= 0 {
		return 0.0
	}
	frac := float32(area) / float32(width*height)
	if frac > 1.0 {
		return 1.0
	}
	return frac
}
