package gateway

import (
	"strconv"

	"github.com/skyscope/skyscope/internal/models"
)

// FilterDetections keeps candidates with confidence >= threshold whose class index
// is in indices, in emission order. Box coordinates are rounded to one decimal and
// returned as x1 <= x2, y1 <= y2; boxes with no width or no height after rounding
// are dropped.
func FilterDetections(raw []models.RawDetection, labels []string, indices map[int]struct{}, threshold float64) []models.Detection {
	out := make([]models.Detection, 0, len(raw))
	for _, r := range raw {
		if r.Confidence < threshold {
			continue
		}
		if _, ok := indices[r.ClassIndex]; !ok {
			continue
		}
		if r.ClassIndex < 0 || r.ClassIndex >= len(labels) {
			continue
		}
		box, ok := normalizeBox(r.BBox)
		if !ok {
			continue
		}
		out = append(out, models.Detection{
			Class:      labels[r.ClassIndex],
			Confidence: r.Confidence,
			BBox:       box,
		})
	}
	return out
}

// normalizeBox rounds an xyxy box and orders its corners. It reports false for
// degenerate boxes.
func normalizeBox(b [4]float64) ([4]float64, bool) {
	x1, y1, x2, y2 := round1(b[0]), round1(b[1]), round1(b[2]), round1(b[3])
	box := [4]float64{min(x1, x2), min(y1, y2), max(x1, x2), max(y1, y2)}
	if !(box[2] > box[0] && box[3] > box[1]) {
		return box, false
	}
	return box, true
}

// round1 rounds to one decimal the way Python's round(v, 1) does: the exact
// binary value is rounded, and only true ties go to the even digit. So 0.25
// becomes 0.2 and 0.35, stored just below the tie, becomes 0.3.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
