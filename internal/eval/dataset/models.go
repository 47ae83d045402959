package dataset

import (
	"github.com/skyscope/skyscope/internal/models"
)

// Record is one labelled night-sky photo
type Record struct {
	ID          string       `json:"id" parquet:"id"`
	ImagePath   string       `json:"image_path" parquet:"image_path"`
	Annotations []Annotation `json:"annotations" parquet:"annotations,list"`
}

// Annotation is a ground-truth box in pixel space
type Annotation struct {
	Class string  `json:"class" parquet:"class"`
	X1    float64 `json:"x1" parquet:"x1"`
	Y1    float64 `json:"y1" parquet:"y1"`
	X2    float64 `json:"x2" parquet:"x2"`
	Y2    float64 `json:"y2" parquet:"y2"`
}

// BBox returns the annotation as [x1, y1, x2, y2]
func (a Annotation) BBox() [4]float64 {
	return [4]float64{a.X1, a.Y1, a.X2, a.Y2}
}

// Classes returns the distinct annotated classes in first-seen order.
// These are the classes the evaluation asks the detector for.
func (r *Record) Classes() []models.ClassToken {
	seen := map[string]bool{}
	var classes []models.ClassToken
	for _, a := range r.Annotations {
		if seen[a.Class] {
			continue
		}
		seen[a.Class] = true
		classes = append(classes, models.ClassToken(a.Class))
	}
	return classes
}
