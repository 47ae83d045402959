package metrics

import (
	"sort"

	"github.com/skyscope/skyscope/internal/eval/dataset"
	"github.com/skyscope/skyscope/internal/models"
)

// DefaultIoUThreshold is the overlap a prediction needs to count as a hit.
const DefaultIoUThreshold = 0.5

// Counts are the confusion counts for one class
type Counts struct {
	TruePositives  int `yaml:"tp" json:"tp"`
	FalsePositives int `yaml:"fp" json:"fp"`
	FalseNegatives int `yaml:"fn" json:"fn"`
}

// Add accumulates o into c
func (c *Counts) Add(o Counts) {
	c.TruePositives += o.TruePositives
	c.FalsePositives += o.FalsePositives
	c.FalseNegatives += o.FalseNegatives
}

// Precision returns TP / (TP + FP), or 0 with no predictions
func (c Counts) Precision() float64 {
	return ratio(c.TruePositives, c.TruePositives+c.FalsePositives)
}

// Recall returns TP / (TP + FN), or 0 with no ground truth
func (c Counts) Recall() float64 {
	return ratio(c.TruePositives, c.TruePositives+c.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall
func (c Counts) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// IoU returns the intersection over union of two [x1, y1, x2, y2] boxes.
func IoU(a, b [4]float64) float64 {
	ix := min(a[2], b[2]) - max(a[0], b[0])
	iy := min(a[3], b[3]) - max(a[1], b[1])
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b [4]float64) float64 {
	w, h := b[2]-b[0], b[3]-b[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Match pairs predictions with ground truth per class. Predictions are taken
// in descending confidence and each claims the unmatched truth box with the
// highest IoU at or above threshold.
func Match(predictions []models.Detection, truth []dataset.Annotation, threshold float64) map[string]Counts {
	byClassPred := map[string][]models.Detection{}
	for _, p := range predictions {
		byClassPred[p.Class] = append(byClassPred[p.Class], p)
	}
	byClassTruth := map[string][][4]float64{}
	for _, a := range truth {
		byClassTruth[a.Class] = append(byClassTruth[a.Class], a.BBox())
	}

	counts := map[string]Counts{}
	for class, preds := range byClassPred {
		sort.SliceStable(preds, func(i, j int) bool { return preds[i].Confidence > preds[j].Confidence })
		boxes := byClassTruth[class]
		used := make([]bool, len(boxes))

		var c Counts
		for _, p := range preds {
			best, bestIoU := -1, threshold
			for i, box := range boxes {
				if used[i] {
					continue
				}
				if v := IoU(p.BBox, box); v >= bestIoU {
					best, bestIoU = i, v
				}
			}
			if best >= 0 {
				used[best] = true
				c.TruePositives++
			} else {
				c.FalsePositives++
			}
		}
		for _, u := range used {
			if !u {
				c.FalseNegatives++
			}
		}
		counts[class] = c
	}

	for class, boxes := range byClassTruth {
		if _, ok := counts[class]; !ok {
			counts[class] = Counts{FalseNegatives: len(boxes)}
		}
	}
	return counts
}
