// Package dataset partitions exported dataset items into train/validation/
// test subsets.
package dataset

import (
	"fmt"
	"math"

	"charterbench/internal/store"
)

// ratioTolerance absorbs float accumulation when checking that the three
// ratios cover the whole dataset.
const ratioTolerance = 1e-9

// Split holds the three partitions of a dataset. Items keep their input
// order; the split takes contiguous runs, it never shuffles. Shuffle before
// calling if the input ordering is biased.
type Split struct {
	Train      []store.DatasetItem
	Validation []store.DatasetItem
	Test       []store.DatasetItem
}

// Make partitions items by the given ratios. Train and validation sizes are
// floored, test absorbs the remainder, so every item lands in exactly one
// subset. The ratios must be non-negative and sum to 1.
func Make(items []store.DatasetItem, trainRatio, valRatio, testRatio float64) (Split, error) {
	for _, r := range []float64{trainRatio, valRatio, testRatio} {
		if r < 0 {
			return Split{}, fmt.Errorf("ratios must be non-negative, got %v/%v/%v", trainRatio, valRatio, testRatio)
		}
	}
	if sum := trainRatio + valRatio + testRatio; math.Abs(sum-1) > ratioTolerance {
		return Split{}, fmt.Errorf("ratios must sum to 1, got %v", sum)
	}

	n := len(items)
	trainEnd := int(float64(n) * trainRatio)
	valEnd := trainEnd + int(float64(n)*valRatio)

	return Split{
		Train:      items[:trainEnd],
		Validation: items[trainEnd:valEnd],
		Test:       items[valEnd:],
	}, nil
}

// Sizes returns the partition sizes in train/validation/test order.
func (s Split) Sizes() (int, int, int) {
	return len(s.Train), len(s.Validation), len(s.Test)
}
