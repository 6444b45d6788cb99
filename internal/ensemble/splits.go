package ensemble

import "fmt"

// Fold is one expanding-window split over chronologically ordered rows.
// Every training index precedes every test index.
type Fold struct {
	TrainEnd  int // train on [0, TrainEnd)
	TestStart int
	TestEnd   int // test on [TestStart, TestEnd)
}

// ChronologicalSplits partitions n ordered rows into k expanding-window folds.
// The test blocks have size n/(k+1) and together cover the tail of the data.
func ChronologicalSplits(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	testSize := n / (k + 1)
	if testSize < 1 {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}

	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		testStart := n - (k-i)*testSize
		folds[i] = Fold{
			TrainEnd:  testStart,
			TestStart: testStart,
			TestEnd:   testStart + testSize,
		}
	}
	return folds, nil
}
