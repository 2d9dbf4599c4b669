// Package dataset defines the values passed between ingestion pipeline
// stages: the raw upload, the loader output and the canonical four-array
// split.
package dataset

import (
	"io"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
)

// Canonical array names. They are also the persisted file stems.
const (
	XTrain = "x_train"
	XTest  = "x_test"
	YTrain = "y_train"
	YTest  = "y_test"
	X      = "x"
	Y      = "y"
)

// Upload is one caller-supplied file plus the dataset identifier it is
// stored under.
type Upload struct {
	DatasetID string
	Filename  string
	Body      io.ReaderAt
	Size      int64
}

// Kind tags which variant of Loaded is populated.
type Kind int

const (
	// PreSplit carries x_train, x_test, y_train and y_test in Arrays.
	PreSplit Kind = iota + 1
	// Unsplit carries x and y in Arrays.
	Unsplit
	// Images carries labeled image files in Images.
	Images
)

func (k Kind) String() string {
	switch k {
	case PreSplit:
		return "pre-split"
	case Unsplit:
		return "unsplit"
	case Images:
		return "images"
	default:
		return "unknown"
	}
}

// Partition records which split an image was placed in by the archive
// layout, if any.
type Partition int

const (
	Unassigned Partition = iota
	Train
	Test
)

// Image is one candidate image found in an extracted archive.
type Image struct {
	// Path is the absolute path inside the scratch area.
	Path string
	// Rel is the slash-separated path relative to the archive root.
	Rel       string
	Token     string
	Partition Partition
}

// Loaded is the output of a loader.
type Loaded struct {
	Kind   Kind
	Arrays map[string]*tensor.Array
	Images []Image
}

// Split is the canonical output contract.
type Split struct {
	XTrain *tensor.Array
	XTest  *tensor.Array
	YTrain *tensor.Array
	YTest  *tensor.Array
}

// Named returns the four arrays keyed by their canonical names.
func (s *Split) Named() map[string]*tensor.Array {
	return map[string]*tensor.Array{
		XTrain: s.XTrain,
		XTest:  s.XTest,
		YTrain: s.YTrain,
		YTest:  s.YTest,
	}
}

// Names lists the canonical array names in persistence order.
func Names() []string {
	return []string{XTrain, XTest, YTrain, YTest}
}
