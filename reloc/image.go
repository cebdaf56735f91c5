package reloc

import (
	"image"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/groveml/grove/dataset"
	"github.com/groveml/grove/utils"
)

// NoLeaf marks a pixel that has no leaf assignment for a tree.
const NoLeaf int32 = -1

// LeafImage holds, for every pixel, the forest-global leaf row each tree
// routed that pixel's descriptor to. Indices are stored row-major, TreeCount
// entries per pixel.
type LeafImage struct {
	Width, Height int
	TreeCount     int
	indices       []int32
}

// NewLeafImage creates a leaf image of the given dimensions with every entry
// set to NoLeaf.
func NewLeafImage(width, height, treeCount int) *LeafImage {
	indices := make([]int32, width*height*treeCount)
	for i := range indices {
		indices[i] = NoLeaf
	}
	return &LeafImage{Width: width, Height: height, TreeCount: treeCount, indices: indices}
}

// At returns the per-tree leaf rows for the pixel. The returned slice aliases
// the image's storage.
func (img *LeafImage) At(x, y int) []int32 {
	offset := (y*img.Width + x) * img.TreeCount
	return img.indices[offset : offset+img.TreeCount]
}

// DescriptorImage holds one descriptor per pixel. A nil descriptor marks a
// pixel without a valid feature, e.g. missing depth.
type DescriptorImage struct {
	Width, Height int
	descriptors   []dataset.Descriptor
}

// NewDescriptorImage creates an empty descriptor image of the given
// dimensions.
func NewDescriptorImage(width, height int) *DescriptorImage {
	return &DescriptorImage{
		Width:       width,
		Height:      height,
		descriptors: make([]dataset.Descriptor, width*height),
	}
}

// At returns the descriptor for the pixel.
func (img *DescriptorImage) At(x, y int) dataset.Descriptor {
	return img.descriptors[y*img.Width+x]
}

// Set stores the descriptor for the pixel.
func (img *DescriptorImage) Set(x, y int, descriptor dataset.Descriptor) {
	img.descriptors[y*img.Width+x] = descriptor
}

// PredictionImage holds one merged prediction per pixel. The evaluator
// resizes it to match its input on every call, reallocating only when the
// dimensions actually change.
type PredictionImage struct {
	Width, Height int
	predictions   []Prediction
}

// At returns the merged prediction for the pixel.
func (img *PredictionImage) At(x, y int) Prediction {
	return img.predictions[y*img.Width+x]
}

func (img *PredictionImage) resize(width, height int) {
	if img.Width == width && img.Height == height {
		return
	}
	img.Width, img.Height = width, height
	img.predictions = make([]Prediction, width*height)
}

// Router routes a descriptor to a tree-local leaf index; a trained decision
// tree satisfies it directly.
type Router interface {
	FindLeaf(descriptor dataset.Descriptor) int
}

// ComputeLeafImage routes every pixel's descriptor through each router and
// offsets the resulting tree-local leaf indices into forest-global rows.
// Pixels with a nil descriptor get NoLeaf for every tree. Routing is pure per
// pixel and runs data-parallel.
func ComputeLeafImage(routers []Router, offsets []int, descriptors *DescriptorImage) (*LeafImage, error) {
	var err error
	if descriptors == nil {
		err = multierr.Append(err, errors.New("descriptor image must not be nil"))
	}
	if len(routers) == 0 {
		err = multierr.Append(err, errors.New("at least one router is required"))
	}
	if len(routers) != len(offsets) {
		err = multierr.Append(err, errors.Errorf("got %d routers but %d leaf offsets", len(routers), len(offsets)))
	}
	if err != nil {
		return nil, err
	}

	leaves := NewLeafImage(descriptors.Width, descriptors.Height, len(routers))
	utils.ParallelForEachPixel(image.Point{descriptors.Width, descriptors.Height}, func(x, y int) {
		descriptor := descriptors.At(x, y)
		if descriptor == nil {
			return
		}
		rows := leaves.At(x, y)
		for t, router := range routers {
			rows[t] = int32(offsets[t] + router.FindLeaf(descriptor))
		}
	})
	return leaves, nil
}
