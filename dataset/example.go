// Package dataset contains the example, histogram and reservoir types that
// back online forest training. Labels are a generic comparable type so the
// hot routing/counting paths are monomorphised rather than going through an
// interface.
package dataset

import "fmt"

// Descriptor is a fixed-length feature vector identifying an example's input.
// Descriptors are treated as immutable once created; nothing in this module
// writes through one.
type Descriptor []float32

// Example is an immutable (descriptor, label) pair. Examples are shared by
// pointer so that the same example can sit in a parent reservoir and a child
// reservoir during a split without copying the descriptor payload.
type Example[L comparable] struct {
	descriptor Descriptor
	label      L
}

// NewExample creates an example from a descriptor and a label.
func NewExample[L comparable](descriptor Descriptor, label L) *Example[L] {
	return &Example[L]{descriptor: descriptor, label: label}
}

// Descriptor returns the example's descriptor.
func (e *Example[L]) Descriptor() Descriptor {
	return e.descriptor
}

// Label returns the example's label.
func (e *Example[L]) Label() L {
	return e.label
}

func (e *Example[L]) String() string {
	return fmt.Sprintf("%v: %v", e.descriptor, e.label)
}
