package types

import (
	"strconv"

	"github.com/spacemeshos/go-scale"
)

// LayerID is a tick of the global clock. Layers are monotonic and start at genesis.
type LayerID uint32

// Uint32 returns the LayerID as a uint32.
func (l LayerID) Uint32() uint32 {
	return uint32(l)
}

// Add layers to the layer. Panics on wraparound.
func (l LayerID) Add(layers uint32) LayerID {
	nl := uint32(l) + layers
	if nl < uint32(l) {
		panic("layer_id wraparound")
	}
	return LayerID(nl)
}

// Sub layers from the layer. Panics on underflow.
func (l LayerID) Sub(layers uint32) LayerID {
	if layers > uint32(l) {
		panic("layer_id underflow")
	}
	return LayerID(uint32(l) - layers)
}

// Difference returns the difference between current and other layer.
// Panics if other is after the current layer.
func (l LayerID) Difference(other LayerID) uint32 {
	if other > l {
		panic("other layer is after the current")
	}
	return uint32(l) - uint32(other)
}

// Before returns true if this layer is lower than the other.
func (l LayerID) Before(other LayerID) bool {
	return l < other
}

// After returns true if this layer is higher than the other.
func (l LayerID) After(other LayerID) bool {
	return l > other
}

// String returns string representation of the layer id numeric value.
func (l LayerID) String() string {
	return strconv.FormatUint(uint64(l), 10)
}

// EncodeScale implements scale codec interface.
func (l LayerID) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeCompact32(e, uint32(l))
}

// DecodeScale implements scale codec interface.
func (l *LayerID) DecodeScale(d *scale.Decoder) (int, error) {
	value, n, err := scale.DecodeCompact32(d)
	if err != nil {
		return n, err
	}
	*l = LayerID(value)
	return n, nil
}
