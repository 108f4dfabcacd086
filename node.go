package reel

// DataType tags the kind of value an Input accepts and a NodeValueTable
// entry carries.
type DataType uint8

const (
	// DataTypeNone marks an untyped entry.
	DataTypeNone DataType = iota

	// DataTypeFloat is a scalar parameter value (float64).
	DataTypeFloat

	// DataTypeColor is an RGBA color parameter ([4]float64).
	DataTypeColor

	// DataTypeFrame is a decoded pixel buffer (*Frame).
	DataTypeFrame

	// DataTypeTexture is a GPU-resident image (gpu.TextureRef).
	DataTypeTexture

	// DataTypeFootage is a media stream binding (*Stream). Inputs of this
	// type trigger decoder resolution during the graph walk.
	DataTypeFootage
)

// String returns a human-readable name for the data type.
func (d DataType) String() string {
	switch d {
	case DataTypeFloat:
		return "Float"
	case DataTypeColor:
		return "Color"
	case DataTypeFrame:
		return "Frame"
	case DataTypeTexture:
		return "Texture"
	case DataTypeFootage:
		return "Footage"
	default:
		return "None"
	}
}

// Input is a typed slot on a Node. It is either connected, sourcing its
// value from another node's output, or unconnected, holding a static
// (possibly time-keyed) value.
//
// Inputs are immutable in topology during a single evaluation pass.
type Input struct {
	name string
	typ  DataType

	connection Node
	valueFn    func(Rational) any
}

// NewInput creates an unconnected input with the given name and type.
func NewInput(name string, typ DataType) *Input {
	return &Input{name: name, typ: typ}
}

// Name returns the input's name.
func (in *Input) Name() string { return in.name }

// Type returns the input's data type.
func (in *Input) Type() DataType { return in.typ }

// IsConnected reports whether the input sources its value from another node.
func (in *Input) IsConnected() bool { return in.connection != nil }

// ConnectedNode returns the upstream node, or nil if unconnected.
func (in *Input) ConnectedNode() Node { return in.connection }

// Connect wires the input to an upstream node's output.
func (in *Input) Connect(n Node) { in.connection = n }

// Disconnect detaches the input from any upstream node.
func (in *Input) Disconnect() { in.connection = nil }

// SetStaticValue gives the input a constant value for all times.
func (in *Input) SetStaticValue(v any) {
	in.valueFn = func(Rational) any { return v }
}

// SetValueFunc gives the input a time-keyed value function.
func (in *Input) SetValueFunc(fn func(Rational) any) { in.valueFn = fn }

// ValueAt samples the input's static or keyed value at time t.
// Returns nil if no value has been set.
func (in *Input) ValueAt(t Rational) any {
	if in.valueFn == nil {
		return nil
	}
	return in.valueFn(t)
}

// Node is a vertex in the render graph producing a time-varying value from
// its inputs.
//
// Node implementations must be safe to evaluate from any single worker at a
// time; the graph's topology must not change during an evaluation pass, and
// the graph must be acyclic (the worker detects cycles but treats them as a
// caller invariant violation, not a recoverable condition).
type Node interface {
	// Inputs returns the node's inputs in evaluation order.
	Inputs() []*Input

	// Value computes the node's output table from the resolved inputs.
	// It must be a pure function of the database contents.
	Value(db *NodeValueDatabase) NodeValueTable

	// InputTimeAdjustment remaps the requested time range for one input.
	// Most nodes return the range unchanged; time-remapping nodes (speed
	// changes, offsets) translate it into the upstream node's time domain.
	InputTimeAdjustment(in *Input, r TimeRange) TimeRange
}

// Block is one time-slab on a track: a node that occupies a contiguous
// range of timeline time.
type Block interface {
	// Range returns the timeline interval this block occupies.
	Range() TimeRange

	// Node returns the node evaluated for times inside the block.
	Node() Node
}

// Track is a timeline-track aggregator node. The worker never evaluates a
// track through Value; it splits the requested range across the blocks
// overlapping it and merges the partial results with the track's own
// compositing rule.
type Track interface {
	Node

	// BlocksIn returns the blocks overlapping the given range, in
	// timeline order.
	BlocksIn(r TimeRange) []Block

	// MergeBlocks combines partial tables, one per overlapping block in
	// timeline order, into the track's output table.
	MergeBlocks(partials []NodeValueTable) NodeValueTable
}

// NodeDependency is the unit of work submitted to a render worker:
// one node evaluated over one time range.
type NodeDependency struct {
	Node  Node
	Range TimeRange
}
