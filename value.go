package reel

// NodeValue is one typed entry in a NodeValueTable.
type NodeValue struct {
	Type  DataType
	Value any
}

// NodeValueTable is the ordered sequence of typed values produced by
// evaluating one node. Order is significant: consumers take the first
// entry matching the type they ask for.
type NodeValueTable struct {
	values []NodeValue
}

// Push appends a typed value to the table.
func (t *NodeValueTable) Push(typ DataType, v any) {
	t.values = append(t.values, NodeValue{Type: typ, Value: v})
}

// Get returns the first value of the given type, or (nil, false).
func (t NodeValueTable) Get(typ DataType) (any, bool) {
	for _, v := range t.values {
		if v.Type == typ {
			return v.Value, true
		}
	}
	return nil, false
}

// Count returns the number of entries in the table.
func (t NodeValueTable) Count() int { return len(t.values) }

// IsEmpty reports whether the table has no entries.
func (t NodeValueTable) IsEmpty() bool { return len(t.values) == 0 }

// Values returns the table's entries in push order.
func (t NodeValueTable) Values() []NodeValue { return t.values }

// NodeValueDatabase maps each input of a node to its resolved value table.
// It is scoped to a single node evaluation and discarded once the node's
// own Value computation completes.
type NodeValueDatabase struct {
	tables map[*Input]NodeValueTable
}

// NewNodeValueDatabase creates an empty database.
func NewNodeValueDatabase() *NodeValueDatabase {
	return &NodeValueDatabase{tables: make(map[*Input]NodeValueTable)}
}

// Insert records the resolved table for an input, replacing any previous
// entry.
func (db *NodeValueDatabase) Insert(in *Input, table NodeValueTable) {
	db.tables[in] = table
}

// Table returns the resolved table for an input. A missing input yields an
// empty table: unavailable footage degrades to a gap, it never aborts the
// node's own computation.
func (db *NodeValueDatabase) Table(in *Input) NodeValueTable {
	return db.tables[in]
}

// Len returns the number of resolved inputs.
func (db *NodeValueDatabase) Len() int { return len(db.tables) }
