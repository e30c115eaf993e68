package sontag

// Role is a tag occurrence's position within its family.
type Role int

const (
	// RoleStart opens a tag family, e.g. {% if %}.
	RoleStart Role = iota
	// RoleInside separates branches within an open family, e.g. {% else %}.
	RoleInside
	// RoleEnd closes a non-singular family, e.g. {% endif %}.
	RoleEnd
)

func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleInside:
		return "inside"
	case RoleEnd:
		return "end"
	default:
		return "unknown"
	}
}

type nodeKind int

const (
	nodeRoot nodeKind = iota
	nodeText
	nodeExpression
	nodeTag
)

// nodeID is a stable handle into a tree's node arena. The insertion cursor
// during parsing is just a nodeID value.
type nodeID int

const rootID nodeID = 0

// node is one element of the ownership tree. Nodes are created during
// parsing and immutable afterwards, except for the lazily parsed expression
// AST which is filled in on first evaluation.
type node struct {
	kind     nodeKind
	line     int
	parent   nodeID
	children []nodeID

	// nodeText
	text string

	// nodeExpression
	rawExpr string
	expr    ExpressionNode // parsed on first evaluation

	// nodeTag
	tagName  string
	role     Role
	family   int
	desc     *TagDescriptor
	args     interface{} // produced once by the descriptor's ParseArgs
	singular bool
}

// tree owns all nodes of one parsed template. Every node except the root has
// exactly one parent; child order is render order. A tree is local to one
// render call and discarded when it completes.
type tree struct {
	name  string // diagnostic label
	nodes []node
}

func newTree(name string) *tree {
	return &tree{name: name, nodes: []node{{kind: nodeRoot, parent: -1}}}
}

func (t *tree) node(id nodeID) *node {
	return &t.nodes[id]
}

// append adds n under parent and returns its handle.
func (t *tree) append(parent nodeID, n node) nodeID {
	n.parent = parent
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id
}
