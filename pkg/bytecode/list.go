package bytecode

// List is a doubly linked instruction list. Nodes are appended once and
// never moved, so Index is stable after construction.
type List struct {
	nodes []Node
}

// NewList builds a list from nodes in order.
func NewList(nodes ...Node) *List {
	l := &List{}
	for _, n := range nodes {
		l.Add(n)
	}
	return l
}

// Add appends n. A node can belong to one list only; adding it twice panics.
func (l *List) Add(n Node) {
	b := n.base()
	if b.prev != nil || b.next != nil || (len(l.nodes) > 0 && l.nodes[0] == n) {
		panic("bytecode: node already in a list")
	}
	b.index = len(l.nodes)
	if last := l.Last(); last != nil {
		last.base().next = n
		b.prev = last
	}
	l.nodes = append(l.nodes, n)
}

// First returns the first node, or nil for an empty list.
func (l *List) First() Node {
	if l == nil || len(l.nodes) == 0 {
		return nil
	}
	return l.nodes[0]
}

// Last returns the last node, or nil for an empty list.
func (l *List) Last() Node {
	if l == nil || len(l.nodes) == 0 {
		return nil
	}
	return l.nodes[len(l.nodes)-1]
}

// Len returns the number of nodes, markers included.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.nodes)
}

// Get returns the i-th node.
func (l *List) Get(i int) Node {
	return l.nodes[i]
}

// Nodes returns the nodes in order. The slice must not be modified.
func (l *List) Nodes() []Node {
	if l == nil {
		return nil
	}
	return l.nodes
}

// Opcodes returns the number of non-marker nodes.
func (l *List) Opcodes() int {
	count := 0
	for _, n := range l.Nodes() {
		if n.Opcode() >= 0 {
			count++
		}
	}
	return count
}
