// Package mime builds and serialises the RFC 5322 / MIME message tree: a
// rooted ordered tree of Node values whose leaves carry content and whose
// internal nodes carry multipart/* structure, plus the header encoding
// policy and the lazy streaming serialiser.
package mime

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Header is one key/value pair in a Node's ordered header list. Multiple
// headers with the same key are preserved in insertion order.
type Header struct {
	Key   string
	Value string
}

// Node is one vertex of the MIME tree.
type Node struct {
	ContentType    string
	Filename       string
	Content        *ContentSpec
	Raw            []byte
	FullMessageRaw bool // Raw is an entire opaque RFC 822 message, no headers synthesised

	headers    []Header
	ChildNodes []*Node

	boundary string
	root     *Node
	parent   *Node
	nodeID   int
	counter  *int

	// boundaryPrefix and boundaryBase are meaningful on the root only:
	// every boundary in the tree is derived from them, so all parts of
	// one message share a single base. An empty base is randomised once,
	// lazily; an empty prefix falls back to the generated default.
	boundaryPrefix string
	boundaryBase   string
}

// NewRoot creates a new root node with the given top-level Content-Type.
func NewRoot(contentType string) *Node {
	n := &Node{ContentType: contentType, counter: new(int)}
	n.root = n
	if isMultipart(contentType) {
		n.boundary = n.boundaryFor(n.nodeID)
	}
	return n
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "multipart/")
}

// SetBoundaryDefaults configures the prefix and base every boundary in
// this tree derives from, regenerating the boundaries of any multipart
// nodes already present. Empty values keep the generated defaults.
func (root *Node) SetBoundaryDefaults(prefix, base string) {
	root.boundaryPrefix = prefix
	root.boundaryBase = base
	var walk func(*Node)
	walk = func(n *Node) {
		if n.boundary != "" {
			n.boundary = root.boundaryFor(n.nodeID)
		}
		for _, c := range n.ChildNodes {
			walk(c)
		}
	}
	walk(root)
}

// boundaryFor derives the boundary for the node with the given id from
// the tree's configured prefix and base, randomising the base once per
// tree when none was configured.
func (root *Node) boundaryFor(id int) string {
	if root.boundaryBase == "" {
		root.boundaryBase = randomBoundaryBase()
	}
	return GenerateBoundary(root.boundaryPrefix, root.boundaryBase, id)
}

// Root returns the root of n's tree.
func (n *Node) Root() *Node { return n.root }

// Parent returns n's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// NodeID returns n's position-independent, monotonically assigned id.
func (n *Node) NodeID() int { return n.nodeID }

// Boundary returns the multipart boundary string for a multipart/* node,
// or "" for a leaf.
func (n *Node) Boundary() string { return n.boundary }

func (n *Node) nextID() int {
	*n.root.counter++
	return *n.root.counter
}

// CreateChild creates a new node with the given Content-Type, appends it as
// n's last child, and returns it. If contentType is multipart/*, a boundary
// of the form PREFIX + BASE + "-Part_<nodeId>" is generated from the tree's
// configured prefix and base.
func (n *Node) CreateChild(contentType string) *Node {
	child := &Node{ContentType: contentType}
	n.AppendChild(child)
	return child
}

// AppendChild appends child as n's last child. A child from another tree
// (or a fresh node) is adopted along with its whole subtree: every node
// in it gets a nodeID from this tree's counter, and every multipart node
// gets a boundary rederived from this tree's prefix and base, keeping
// boundaries unique and base-consistent after a merge.
func (n *Node) AppendChild(child *Node) {
	if child.root != n.root || child.nodeID == 0 {
		n.root.adopt(child)
	}
	child.parent = n
	n.ChildNodes = append(n.ChildNodes, child)
}

func (root *Node) adopt(n *Node) {
	n.root = root
	n.nodeID = root.nextID()
	if isMultipart(n.ContentType) {
		n.boundary = root.boundaryFor(n.nodeID)
	}
	for _, c := range n.ChildNodes {
		root.adopt(c)
	}
}

// Replace swaps n for newNode in n's parent's child list. Calling Replace
// on a root node is a no-op.
func (n *Node) Replace(newNode *Node) {
	if n.parent == nil {
		return
	}
	for i, c := range n.parent.ChildNodes {
		if c == n {
			n.parent.root.adopt(newNode)
			newNode.parent = n.parent
			n.parent.ChildNodes[i] = newNode
			return
		}
	}
}

// Remove detaches n from its parent's child list.
func (n *Node) Remove() {
	if n.parent == nil {
		return
	}
	out := n.parent.ChildNodes[:0]
	for _, c := range n.parent.ChildNodes {
		if c != n {
			out = append(out, c)
		}
	}
	n.parent.ChildNodes = out
	n.parent = nil
}

// SetContent attaches a resolvable content spec (string/bytes/stream/
// path/href/data-URI) as the node's body.
func (n *Node) SetContent(spec ContentSpec) { n.Content = &spec }

// SetRaw stores raw, already-formed bytes as the node's body, bypassing
// content resolution.
func (n *Node) SetRaw(raw []byte) { n.Raw = raw }

// SetHeader removes any prior entries for the normalised key and appends a
// single new entry, so repeated calls behave like "set" rather than
// "append".
func (n *Node) SetHeader(key, value string) {
	norm := NormalizeHeaderKey(key)
	out := n.headers[:0]
	for _, h := range n.headers {
		if !strings.EqualFold(h.Key, norm) {
			out = append(out, h)
		}
	}
	n.headers = append(out, Header{Key: norm, Value: value})
}

// AddHeader appends a new header entry without removing any existing ones
// for the same key, preserving insertion order across duplicates.
func (n *Node) AddHeader(key, value string) {
	n.headers = append(n.headers, Header{Key: NormalizeHeaderKey(key), Value: value})
}

// GetHeader returns the value of the first header matching key, or "".
func (n *Node) GetHeader(key string) string {
	norm := NormalizeHeaderKey(key)
	for _, h := range n.headers {
		if strings.EqualFold(h.Key, norm) {
			return h.Value
		}
	}
	return ""
}

// Headers returns the node's header list in insertion order. The slice is
// owned by the node; callers must not mutate it.
func (n *Node) Headers() []Header { return n.headers }

// caseTokens preserves the canonical upper-casing of well-known acronyms
// that appear as "-"-separated header-key segments.
var caseTokens = map[string]string{
	"mime": "MIME",
	"dkim": "DKIM",
	"arc":  "ARC",
	"bimi": "BIMI",
}

var specialKeys = map[string]string{
	"content-features": "Content-features",
}

// NormalizeHeaderKey lower-cases key and title-cases each "-"-separated
// word, except for the acronyms in caseTokens (kept upper) and the
// "Content-features" legacy mixed-case exception.
func NormalizeHeaderKey(key string) string {
	lower := strings.ToLower(key)
	if v, ok := specialKeys[lower]; ok {
		return v
	}
	parts := strings.Split(lower, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if up, ok := caseTokens[p]; ok {
			parts[i] = up
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

// GenerateBoundary builds a boundary string as prefix and base written
// back to back, followed by "-Part_<id>" (no separator is inserted between
// prefix and base). An empty prefix falls back to "--" and an empty base to
// a fresh random hex string, so every multipart node still gets a
// tree-unique boundary.
func GenerateBoundary(prefix, base string, nodeID int) string {
	if prefix == "" {
		prefix = "--"
	}
	if base == "" {
		base = randomBoundaryBase()
	}
	return fmt.Sprintf("%s%s-Part_%d", prefix, base, nodeID)
}

// randomBoundaryBase returns a fresh random hex string used as the "BASE"
// segment of a generated boundary.
func randomBoundaryBase() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
