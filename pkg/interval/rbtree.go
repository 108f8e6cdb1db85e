package interval

// augmenter keeps maxEnd consistent whenever the shape of the tree changes.
// merge folds a node's own end with its children's subtree values.
type augmenter struct {
	merge func(a, b uint64) uint64
}

func (a augmenter) compute(n *Interval) uint64 {
	v := n.end
	if n.left != nil {
		v = a.merge(v, n.left.maxEnd)
	}
	if n.right != nil {
		v = a.merge(v, n.right.maxEnd)
	}
	return v
}

// propagate recomputes n and its ancestors up to, not including, stop. It
// ends early once a node's value does not change.
func (a augmenter) propagate(n, stop *Interval) {
	for n != stop {
		v := a.compute(n)
		if n.maxEnd == v {
			return
		}
		n.maxEnd = v
		n = n.parent
	}
}

// copy is used when newNode takes over the position of oldNode.
func (a augmenter) copy(oldNode, newNode *Interval) {
	newNode.maxEnd = oldNode.maxEnd
}

// rotate is used after newNode was rotated above oldNode: newNode now spans
// oldNode's former subtree, oldNode lost part of its own.
func (a augmenter) rotate(oldNode, newNode *Interval) {
	newNode.maxEnd = oldNode.maxEnd
	oldNode.maxEnd = a.compute(oldNode)
}

func maxSector(a, b uint64) uint64 {
	return max(a, b)
}

func isBlack(n *Interval) bool {
	return n == nil || n.color == black
}

// replaceChild makes newNode take oldNode's place under oldNode's parent.
func (t *Tree) replaceChild(oldNode, newNode *Interval) {
	p := oldNode.parent
	switch {
	case p == nil:
		t.root = newNode
	case p.left == oldNode:
		p.left = newNode
	case p.right == oldNode:
		p.right = newNode
	default:
		panic("node isn't left or right child of its parent - should be impossible!")
	}
	if newNode != nil {
		newNode.parent = p
	}
}

func (t *Tree) rotateLeft(x *Interval) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	t.replaceChild(x, y)
	y.left = x
	x.parent = y
	t.aug.rotate(x, y)
}

func (t *Tree) rotateRight(x *Interval) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	t.replaceChild(x, y)
	y.right = x
	x.parent = y
	t.aug.rotate(x, y)
}

func (t *Tree) insertFixup(z *Interval) {
	for {
		p := z.parent
		if p == nil {
			z.color = black
			return
		}
		if p.color == black {
			return
		}
		// p is red so it is not the root
		g := p.parent
		if p == g.left {
			if u := g.right; u != nil && u.color == red {
				p.color, u.color, g.color = black, black, red
				z = g
				continue
			}
			if z == p.right {
				t.rotateLeft(p)
				z, p = p, z
			}
			p.color, g.color = black, red
			t.rotateRight(g)
			return
		}

		if u := g.left; u != nil && u.color == red {
			p.color, u.color, g.color = black, black, red
			z = g
			continue
		}
		if z == p.left {
			t.rotateRight(p)
			z, p = p, z
		}
		p.color, g.color = black, red
		t.rotateLeft(g)
		return
	}
}

// erase unlinks z, restores maxEnd along the affected paths and rebalances.
func (t *Tree) erase(z *Interval) {
	var x, xParent *Interval
	removedColor := z.color

	switch {
	case z.left == nil:
		x, xParent = z.right, z.parent
		t.replaceChild(z, z.right)
		t.aug.propagate(xParent, nil)
	case z.right == nil:
		x, xParent = z.left, z.parent
		t.replaceChild(z, z.left)
		t.aug.propagate(xParent, nil)
	default:
		y := minimum(z.right)
		removedColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.replaceChild(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.replaceChild(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
		t.aug.copy(z, y)
		if xParent != y {
			t.aug.propagate(xParent, y)
		}
		t.aug.propagate(y, nil)
	}

	if removedColor == black {
		t.eraseFixup(x, xParent)
	}
}

func (t *Tree) eraseFixup(x, parent *Interval) {
	for x != t.root && isBlack(x) {
		if x == parent.left {
			w := parent.right
			if w.color == red {
				w.color, parent.color = black, red
				t.rotateLeft(parent)
				w = parent.right
			}
			if isBlack(w.left) && isBlack(w.right) {
				w.color = red
				x, parent = parent, parent.parent
				continue
			}
			if isBlack(w.right) {
				w.left.color, w.color = black, red
				t.rotateRight(w)
				w = parent.right
			}
			w.color, parent.color = parent.color, black
			w.right.color = black
			t.rotateLeft(parent)
			x = t.root
			break
		}

		w := parent.left
		if w.color == red {
			w.color, parent.color = black, red
			t.rotateRight(parent)
			w = parent.left
		}
		if isBlack(w.left) && isBlack(w.right) {
			w.color = red
			x, parent = parent, parent.parent
			continue
		}
		if isBlack(w.left) {
			w.right.color, w.color = black, red
			t.rotateLeft(w)
			w = parent.left
		}
		w.color, parent.color = parent.color, black
		w.left.color = black
		t.rotateRight(parent)
		x = t.root
		break
	}
	if x != nil {
		x.color = black
	}
}
