package storage

import (
	"fmt"

	"gaiaf/internal/model"
)

// rankedList keeps scored organisms ordered by ascending score in a
// size-augmented treap, giving logarithmic insert, delete and rank lookup.
// Equal scores keep insertion order. Priorities derive from the insertion
// sequence so the shape is reproducible.
type rankedList struct {
	root *rankedNode
	next uint64
}

type rankedNode struct {
	entry    model.ScoredOrganism
	seq      uint64
	priority uint64
	size     int
	left     *rankedNode
	right    *rankedNode
}

func nodeSize(n *rankedNode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *rankedNode) resize() {
	n.size = 1 + nodeSize(n.left) + nodeSize(n.right)
}

func (n *rankedNode) before(score float64, seq uint64) bool {
	if n.entry.Score != score {
		return n.entry.Score < score
	}
	return n.seq < seq
}

// splitmix64 finaliser.
func mixPriority(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func (l *rankedList) Len() int {
	return nodeSize(l.root)
}

func (l *rankedList) insert(entry model.ScoredOrganism) {
	seq := l.next
	l.next++
	node := &rankedNode{entry: entry, seq: seq, priority: mixPriority(seq), size: 1}
	left, right := splitKey(l.root, entry.Score, seq)
	l.root = merge(merge(left, node), right)
}

// at returns the entry at zero-based rank.
func (l *rankedList) at(rank int) (model.ScoredOrganism, bool) {
	n := l.root
	for n != nil {
		leftSize := nodeSize(n.left)
		switch {
		case rank < leftSize:
			n = n.left
		case rank == leftSize:
			return n.entry, true
		default:
			rank -= leftSize + 1
			n = n.right
		}
	}
	return model.ScoredOrganism{}, false
}

// lowerBound counts entries scoring strictly below score.
func (l *rankedList) lowerBound(score float64) int {
	rank := 0
	n := l.root
	for n != nil {
		if n.entry.Score < score {
			rank += nodeSize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return rank
}

// locate finds the rank of the entry with the given result id among the
// entries sharing its score.
func (l *rankedList) locate(score float64, id string) (int, bool) {
	for rank := l.lowerBound(score); rank < l.Len(); rank++ {
		entry, _ := l.at(rank)
		if entry.Score != score {
			break
		}
		if entry.ID == id {
			return rank, true
		}
	}
	return 0, false
}

func (l *rankedList) removeAt(rank int) {
	left, rest := splitRank(l.root, rank)
	_, right := splitRank(rest, 1)
	l.root = merge(left, right)
}

// remove deletes the entry with the given id and score.
func (l *rankedList) remove(score float64, id string) bool {
	rank, ok := l.locate(score, id)
	if !ok {
		return false
	}
	l.removeAt(rank)
	return true
}

// slice returns up to limit entries starting at offset; limit 0 means all.
func (l *rankedList) slice(offset, limit int) []model.ScoredOrganism {
	size := l.Len()
	if offset >= size {
		return nil
	}
	end := size
	if limit > 0 && offset+limit < size {
		end = offset + limit
	}
	out := make([]model.ScoredOrganism, 0, end-offset)
	l.walk(func(rank int, entry model.ScoredOrganism) bool {
		if rank >= end {
			return false
		}
		if rank >= offset {
			out = append(out, entry)
		}
		return true
	})
	return out
}

// walk visits entries in ascending order until fn returns false.
func (l *rankedList) walk(fn func(rank int, entry model.ScoredOrganism) bool) {
	stack := make([]*rankedNode, 0, 32)
	n := l.root
	rank := 0
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(rank, n.entry) {
			return
		}
		rank++
		n = n.right
	}
}

// check verifies ordering, subtree sizes and heap priorities.
func (l *rankedList) check() error {
	var prev *rankedNode
	count := 0
	var err error
	var visit func(n *rankedNode) int
	visit = func(n *rankedNode) int {
		if n == nil || err != nil {
			return 0
		}
		leftSize := visit(n.left)
		if prev != nil && !prev.before(n.entry.Score, n.seq) {
			err = fmt.Errorf("order violated at %s: %f after %f", n.entry.ID, n.entry.Score, prev.entry.Score)
		}
		prev = n
		count++
		rightSize := visit(n.right)
		for _, child := range []*rankedNode{n.left, n.right} {
			if child != nil && child.priority > n.priority && err == nil {
				err = fmt.Errorf("heap violated below %s", n.entry.ID)
			}
		}
		if n.size != leftSize+rightSize+1 && err == nil {
			err = fmt.Errorf("size of %s is %d, subtree holds %d", n.entry.ID, n.size, leftSize+rightSize+1)
		}
		return leftSize + rightSize + 1
	}
	visit(l.root)
	if err != nil {
		return err
	}
	if count != l.Len() {
		return fmt.Errorf("root size %d, traversal saw %d", l.Len(), count)
	}
	return nil
}

// splitKey splits into nodes ordered before (score, seq) and the rest.
func splitKey(n *rankedNode, score float64, seq uint64) (*rankedNode, *rankedNode) {
	if n == nil {
		return nil, nil
	}
	if n.before(score, seq) {
		left, right := splitKey(n.right, score, seq)
		n.right = left
		n.resize()
		return n, right
	}
	left, right := splitKey(n.left, score, seq)
	n.left = right
	n.resize()
	return left, n
}

// splitRank splits into the first k nodes and the rest.
func splitRank(n *rankedNode, k int) (*rankedNode, *rankedNode) {
	if n == nil {
		return nil, nil
	}
	if nodeSize(n.left) >= k {
		left, right := splitRank(n.left, k)
		n.left = right
		n.resize()
		return left, n
	}
	left, right := splitRank(n.right, k-nodeSize(n.left)-1)
	n.right = left
	n.resize()
	return n, right
}

func merge(a, b *rankedNode) *rankedNode {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.priority > b.priority {
		a.right = merge(a.right, b)
		a.resize()
		return a
	}
	b.left = merge(a, b.left)
	b.resize()
	return b
}
