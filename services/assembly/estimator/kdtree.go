// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package estimator

import (
	"math"
	"sort"
)

// kdTree is a static median-split space-partitioning tree over a point
// set, supporting k-th nearest-neighbor distance queries under Chebyshev
// or Euclidean metrics.
//
// Invariants:
//   - nodes form a balanced binary tree; node i splits on axis depth%dims
//   - every point index appears in exactly one node
//   - the input point slice is referenced, never copied or mutated
//
// Thread Safety: immutable after newKDTree; queries are safe concurrently.
type kdTree struct {
	pts   [][]float64
	dims  int
	norm  Norm
	root  int32
	nodes []kdNode
}

type kdNode struct {
	point int32
	axis  int16
	left  int32
	right int32
}

// newKDTree builds a tree over pts. Callers must have validated that pts
// is non-empty with consistent dimensions.
func newKDTree(pts [][]float64, norm Norm) *kdTree {
	t := &kdTree{
		pts:   pts,
		dims:  len(pts[0]),
		norm:  norm,
		nodes: make([]kdNode, 0, len(pts)),
	}
	idx := make([]int32, len(pts))
	for i := range idx {
		idx[i] = int32(i)
	}
	t.root = t.build(idx, 0)
	return t
}

func (t *kdTree) build(idx []int32, depth int) int32 {
	if len(idx) == 0 {
		return -1
	}
	axis := depth % t.dims
	sort.Slice(idx, func(i, j int) bool {
		return t.pts[idx[i]][axis] < t.pts[idx[j]][axis]
	})
	mid := len(idx) / 2

	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, kdNode{point: idx[mid], axis: int16(axis), left: -1, right: -1})

	// Children are assigned after recursion since append may grow nodes.
	left := t.build(idx[:mid], depth+1)
	right := t.build(idx[mid+1:], depth+1)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

// kthDistance returns the distance from point qi to its k-th nearest
// neighbor, excluding qi itself. Coincident points other than qi count as
// neighbors at distance zero. k must satisfy 1 <= k <= len(pts)-1.
func (t *kdTree) kthDistance(qi, k int) float64 {
	h := boundedMaxHeap{vals: make([]float64, 0, k), limit: k}
	t.search(t.root, t.pts[qi], int32(qi), &h)
	d := h.worst()
	if t.norm == NormEuclidean {
		return math.Sqrt(d)
	}
	return d
}

// search walks the tree accumulating the k smallest reduced distances.
// Reduced distances are squared for Euclidean and raw for Chebyshev, so
// plane-distance pruning stays metric-consistent.
func (t *kdTree) search(node int32, q []float64, skip int32, h *boundedMaxHeap) {
	if node < 0 {
		return
	}
	n := &t.nodes[node]
	p := t.pts[n.point]
	if n.point != skip {
		h.offer(t.reduced(q, p))
	}

	diff := q[n.axis] - p[n.axis]
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}
	t.search(near, q, skip, h)

	plane := diff * diff
	if t.norm == NormChebyshev {
		plane = math.Abs(diff)
	}
	if !h.full() || plane < h.worst() {
		t.search(far, q, skip, h)
	}
}

func (t *kdTree) reduced(a, b []float64) float64 {
	if t.norm == NormChebyshev {
		m := 0.0
		for i := range a {
			d := math.Abs(a[i] - b[i])
			if d > m {
				m = d
			}
		}
		return m
	}
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// boundedMaxHeap keeps the limit smallest values offered to it, with the
// largest of those at the root.
type boundedMaxHeap struct {
	vals  []float64
	limit int
}

func (h *boundedMaxHeap) full() bool { return len(h.vals) == h.limit }

// worst returns the current k-th smallest candidate, or +Inf while the
// heap is underfull.
func (h *boundedMaxHeap) worst() float64 {
	if !h.full() {
		return math.Inf(1)
	}
	return h.vals[0]
}

func (h *boundedMaxHeap) offer(v float64) {
	if len(h.vals) < h.limit {
		h.vals = append(h.vals, v)
		h.siftUp(len(h.vals) - 1)
		return
	}
	if v >= h.vals[0] {
		return
	}
	h.vals[0] = v
	h.siftDown(0)
}

func (h *boundedMaxHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.vals[parent] >= h.vals[i] {
			return
		}
		h.vals[parent], h.vals[i] = h.vals[i], h.vals[parent]
		i = parent
	}
}

func (h *boundedMaxHeap) siftDown(i int) {
	n := len(h.vals)
	for {
		l, r := 2*i+1, 2*i+2
		largest := i
		if l < n && h.vals[l] > h.vals[largest] {
			largest = l
		}
		if r < n && h.vals[r] > h.vals[largest] {
			largest = r
		}
		if largest == i {
			return
		}
		h.vals[i], h.vals[largest] = h.vals[largest], h.vals[i]
		i = largest
	}
}
