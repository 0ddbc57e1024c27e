package ann

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
)

// HNSW implements Index as a hierarchical navigable small-world graph over
// cosine distance. The graph is mutated only during Build; afterwards it
// is read-only and safe for concurrent searches.
type HNSW struct {
	m              int // graph fan-out per level
	maxM0          int // fan-out allowance at layer 0
	efConstruction int
	efSearch       int
	levelMult      float64

	dim   int
	nodes []hnswNode
	built bool

	entryPoint int // node index of the top-level entry
	maxLevel   int

	rng *rand.Rand
}

type hnswNode struct {
	id        int64
	vector    []float32
	norm      float64
	level     int
	neighbors [][]int32 // per level, indices into nodes
}

// NewHNSW creates an empty index with the given graph parameters. m is
// the per-level fan-out, ef the search-list width used for both
// construction and search.
func NewHNSW(dim, m, ef int) *HNSW {
	if m < 2 {
		m = 2
	}
	if ef < 1 {
		ef = 1
	}
	return &HNSW{
		m:              m,
		maxM0:          m * 2,
		efConstruction: ef,
		efSearch:       ef,
		levelMult:      1.0 / math.Log(float64(m)),
		dim:            dim,
		// Fixed seed keeps graph shape reproducible for a given corpus
		rng: rand.New(rand.NewSource(0x5EED)),
	}
}

// Add accumulates a vector before Build
func (h *HNSW) Add(id int64, vector []float32) error {
	if h.built {
		return ErrAlreadyBuilt
	}
	if len(vector) != h.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), h.dim)
	}

	h.nodes = append(h.nodes, hnswNode{
		id:     id,
		vector: vector,
		norm:   l2norm(vector),
	})
	return nil
}

// Build constructs the graph from the accumulated vectors. The index is
// read-only afterwards.
func (h *HNSW) Build() error {
	if h.built {
		return ErrAlreadyBuilt
	}

	for i := range h.nodes {
		h.insert(i)
	}
	h.built = true
	return nil
}

// Search returns the k approximate nearest neighbours of vector by cosine
// distance
func (h *HNSW) Search(vector []float32, k int) ([]Neighbor, error) {
	if !h.built {
		return nil, ErrNotBuilt
	}
	if len(vector) != h.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), h.dim)
	}
	if len(h.nodes) == 0 || k <= 0 {
		return nil, nil
	}

	qnorm := l2norm(vector)

	// Greedy descent through the upper layers
	curr := h.entryPoint
	currDist := h.distanceTo(vector, qnorm, curr)
	for level := h.maxLevel; level > 0; level-- {
		curr, currDist = h.greedyStep(vector, qnorm, curr, currDist, level)
	}

	ef := h.efSearch
	if ef < k {
		ef = k
	}
	found := h.searchLayer(vector, qnorm, curr, currDist, 0, ef)

	// found is a max-heap; drain into ascending-distance order
	if k > len(found.items) {
		k = len(found.items)
	}
	out := make([]Neighbor, k)
	for len(found.items) > k {
		heap.Pop(found)
	}
	for i := k - 1; i >= 0; i-- {
		item := heap.Pop(found).(heapItem)
		out[i] = Neighbor{ID: h.nodes[item.node].id, Distance: item.dist}
	}
	return out, nil
}

// insert wires node i into the graph at a random level
func (h *HNSW) insert(i int) {
	level := h.randomLevel()
	node := &h.nodes[i]
	node.level = level
	node.neighbors = make([][]int32, level+1)

	if i == 0 {
		h.entryPoint = 0
		h.maxLevel = level
		return
	}

	vector := node.vector
	qnorm := node.norm

	curr := h.entryPoint
	currDist := h.distanceTo(vector, qnorm, curr)

	// Descend to the first level this node participates in
	for l := h.maxLevel; l > level; l-- {
		curr, currDist = h.greedyStep(vector, qnorm, curr, currDist, l)
	}

	top := level
	if top > h.maxLevel {
		top = h.maxLevel
	}
	for l := top; l >= 0; l-- {
		found := h.searchLayer(vector, qnorm, curr, currDist, l, h.efConstruction)

		allowed := h.m
		if l == 0 {
			allowed = h.maxM0
		}

		// Closest-first selection of up to m neighbours
		neighbors := closestN(found, h.m)
		node.neighbors[l] = neighbors

		for _, n := range neighbors {
			h.connect(int(n), i, l, allowed)
		}

		if len(neighbors) > 0 {
			curr = int(neighbors[0])
			currDist = h.distanceTo(vector, qnorm, curr)
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = i
	}
}

// connect adds neighbour j to node n at the given level, shrinking the
// list back to the fan-out allowance by dropping the farthest
func (h *HNSW) connect(n, j, level, allowed int) {
	node := &h.nodes[n]
	node.neighbors[level] = append(node.neighbors[level], int32(j))
	if len(node.neighbors[level]) <= allowed {
		return
	}

	// Evict the farthest neighbour
	worst := -1
	worstDist := -1.0
	for idx, nb := range node.neighbors[level] {
		d := h.distance(n, int(nb))
		if d > worstDist {
			worstDist = d
			worst = idx
		}
	}
	last := len(node.neighbors[level]) - 1
	node.neighbors[level][worst] = node.neighbors[level][last]
	node.neighbors[level] = node.neighbors[level][:last]
}

// greedyStep moves to the closest neighbour at the given level until no
// neighbour improves on the current distance
func (h *HNSW) greedyStep(vector []float32, qnorm float64, curr int, currDist float64, level int) (int, float64) {
	for {
		improved := false
		if level < len(h.nodes[curr].neighbors) {
			for _, nb := range h.nodes[curr].neighbors[level] {
				d := h.distanceTo(vector, qnorm, int(nb))
				if d < currDist {
					curr = int(nb)
					currDist = d
					improved = true
				}
			}
		}
		if !improved {
			return curr, currDist
		}
	}
}

// searchLayer runs a best-first beam search of width ef at one level and
// returns a max-heap of the ef closest nodes found
func (h *HNSW) searchLayer(vector []float32, qnorm float64, entry int, entryDist float64, level, ef int) *maxHeap {
	visited := map[int]struct{}{entry: {}}

	candidates := &minHeap{items: []heapItem{{node: entry, dist: entryDist}}}
	heap.Init(candidates)

	found := &maxHeap{items: []heapItem{{node: entry, dist: entryDist}}}
	heap.Init(found)

	for len(candidates.items) > 0 {
		c := heap.Pop(candidates).(heapItem)
		if c.dist > found.items[0].dist && len(found.items) >= ef {
			break
		}

		if level >= len(h.nodes[c.node].neighbors) {
			continue
		}
		for _, nb := range h.nodes[c.node].neighbors[level] {
			n := int(nb)
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}

			d := h.distanceTo(vector, qnorm, n)
			if len(found.items) < ef || d < found.items[0].dist {
				heap.Push(candidates, heapItem{node: n, dist: d})
				heap.Push(found, heapItem{node: n, dist: d})
				if len(found.items) > ef {
					heap.Pop(found)
				}
			}
		}
	}

	return found
}

// closestN drains up to n closest node indices from a max-heap of found
// nodes
func closestN(found *maxHeap, n int) []int32 {
	if n > len(found.items) {
		n = len(found.items)
	}
	for len(found.items) > n {
		heap.Pop(found)
	}
	out := make([]int32, len(found.items))
	for i := len(found.items) - 1; i >= 0; i-- {
		item := heap.Pop(found).(heapItem)
		out[i] = int32(item.node)
	}
	return out
}

func (h *HNSW) randomLevel() int {
	return int(math.Floor(-math.Log(h.rng.Float64()) * h.levelMult))
}

// distance computes cosine distance between two stored nodes
func (h *HNSW) distance(a, b int) float64 {
	return h.distanceTo(h.nodes[a].vector, h.nodes[a].norm, b)
}

// distanceTo computes cosine distance between a query vector and a stored
// node. A zero norm on either side yields distance 1 (similarity 0).
func (h *HNSW) distanceTo(vector []float32, qnorm float64, n int) float64 {
	node := &h.nodes[n]
	if qnorm == 0 || node.norm == 0 {
		return 1
	}

	var dot float64
	for i := range vector {
		dot += float64(vector[i]) * float64(node.vector[i])
	}
	return 1 - dot/(qnorm*node.norm)
}

func l2norm(vector []float32) float64 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// heapItem pairs a node index with its distance to the query
type heapItem struct {
	node int
	dist float64
}

// minHeap pops the closest item first
type minHeap struct {
	items []heapItem
}

func (h *minHeap) Len() int { return len(h.items) }
func (h *minHeap) Less(i, j int) bool { return h.items[i].dist < h.items[j].dist }
func (h *minHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *minHeap) Push(x interface{}) { h.items = append(h.items, x.(heapItem)) }
func (h *minHeap) Pop() interface{} {
	last := len(h.items) - 1
	item := h.items[last]
	h.items = h.items[:last]
	return item
}

// maxHeap pops the farthest item first
type maxHeap struct {
	items []heapItem
}

func (h *maxHeap) Len() int { return len(h.items) }
func (h *maxHeap) Less(i, j int) bool { return h.items[i].dist > h.items[j].dist }
func (h *maxHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *maxHeap) Push(x interface{}) { h.items = append(h.items, x.(heapItem)) }
func (h *maxHeap) Pop() interface{} {
	last := len(h.items) - 1
	item := h.items[last]
	h.items = h.items[:last]
	return item
}
