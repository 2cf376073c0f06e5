package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Node is one node of a fitted tree. Leaves carry Value: class
// probabilities for classifiers, a single mean for regressors.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
	Impurity  float64
	Samples   int
}

// criterion accumulates sufficient statistics for one node and scores them.
type criterion interface {
	nStats() int
	add(stats []float64, row int, w float64)
	impurity(stats []float64) float64
	weight(stats []float64) float64
	leaf(stats []float64) []float64
}

type giniCriterion struct {
	target   []int
	nClasses int
	entropy  bool
}

func (c *giniCriterion) nStats() int { return c.nClasses }

func (c *giniCriterion) add(stats []float64, row int, w float64) { stats[c.target[row]] += w }

func (c *giniCriterion) weight(stats []float64) float64 {
	total := 0.0
	for _, s := range stats {
		total += s
	}
	return total
}

func (c *giniCriterion) impurity(stats []float64) float64 {
	total := c.weight(stats)
	if total == 0 {
		return 0
	}
	imp := 0.0
	if c.entropy {
		for _, s := range stats {
			if s > 0 {
				p := s / total
				imp -= p * math.Log2(p)
			}
		}
		return imp
	}
	imp = 1
	for _, s := range stats {
		p := s / total
		imp -= p * p
	}
	return imp
}

func (c *giniCriterion) leaf(stats []float64) []float64 {
	total := c.weight(stats)
	out := make([]float64, len(stats))
	for i, s := range stats {
		if total > 0 {
			out[i] = s / total
		}
	}
	return out
}

type varianceCriterion struct {
	target []float64
}

func (c *varianceCriterion) nStats() int { return 3 }

func (c *varianceCriterion) add(stats []float64, row int, w float64) {
	y := c.target[row]
	stats[0] += w
	stats[1] += w * y
	stats[2] += w * y * y
}

func (c *varianceCriterion) weight(stats []float64) float64 { return stats[0] }

func (c *varianceCriterion) impurity(stats []float64) float64 {
	if stats[0] == 0 {
		return 0
	}
	mean := stats[1] / stats[0]
	return math.Max(stats[2]/stats[0]-mean*mean, 0)
}

func (c *varianceCriterion) leaf(stats []float64) []float64 {
	if stats[0] == 0 {
		return []float64{0}
	}
	return []float64{stats[1] / stats[0]}
}

// growConfig holds the stopping rules shared by both tree kinds.
type growConfig struct {
	maxDepth    int
	minSplit    int
	minLeaf     int
	minInfoGain float64
	maxFeatures int
}

type builder struct {
	cfg     growConfig
	data    *Binned
	crit    criterion
	weights []float64
	rng     *rand.Rand

	nodes       []Node
	importances []float64
}

func newBuilder(cfg growConfig, data *Binned, crit criterion, weights []float64, rng *rand.Rand) *builder {
	return &builder{
		cfg:         cfg,
		data:        data,
		crit:        crit,
		weights:     weights,
		rng:         rng,
		importances: make([]float64, data.NFeatures()),
	}
}

func (b *builder) w(row int) float64 {
	if b.weights == nil {
		return 1
	}
	return b.weights[row]
}

// build grows the tree over rows and returns the node list with root 0.
func (b *builder) build(rows []int) ([]Node, []float64) {
	b.grow(rows, 0)
	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}
	return b.nodes, b.importances
}

type split struct {
	feature int
	bin     int
	gain    float64
	ok      bool
}

func (b *builder) grow(rows []int, depth int) int {
	stats := make([]float64, b.crit.nStats())
	for _, r := range rows {
		b.crit.add(stats, r, b.w(r))
	}
	imp := b.crit.impurity(stats)

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Leaf:     true,
		Value:    b.crit.leaf(stats),
		Impurity: imp,
		Samples:  len(rows),
	})

	if depth >= b.cfg.maxDepth || len(rows) < b.cfg.minSplit || imp <= 0 {
		return id
	}
	best := b.bestSplit(rows, stats, imp)
	if !best.ok {
		return id
	}

	bins := b.data.bins[best.feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, r := range rows {
		if int(bins[r]) <= best.bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	rt := b.grow(right, depth+1)

	n := &b.nodes[id]
	n.Leaf = false
	n.Feature = best.feature
	n.Threshold = b.data.Thresholds[best.feature][best.bin]
	n.Left = l
	n.Right = rt
	b.importances[best.feature] += best.gain * b.crit.weight(stats)
	return id
}

func (b *builder) candidateFeatures() []int {
	d := b.data.NFeatures()
	if b.cfg.maxFeatures <= 0 || b.cfg.maxFeatures >= d || b.rng == nil {
		out := make([]int, d)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := b.rng.Perm(d)[:b.cfg.maxFeatures]
	// ascending order keeps tie-breaking independent of the draw order
	sort.Ints(perm)
	return perm
}

func (b *builder) bestSplit(rows []int, parent []float64, parentImp float64) split {
	ns := b.crit.nStats()
	totalW := b.crit.weight(parent)
	best := split{}

	left := make([]float64, ns)
	right := make([]float64, ns)

	for _, f := range b.candidateFeatures() {
		nThr := len(b.data.Thresholds[f])
		if nThr == 0 {
			continue
		}
		nBins := nThr + 1
		hist := make([]float64, nBins*ns)
		counts := make([]int, nBins)
		bins := b.data.bins[f]
		for _, r := range rows {
			bin := int(bins[r])
			b.crit.add(hist[bin*ns:(bin+1)*ns], r, b.w(r))
			counts[bin]++
		}

		for i := range left {
			left[i] = 0
		}
		nLeft := 0
		for bin := 0; bin < nThr; bin++ {
			for i := 0; i < ns; i++ {
				left[i] += hist[bin*ns+i]
			}
			nLeft += counts[bin]
			nRight := len(rows) - nLeft
			if nLeft < b.cfg.minLeaf || nRight < b.cfg.minLeaf {
				continue
			}
			for i := 0; i < ns; i++ {
				right[i] = parent[i] - left[i]
			}
			lw, rw := b.crit.weight(left), b.crit.weight(right)
			if lw <= 0 || rw <= 0 {
				continue
			}
			gain := parentImp - lw/totalW*b.crit.impurity(left) - rw/totalW*b.crit.impurity(right)
			if gain > b.cfg.minInfoGain+1e-12 && gain > best.gain {
				best = split{feature: f, bin: bin, gain: gain, ok: true}
			}
		}
	}
	return best
}

// leafFor walks nodes from the root for one row.
func leafFor(nodes []Node, row []float64) *Node {
	i := 0
	for !nodes[i].Leaf {
		if row[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return &nodes[i]
}

func depthOf(nodes []Node, i int) int {
	if nodes[i].Leaf {
		return 0
	}
	return 1 + max(depthOf(nodes, nodes[i].Left), depthOf(nodes, nodes[i].Right))
}

func countLeaves(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		if node.Leaf {
			n++
		}
	}
	return n
}
