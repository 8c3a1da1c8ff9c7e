package vocab

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/bow"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/internal/arena"
)

var (
	// ErrInvalidBranching is returned when the branching factor k is below 2.
	ErrInvalidBranching = errors.New("vocab: branching factor must be at least 2")
	// ErrInvalidDepth is returned when the tree depth L is below 1.
	ErrInvalidDepth = errors.New("vocab: depth must be at least 1")
	// ErrEmptyTraining is returned when the training set contains no descriptors.
	ErrEmptyTraining = errors.New("vocab: training set contains no descriptors")
)

// Options configures vocabulary construction.
type Options struct {
	// MaxIterations bounds the k-means refinement loop per cluster.
	MaxIterations int

	// Parallelism caps the number of subtrees built concurrently.
	// Zero means GOMAXPROCS.
	Parallelism int

	// Logger receives build progress. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions are the construction defaults.
var DefaultOptions = Options{
	MaxIterations: 100,
}

// Build trains a vocabulary tree from per-image descriptor sets.
//
// All descriptors are pooled and recursively partitioned with k-means under
// the trait's distance and centroid operations. Initial cluster centers are
// chosen deterministically (greedy farthest-point from the pool, starting at
// the first descriptor), and node and word ids are assigned by a sequential
// numbering pass after clustering, so identical inputs always produce an
// identical tree no matter how the parallel recursion was scheduled.
func Build(ctx context.Context, trait descriptor.Trait, images [][]descriptor.Descriptor, params Params, opts Options) (*Vocabulary, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions.MaxIterations
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}

	length := trait.Length()
	var pool []descriptor.Descriptor
	for _, img := range images {
		for _, d := range img {
			if len(d) != length {
				return nil, &descriptor.ErrLengthMismatch{Expected: length, Actual: len(d)}
			}
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyTraining
	}

	if opts.Logger != nil {
		opts.Logger.Info("building vocabulary",
			slog.Int("k", params.K),
			slog.Int("L", params.Depth),
			slog.Int("descriptors", len(pool)),
			slog.Int("images", len(images)))
	}

	b := &treeBuilder{trait: trait, params: params, opts: opts}
	root, err := b.buildRoot(ctx, pool)
	if err != nil {
		return nil, err
	}

	v := assembleTree(trait, params, root)
	if err := v.setWordWeights(ctx, images, opts); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Info("vocabulary built",
			slog.Int("nodes", v.NodeCount()),
			slog.Int("words", v.Size()))
	}
	return v, nil
}

// buildNode is a tree vertex during construction, before ids exist.
type buildNode struct {
	descriptor descriptor.Descriptor
	children   []*buildNode
}

type treeBuilder struct {
	trait  descriptor.Trait
	params Params
	opts   Options
}

// buildRoot clusters the pool into the root's children and grows each
// subtree. First-level subtrees operate on disjoint descriptor subsets, so
// they are built concurrently and joined at the fan-in.
func (b *treeBuilder) buildRoot(ctx context.Context, pool []descriptor.Descriptor) (*buildNode, error) {
	items := make([]int, len(pool))
	for i := range items {
		items[i] = i
	}

	root := &buildNode{}
	clusters, centroids := b.cluster(pool, items)

	root.children = make([]*buildNode, len(clusters))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Parallelism)
	for i := range clusters {
		child := &buildNode{descriptor: centroids[i]}
		root.children[i] = child
		g.Go(func() error {
			return b.grow(ctx, pool, child, clusters[i], 1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return root, nil
}

// grow recursively partitions items below node until depth L.
func (b *treeBuilder) grow(ctx context.Context, pool []descriptor.Descriptor, node *buildNode, items []int, level int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if level == b.params.Depth {
		return nil // leaf
	}

	clusters, centroids := b.cluster(pool, items)
	node.children = make([]*buildNode, len(clusters))
	for i := range clusters {
		child := &buildNode{descriptor: centroids[i]}
		node.children[i] = child
		if err := b.grow(ctx, pool, child, clusters[i], level+1); err != nil {
			return err
		}
	}
	return nil
}

// cluster partitions items into at most k groups. With k or fewer items each
// one is its own cluster; otherwise Lloyd's algorithm runs from a
// deterministic farthest-point seeding until assignments are stable.
func (b *treeBuilder) cluster(pool []descriptor.Descriptor, items []int) ([][]int, []descriptor.Descriptor) {
	k := b.params.K
	if len(items) <= k {
		clusters := make([][]int, len(items))
		centroids := make([]descriptor.Descriptor, len(items))
		for i, it := range items {
			clusters[i] = []int{it}
			centroids[i] = pool[it]
		}
		return clusters, centroids
	}

	centroids := b.seedCentroids(pool, items)
	assign := make([]int, len(items))
	for i := range assign {
		assign[i] = -1
	}

	scratch := make([]descriptor.Descriptor, 0, len(items))
	for iter := 0; iter < b.opts.MaxIterations; iter++ {
		changed := false
		for i, it := range items {
			best, bestDist := 0, b.trait.Distance(pool[it], centroids[0])
			for c := 1; c < len(centroids); c++ {
				if d := b.trait.Distance(pool[it], centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids; clusters that emptied are dropped and the
		// remaining ones keep their relative order.
		members := make([][]int, len(centroids))
		for i, it := range items {
			members[assign[i]] = append(members[assign[i]], it)
		}
		live := centroids[:0]
		remap := make([]int, len(centroids))
		for c := range members {
			if len(members[c]) == 0 {
				remap[c] = -1
				continue
			}
			scratch = scratch[:0]
			for _, it := range members[c] {
				scratch = append(scratch, pool[it])
			}
			remap[c] = len(live)
			live = append(live, b.trait.Centroid(scratch))
		}
		centroids = live
		for i := range assign {
			assign[i] = remap[assign[i]]
		}
	}

	clusters := make([][]int, len(centroids))
	for i, it := range items {
		clusters[assign[i]] = append(clusters[assign[i]], it)
	}
	return clusters, centroids
}

// seedCentroids picks k well-separated descriptors: the first item seeds the
// set, then each next center is the item farthest from all chosen centers,
// ties resolving to the lowest item index.
func (b *treeBuilder) seedCentroids(pool []descriptor.Descriptor, items []int) []descriptor.Descriptor {
	k := b.params.K
	centroids := make([]descriptor.Descriptor, 0, k)
	centroids = append(centroids, pool[items[0]])

	minDist := make([]float64, len(items))
	for i, it := range items {
		minDist[i] = b.trait.Distance(pool[it], centroids[0])
	}

	for len(centroids) < k {
		best, bestDist := -1, -1.0
		for i := range items {
			if minDist[i] > bestDist {
				best, bestDist = i, minDist[i]
			}
		}
		if bestDist <= 0 {
			break // fewer than k distinct descriptors
		}
		next := pool[items[best]]
		centroids = append(centroids, next)
		for i, it := range items {
			if d := b.trait.Distance(pool[it], next); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centroids
}

// assembleTree numbers the build tree and freezes it into a Vocabulary.
// Children of each node receive consecutive ids before any deeper node, and
// words are numbered in ascending leaf id order.
func assembleTree(trait descriptor.Trait, params Params, root *buildNode) *Vocabulary {
	count := countNodes(root)
	nodes := arena.New[Node](count)
	nodes.Put(0, Node{ID: 0, Parent: 0})

	ids := map[*buildNode]NodeID{root: 0}
	next := NodeID(1)
	var number func(n *buildNode)
	number = func(n *buildNode) {
		parent := ids[n]
		p := nodes.Ref(uint32(parent))
		for _, c := range n.children {
			ids[c] = next
			p.Children = append(p.Children, next)
			nodes.Put(uint32(next), Node{ID: next, Parent: parent, Descriptor: c.descriptor})
			// Put may relocate storage.
			p = nodes.Ref(uint32(parent))
			next++
		}
		for _, c := range n.children {
			number(c)
		}
	}
	number(root)

	v := &Vocabulary{params: params, trait: trait, nodes: nodes}
	v.createWords()
	return v
}

func countNodes(n *buildNode) int {
	total := 1
	for _, c := range n.children {
		total += countNodes(c)
	}
	return total
}

// createWords numbers the leaves in ascending node id order.
func (v *Vocabulary) createWords() {
	v.words = v.words[:0]
	v.nodes.Range(func(id uint32, n Node) bool {
		if len(n.Children) == 0 && id != 0 {
			ref := v.nodes.Ref(id)
			ref.isWord = true
			ref.Word = bow.WordID(len(v.words))
			v.words = append(v.words, NodeID(id))
		}
		return true
	})
}

// setWordWeights fills in leaf weights. Idf-carrying schemes need the word
// document frequencies over the training images; each image's word-presence
// set is computed concurrently (the tree is already immutable here) and the
// per-word image bitmaps are merged in image order.
func (v *Vocabulary) setWordWeights(ctx context.Context, images [][]descriptor.Descriptor, opts Options) error {
	if !v.params.Weighting.UsesIDF() {
		for _, nid := range v.words {
			v.nodes.Ref(uint32(nid)).Weight = 1
		}
		return nil
	}

	present := make([][]bow.WordID, len(images))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, img := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen := map[bow.WordID]struct{}{}
			for _, d := range img {
				w, _ := v.descend(d, 0)
				seen[w] = struct{}{}
			}
			words := make([]bow.WordID, 0, len(seen))
			for w := range seen {
				words = append(words, w)
			}
			present[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	freq := make([]*roaring.Bitmap, len(v.words))
	for i := range freq {
		freq[i] = roaring.New()
	}
	for i, words := range present {
		for _, w := range words {
			freq[w].Add(uint32(i))
		}
	}

	n := float64(len(images))
	for w, nid := range v.words {
		if nw := freq[w].GetCardinality(); nw > 0 {
			v.nodes.Ref(uint32(nid)).Weight = math.Log(n / float64(nw))
		}
	}
	return nil
}
