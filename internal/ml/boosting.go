package ml

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// stump is a depth-one regression tree
type stump struct {
	Feature   int
	Threshold float64
	Left      float64
	Right     float64
}

func (s stump) predict(x []float64) float64 {
	if x[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// Boosting is a multi-class gradient-boosted ensemble of stumps on the softmax loss.
// Split candidates are quantile thresholds computed once per fit.
type Boosting struct {
	cfg    config.BoostingConfig
	schema []string
	prior  []float64
	trees  [][]stump // [round][class]
	splits []float64
	width  int
}

// NewBoosting creates an unfitted classifier
func NewBoosting(cfg config.BoostingConfig) *Boosting {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 60
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.MinLeaf <= 0 {
		cfg.MinLeaf = 5
	}
	if cfg.Bins < 2 {
		cfg.Bins = 16
	}
	return &Boosting{cfg: cfg}
}

func (b *Boosting) Name() string { return ModelBoosting }
func (b *Boosting) Kind() string { return "discriminative" }

// Fit trains the ensemble on the dataset's feature matrix
func (b *Boosting) Fit(ctx context.Context, ds *features.Dataset) error {
	x, y := ds.X(), ds.Y()
	if len(x) == 0 {
		return fmt.Errorf("%w: boosting needs at least one sample", models.ErrInvalidInputs)
	}
	b.schema = append([]string(nil), ds.Schema...)
	b.width = len(x[0])
	k := NumClasses
	n := len(x)

	thresholds := make([][]float64, b.width)
	binned := make([][]int, b.width)
	for j := 0; j < b.width; j++ {
		thresholds[j] = quantileThresholds(x, j, b.cfg.Bins)
		binned[j] = make([]int, n)
		for i := range x {
			binned[j][i] = sort.SearchFloat64s(thresholds[j], x[i][j])
		}
	}

	// start from the log class priors
	counts := make([]float64, k)
	for _, label := range y {
		counts[label]++
	}
	b.prior = make([]float64, k)
	for c := range counts {
		b.prior[c] = math.Log((counts[c] + 1) / (float64(n) + float64(k)))
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), b.prior...)
	}
	b.trees = nil
	b.splits = make([]float64, b.width)
	residual := make([]float64, n)
	prob := make([]float64, k)

	for round := 0; round < b.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		probs := make([][]float64, n)
		for i := range scores {
			copy(prob, scores[i])
			softmaxInPlace(prob)
			probs[i] = append([]float64(nil), prob...)
		}

		roundTrees := make([]stump, k)
		for c := 0; c < k; c++ {
			for i := range residual {
				target := 0.0
				if y[i] == c {
					target = 1
				}
				residual[i] = target - probs[i][c]
			}
			st, ok := b.bestStump(binned, thresholds, residual, k)
			if ok {
				b.splits[st.Feature]++
			}
			roundTrees[c] = st
		}
		for i := range scores {
			for c, st := range roundTrees {
				scores[i][c] += b.cfg.LearningRate * st.predict(x[i])
			}
		}
		b.trees = append(b.trees, roundTrees)
	}
	return nil
}

// bestStump returns the least-squares split on residuals; ok is false when no split
// satisfies the minimum leaf size and a constant stump is returned instead.
func (b *Boosting) bestStump(binned [][]int, thresholds [][]float64, residual []float64, k int) (stump, bool) {
	n := len(residual)
	var total, totalHess float64
	for _, r := range residual {
		total += r
		totalHess += hessian(r)
	}

	best := stump{Feature: 0, Threshold: math.Inf(1)}
	leaf := newtonLeaf(total, totalHess, k)
	best.Left, best.Right = leaf, leaf
	bestGain := 0.0
	found := false

	for j := range binned {
		nb := len(thresholds[j]) + 1
		if nb < 2 {
			continue
		}
		sum := make([]float64, nb)
		hess := make([]float64, nb)
		cnt := make([]int, nb)
		for i, bin := range binned[j] {
			sum[bin] += residual[i]
			hess[bin] += hessian(residual[i])
			cnt[bin]++
		}

		var sl, hl float64
		nl := 0
		for bin := 0; bin < nb-1; bin++ {
			sl += sum[bin]
			hl += hess[bin]
			nl += cnt[bin]
			nr := n - nl
			if nl < b.cfg.MinLeaf || nr < b.cfg.MinLeaf {
				continue
			}
			sr := total - sl
			gain := sl*sl/float64(nl) + sr*sr/float64(nr) - total*total/float64(n)
			if gain > bestGain+1e-12 {
				bestGain = gain
				found = true
				best = stump{
					Feature:   j,
					Threshold: thresholds[j][bin],
					Left:      newtonLeaf(sl, hl, k),
					Right:     newtonLeaf(sr, totalHess-hl, k),
				}
			}
		}
	}
	return best, found
}

func hessian(r float64) float64 {
	a := math.Abs(r)
	return a * (1 - a)
}

// newtonLeaf is the one-step Newton leaf value for the multi-class deviance
func newtonLeaf(sum, hess float64, k int) float64 {
	if hess < 1e-12 {
		return 0
	}
	return float64(k-1) / float64(k) * sum / hess
}

// PredictProba returns the 1X2 distribution of a sample
func (b *Boosting) PredictProba(sample *features.Sample) ([]float64, error) {
	return b.ProbaRow(sample.Vector.Values)
}

// ProbaRow returns class probabilities for one raw row
func (b *Boosting) ProbaRow(x []float64) ([]float64, error) {
	if b.prior == nil {
		return nil, models.ErrNoModel
	}
	if len(x) != b.width {
		return nil, fmt.Errorf("%w: boosting fitted on %d columns, got %d", models.ErrSchemaMismatch, b.width, len(x))
	}
	z := append([]float64(nil), b.prior...)
	for _, round := range b.trees {
		for c, st := range round {
			z[c] += b.cfg.LearningRate * st.predict(x)
		}
	}
	softmaxInPlace(z)
	return z, nil
}

// FeatureImportances is the share of splits made on each feature
func (b *Boosting) FeatureImportances() map[string]float64 {
	if b.splits == nil || len(b.schema) != len(b.splits) {
		return nil
	}
	return normaliseImportances(b.schema, b.splits)
}

// quantileThresholds returns up to bins-1 distinct split points for column j
func quantileThresholds(x [][]float64, j, bins int) []float64 {
	col := make([]float64, len(x))
	for i := range x {
		col[i] = x[i][j]
	}
	sort.Float64s(col)

	var out []float64
	for q := 1; q < bins; q++ {
		v := col[q*len(col)/bins]
		if v == col[len(col)-1] {
			break
		}
		if len(out) == 0 || v > out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
