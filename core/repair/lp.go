package repair

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/rosterd/core/model"
)

// ErrNoCandidates indicates the LP had no eligible candidate for any block.
var ErrNoCandidates = errors.New("repair: no eligible candidates for best-fit")

// lpSolve points to the simplex solver. Tests override it to simulate solver
// failures.
var lpSolve = lp.Simplex

// bestFit assigns candidates to affected blocks by maximizing the summed
// candidate scores under one-block-per-candidate and one-candidate-per-block
// constraints. The relaxation solves as an assignment problem, so the simplex
// vertex solution is integral.
func (o *Orchestrator) bestFit(ctx Context, inc model.IncidentSpec, affected []model.Assignment) (map[string]string, error) {
	type cell struct {
		block int
		cand  int
	}
	var cells []cell
	var scores []float64
	candIndex := make(map[string]int)
	var candIDs []string

	for bi, a := range affected {
		for _, c := range o.finder.Rank(ctx, a, o.finder.Eligible(ctx, a, inc.DriverID), StrategyBestFit) {
			ci, ok := candIndex[c.Driver.ID]
			if !ok {
				ci = len(candIDs)
				candIndex[c.Driver.ID] = ci
				candIDs = append(candIDs, c.Driver.ID)
			}
			cells = append(cells, cell{block: bi, cand: ci})
			scores = append(scores, c.Score)
		}
	}
	if len(cells) == 0 {
		return nil, ErrNoCandidates
	}

	// Standard form: maximize score*x subject to, per block and per
	// candidate, sum(x) + slack = 1.
	nVars := len(cells)
	nRows := len(affected) + len(candIDs)
	c := make([]float64, nVars+nRows)
	for i, s := range scores {
		c[i] = -s
	}
	A := mat.NewDense(nRows, nVars+nRows, nil)
	b := make([]float64, nRows)
	for i, cl := range cells {
		A.Set(cl.block, i, 1)
		A.Set(len(affected)+cl.cand, i, 1)
	}
	for r := 0; r < nRows; r++ {
		A.Set(r, nVars+r, 1)
		b[r] = 1
	}

	_, sol, err := lpSolve(c, A, b, 1e-7, nil)
	if err != nil {
		return nil, err
	}

	replacements := make(map[string]string)
	for i, cl := range cells {
		if sol[i] > 0.5 {
			replacements[affected[cl.block].BlockID] = candIDs[cl.cand]
		}
	}
	return replacements, nil
}
