package match

import (
	"context"
	"fmt"
)

// Matrix holds one similarity per source column (rows) and target field
// (columns), each in [0, 1].
type Matrix [][]float64

// Scorer is a similarity strategy. Implementations must return a
// len(sources) x len(targets) matrix.
type Scorer interface {
	Name() string
	Score(ctx context.Context, sources, targets []string) (Matrix, error)
}

// Fuzzy scores names by normalized Levenshtein similarity.
type Fuzzy struct{}

func (Fuzzy) Name() string { return MethodFuzzy }

func (Fuzzy) Score(_ context.Context, sources, targets []string) (Matrix, error) {
	m := make(Matrix, len(sources))
	for i, s := range sources {
		m[i] = make([]float64, len(targets))
		for j, t := range targets {
			m[i][j] = NameSimilarity(s, t)
		}
	}
	return m, nil
}

func (m Matrix) check(sources, targets int) error {
	if len(m) != sources {
		return fmt.Errorf("score matrix has %d rows, want %d", len(m), sources)
	}
	for i, row := range m {
		if len(row) != targets {
			return fmt.Errorf("score matrix row %d has %d columns, want %d", i, len(row), targets)
		}
	}
	return nil
}
