package match

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

// Similarity methods.
const (
	MethodFuzzy    = "fuzzy"
	MethodSemantic = "semantic"
)

// Assignment policies.
const (
	AssignOptimal = "optimal"
	AssignLegacy  = "legacy"
)

// DefaultOptionalMinScore is the floor for optional fields when none is
// configured. Required fields are always offered a column.
const DefaultOptionalMinScore = 0.5

// Options selects and configures a Matcher.
type Options struct {
	Method     string // fuzzy (default) or semantic
	Assignment string // optimal (default) or legacy
	MinScore   float64

	// OptionalMinScore is the lowest similarity at which MatchSection
	// assigns an optional field. Zero means DefaultOptionalMinScore; the
	// effective floor is never below MinScore.
	OptionalMinScore float64

	// Semantic method only.
	APIKey    string
	Model     string
	Timeout   time.Duration
	Generator Generator // overrides the Gemini client when set
}

// Result is the outcome of one matching pass.
type Result struct {
	Method     string             `json:"method"`
	Assignment string             `json:"assignment"`
	Mapping    core.Mapping       `json:"mapping"`
	Unused     []string           `json:"unused"`
	Scores     map[string]float64 `json:"scores"`
}

// Matcher maps source columns to target fields.
type Matcher struct {
	scorer     Scorer
	assignment  string
	minScore    float64
	optionalMin float64
}

// New builds a Matcher from opts. Configuration problems, including the
// semantic method without a credential, are reported before any matching.
func New(ctx context.Context, opts Options) (*Matcher, error) {
	method := strings.ToLower(strings.TrimSpace(opts.Method))
	if method == "" {
		method = MethodFuzzy
	}

	var scorer Scorer
	switch method {
	case MethodFuzzy:
		scorer = Fuzzy{}
	case MethodSemantic, "ai":
		gen := opts.Generator
		if gen == nil {
			if strings.TrimSpace(opts.APIKey) == "" {
				return nil, core.NewConfigurationError("api_key", "the semantic method requires an API key")
			}
			g, err := NewGeminiGenerator(ctx, opts.APIKey, opts.Model)
			if err != nil {
				return nil, &core.ConfigurationError{Setting: "api_key", Message: "could not create the semantic client", Err: err}
			}
			gen = g
		}
		scorer = NewSemantic(gen, opts.Model, opts.Timeout)
	default:
		return nil, core.NewConfigurationError("method", "unknown matching method "+quote(opts.Method)+", choose fuzzy or semantic")
	}

	m, err := NewWithScorer(scorer, opts.Assignment, opts.MinScore)
	if err != nil {
		return nil, err
	}
	if opts.OptionalMinScore < 0 || opts.OptionalMinScore > 1 {
		return nil, core.NewConfigurationError("optional_min_score", "must be between 0 and 1")
	}
	if opts.OptionalMinScore > 0 {
		m.optionalMin = opts.OptionalMinScore
	}
	return m, nil
}

// NewWithScorer builds a Matcher around an existing Scorer.
func NewWithScorer(scorer Scorer, assignment string, minScore float64) (*Matcher, error) {
	a := strings.ToLower(strings.TrimSpace(assignment))
	if a == "" {
		a = AssignOptimal
	}
	if a != AssignOptimal && a != AssignLegacy {
		return nil, core.NewConfigurationError("assignment", "unknown assignment "+quote(assignment)+", choose optimal or legacy")
	}
	if minScore < 0 || minScore > 1 {
		return nil, core.NewConfigurationError("min_score", "must be between 0 and 1")
	}
	return &Matcher{scorer: scorer, assignment: a, minScore: minScore, optionalMin: DefaultOptionalMinScore}, nil
}

// Method returns the name of the similarity strategy.
func (m *Matcher) Method() string { return m.scorer.Name() }

// Match maps sources onto targets. Duplicate and blank names are ignored.
func (m *Matcher) Match(ctx context.Context, sources, targets []string) (*Result, error) {
	return m.match(ctx, sources, targets, nil)
}

// MatchSection maps sources onto the fields of def. Required fields accept
// any column at or above MinScore; optional fields only claim a column at
// or above the optional floor, so unrelated columns stay unused.
func (m *Matcher) MatchSection(ctx context.Context, sources []string, def core.SectionDefinition) (*Result, error) {
	floors := make(map[string]float64, len(def.Fields))
	for _, f := range def.Optional() {
		floors[f] = max(m.minScore, m.optionalMin)
	}
	return m.match(ctx, sources, def.FieldNames(), floors)
}

// match scores and assigns. floors overrides MinScore per target name.
func (m *Matcher) match(ctx context.Context, sources, targets []string, floors map[string]float64) (*Result, error) {
	sources, targets = distinct(sources), distinct(targets)

	scores, err := m.scorer.Score(ctx, sources, targets)
	if err != nil {
		return nil, err
	}
	if err := scores.check(len(sources), len(targets)); err != nil {
		return nil, err
	}

	minScores := make([]float64, len(targets))
	for j, t := range targets {
		minScores[j] = m.minScore
		if f, ok := floors[t]; ok {
			minScores[j] = f
		}
	}

	var picks []pick
	if m.assignment == AssignLegacy {
		picks = assignLegacy(scores, minScores)
	} else {
		picks = assignOptimal(scores, minScores)
	}

	res := &Result{
		Method:     m.scorer.Name(),
		Assignment: m.assignment,
		Mapping:    make(core.Mapping, len(picks)),
		Scores:     make(map[string]float64, len(picks)),
	}
	for _, p := range picks {
		res.Mapping[targets[p.target]] = sources[p.source]
		res.Scores[targets[p.target]] = scores[p.source][p.target]
	}
	res.Unused = Unused(sources, res.Mapping)

	logging.FromContext(ctx).Debug("columns matched",
		"method", res.Method,
		"assignment", res.Assignment,
		"mapped", len(res.Mapping),
		"unused", len(res.Unused),
	)
	return res, nil
}

type pick struct {
	source, target int
}

// assignOptimal claims pairs in descending score order. Ties go to the
// target declared first, then to the earlier source column. A pair below
// its target's minimum is never claimed.
func assignOptimal(scores Matrix, minScores []float64) []pick {
	var pairs []pick
	for i, row := range scores {
		for j, v := range row {
			if v >= minScores[j] {
				pairs = append(pairs, pick{source: i, target: j})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		if sa, sb := scores[pa.source][pa.target], scores[pb.source][pb.target]; sa != sb {
			return sa > sb
		}
		if pa.target != pb.target {
			return pa.target < pb.target
		}
		return pa.source < pb.source
	})

	usedSource := make(map[int]bool)
	usedTarget := make(map[int]bool)
	var out []pick
	for _, p := range pairs {
		if usedSource[p.source] || usedTarget[p.target] {
			continue
		}
		usedSource[p.source] = true
		usedTarget[p.target] = true
		out = append(out, p)
	}
	return out
}

// assignLegacy lets each source, in order, take its best target among those
// it reaches the minimum for. A source whose best target is already taken
// stays unused.
func assignLegacy(scores Matrix, minScores []float64) []pick {
	usedTarget := make(map[int]bool)
	var out []pick
	for i, row := range scores {
		best := -1
		for j, v := range row {
			if v < minScores[j] {
				continue
			}
			if best < 0 || v > row[best] {
				best = j
			}
		}
		if best < 0 || usedTarget[best] {
			continue
		}
		usedTarget[best] = true
		out = append(out, pick{source: i, target: best})
	}
	return out
}

// Unused returns the columns not claimed by mapping, in column order.
func Unused(columns []string, mapping core.Mapping) []string {
	claimed := make(map[string]bool, len(mapping))
	for _, col := range mapping {
		claimed[col] = true
	}
	out := []string{}
	for _, c := range columns {
		if !claimed[c] {
			out = append(out, c)
		}
	}
	return out
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func quote(s string) string { return `"` + s + `"` }
