package model

import "strings"

// Dimension is one axis of the investor profile
type Dimension string

const (
	DimensionEnvironmental Dimension = "Environmental"
	DimensionSocial        Dimension = "Social"
	DimensionGovernance    Dimension = "Governance"
	DimensionRisk          Dimension = "Risk"

	// DimensionNone marks an answer with no dominant dimension. It is a
	// valid classification outcome, not an error.
	DimensionNone Dimension = "None"
)

// Dimensions lists the four profile axes in display order. The set is
// closed; DimensionNone is deliberately excluded.
var Dimensions = []Dimension{
	DimensionEnvironmental,
	DimensionSocial,
	DimensionGovernance,
	DimensionRisk,
}

// dimensionAliases maps lowercase labels (English and Spanish, as the
// oracle emits them) to canonical dimensions.
var dimensionAliases = map[string]Dimension{
	"environmental": DimensionEnvironmental,
	"ambiental":     DimensionEnvironmental,
	"social":        DimensionSocial,
	"governance":    DimensionGovernance,
	"gobernanza":    DimensionGovernance,
	"risk":          DimensionRisk,
	"riesgo":        DimensionRisk,
	"none":          DimensionNone,
	"unclear":       DimensionNone,
	"":              DimensionNone,
}

// SpanishLabel returns the label the original advisor used for user-facing
// text and narrative summaries.
func (d Dimension) SpanishLabel() string {
	switch d {
	case DimensionEnvironmental:
		return "Ambiental"
	case DimensionGovernance:
		return "Gobernanza"
	case DimensionRisk:
		return "Riesgo"
	default:
		return string(d)
	}
}

// ParseDimension normalizes an oracle-provided label into a Dimension.
// The bool is false for labels outside the closed enum-plus-none set.
func ParseDimension(label string) (Dimension, bool) {
	d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(label))]
	return d, ok
}

const (
	ScoreMin = 0
	ScoreMax = 100
)

// ScoreVector maps every dimension to a score in [ScoreMin, ScoreMax].
// All four dimensions are always present.
type ScoreVector map[Dimension]int

// NewScoreVector returns a vector with all dimensions at zero.
func NewScoreVector() ScoreVector {
	v := make(ScoreVector, len(Dimensions))
	for _, d := range Dimensions {
		v[d] = 0
	}
	return v
}

// Add increments a dimension by delta, clamping the result to the score
// domain. Unknown dimensions (including None) are ignored.
func (v ScoreVector) Add(d Dimension, delta int) {
	for _, known := range Dimensions {
		if d == known {
			v[d] = ClampScore(v[d] + delta)
			return
		}
	}
}

// Set writes a clamped absolute value for a dimension.
func (v ScoreVector) Set(d Dimension, value int) {
	for _, known := range Dimensions {
		if d == known {
			v[d] = ClampScore(value)
			return
		}
	}
}

// Clone returns an independent copy of the vector.
func (v ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(v))
	for d, s := range v {
		out[d] = s
	}
	return out
}

// ClampScore bounds a value to [ScoreMin, ScoreMax].
func ClampScore(value int) int {
	if value < ScoreMin {
		return ScoreMin
	}
	if value > ScoreMax {
		return ScoreMax
	}
	return value
}
