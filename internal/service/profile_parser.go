package service

import (
	"fmt"
	"regexp"
	"strconv"

	"esgadvisor/internal/model"
)

// Label-anchored extraction of the four profile scores from the oracle's
// free-form narrative. Each dimension matches on its English or Spanish
// label followed by a colon (or dash) and an integer.

var dimensionLabels = map[model.Dimension]string{
	model.DimensionEnvironmental: `environmental|ambiental`,
	model.DimensionSocial:        `social`,
	model.DimensionGovernance:    `governance|gobernanza`,
	model.DimensionRisk:          `risk|riesgo`,
}

var (
	labelPresence = make(map[model.Dimension]*regexp.Regexp, len(dimensionLabels))
	labelValue    = make(map[model.Dimension]*regexp.Regexp, len(dimensionLabels))
)

func init() {
	for d, labels := range dimensionLabels {
		labelPresence[d] = regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s)\b`, labels))
		labelValue[d] = regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s)\b\s*[:\-]\s*(\d+)`, labels))
	}
}

// ParseProfile extracts the four dimension scores from a narrative. It
// succeeds only when every dimension is present with a parseable
// non-negative integer; otherwise it returns a *model.ProfileParseError
// naming the missing and invalid labels. Out-of-range values are clamped,
// never rejected. Deterministic over the same input.
func ParseProfile(narrative string) (model.ScoreVector, error) {
	scores := model.NewScoreVector()
	parseErr := &model.ProfileParseError{}

	for _, d := range model.Dimensions {
		match := labelValue[d].FindStringSubmatch(narrative)
		if match == nil {
			if labelPresence[d].MatchString(narrative) {
				parseErr.Invalid = append(parseErr.Invalid, d)
			} else {
				parseErr.Missing = append(parseErr.Missing, d)
			}
			continue
		}
		value, err := strconv.Atoi(match[1])
		if err != nil {
			// digits overflowed int; clamp handles it as out-of-range
			value = model.ScoreMax
		}
		scores.Set(d, value)
	}

	if len(parseErr.Missing) > 0 || len(parseErr.Invalid) > 0 {
		return nil, parseErr
	}
	return scores, nil
}
