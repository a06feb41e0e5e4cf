package relations

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Magnitude thresholds for tier assignment. Bounds are inclusive, so a
// candidate sitting exactly on a threshold lands in the higher tier.
const (
	FrequentThreshold = 10_000_000
	AverageThreshold  = 1_000_000
)

// Candidate is one raw related-hashtag entry as produced by the page decoder.
type Candidate struct {
	Name      string
	Magnitude string
}

// Entry is a classified related hashtag inside one tier.
type Entry struct {
	Hash string `json:"hash"`
	Info string `json:"info"`
}

// Tiers holds the six related-hashtag buckets. Frequent/Average/Rare are the
// literal co-occurrence tiers and partition the parseable candidate pool;
// the Related* tiers hold the subset that is also name-similar to the
// requested hashtag, partitioned by the same thresholds. A candidate can
// appear in one literal tier and one semantic tier, never in two of either.
type Tiers struct {
	Frequent        []Entry `json:"frequent"`
	Average         []Entry `json:"average"`
	Rare            []Entry `json:"rare"`
	RelatedFrequent []Entry `json:"relatedFrequent"`
	RelatedAverage  []Entry `json:"relatedAverage"`
	RelatedRare     []Entry `json:"relatedRare"`
}

// Classify buckets related-hashtag candidates into literal and semantic
// tiers. It is a pure function of its inputs. Candidates whose magnitude
// string cannot be parsed are dropped rather than misfiled as zero.
func Classify(tag string, candidates []Candidate) Tiers {
	var tiers Tiers

	for _, c := range candidates {
		magnitude, err := ParseMagnitude(c.Magnitude)
		if err != nil {
			continue
		}

		entry := Entry{Hash: "#" + c.Name, Info: c.Magnitude}

		switch {
		case magnitude >= FrequentThreshold:
			tiers.Frequent = append(tiers.Frequent, entry)
		case magnitude >= AverageThreshold:
			tiers.Average = append(tiers.Average, entry)
		default:
			tiers.Rare = append(tiers.Rare, entry)
		}

		if !isSemantic(tag, c.Name) {
			continue
		}
		switch {
		case magnitude >= FrequentThreshold:
			tiers.RelatedFrequent = append(tiers.RelatedFrequent, entry)
		case magnitude >= AverageThreshold:
			tiers.RelatedAverage = append(tiers.RelatedAverage, entry)
		default:
			tiers.RelatedRare = append(tiers.RelatedRare, entry)
		}
	}

	return tiers
}

// isSemantic gates candidates on lexical similarity to the requested tag:
// either one name contains the other (shared stem, e.g. "love"/"lovely") or
// the edit distance is small relative to the shorter name.
func isSemantic(tag, candidate string) bool {
	a := strings.ToLower(tag)
	b := strings.ToLower(candidate)
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	limit := shorter / 3
	if limit < 1 {
		limit = 1
	}
	return levenshtein.ComputeDistance(a, b) <= limit
}
