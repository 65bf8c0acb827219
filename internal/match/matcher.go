package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmcgee/sparkinv/internal/domain"
)

const (
	// MaxCandidates caps how many alternatives are offered per line.
	MaxCandidates = 5
	// MinScore is the similarity floor below which a material is not offered
	// as a candidate at all.
	MinScore = 0.25
	// AutoAssignScore is the similarity at which the best candidate is
	// pre-assigned as the item's match; below it the item starts unmatched
	// and the candidates are offered as suggestions only.
	AutoAssignScore = 0.55
)

// catalogue is the subset of store.MaterialStore the matcher requires.
type catalogue interface {
	List(ctx context.Context) ([]*domain.Material, error)
}

// Matcher scores extracted line descriptions against the materials catalogue.
type Matcher struct {
	catalogue catalogue
}

func NewMatcher(c catalogue) *Matcher {
	return &Matcher{catalogue: c}
}

// Candidates returns up to MaxCandidates catalogue matches for description,
// ordered by descending score. An empty slice means nothing in the catalogue
// resembles the line.
func (m *Matcher) Candidates(ctx context.Context, description string) ([]domain.MaterialMatch, error) {
	materials, err := m.catalogue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	candidates := make([]domain.MaterialMatch, 0, MaxCandidates)
	for _, material := range materials {
		score := Similarity(description, material.Name)
		if score < MinScore {
			continue
		}
		candidates = append(candidates, domain.MaterialMatch{
			MaterialID:   material.ID,
			Name:         material.Name,
			Unit:         material.Unit,
			Category:     material.Category,
			Score:        score,
			DefaultPrice: material.DefaultPrice,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates, nil
}

// Similarity blends token overlap with character-bigram overlap to score how
// closely two product descriptions resemble each other, in [0,1]. Token
// overlap handles reordered words ("cable twin earth 2.5mm"); bigram overlap
// tolerates OCR misspellings.
func Similarity(a, b string) float64 {
	na, nb := normalise(a), normalise(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return 0.6*tokenOverlap(na, nb) + 0.4*bigramOverlap(na, nb)
}

// normalise lowercases and collapses everything that is not a letter, digit
// or decimal point into single spaces. "2.5mm" survives intact.
func normalise(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenOverlap is the Jaccard index over word sets.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}

// bigramOverlap is the Sorensen-Dice coefficient over character bigrams.
func bigramOverlap(a, b string) float64 {
	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	counts := make(map[string]int, len(bigramsA))
	for _, bg := range bigramsA {
		counts[bg]++
	}
	shared := 0
	for _, bg := range bigramsB {
		if counts[bg] > 0 {
			counts[bg]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(bigramsA)+len(bigramsB))
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	out := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}
