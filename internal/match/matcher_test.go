package match

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcgee/sparkinv/internal/domain"
)

type stubCatalogue struct {
	materials []*domain.Material
}

func (s *stubCatalogue) List(_ context.Context) ([]*domain.Material, error) {
	return s.materials, nil
}

func electricalCatalogue() *stubCatalogue {
	names := []string{
		"Twin and Earth Cable 2.5mm 6242Y",
		"Twin and Earth Cable 1.5mm 6242Y",
		"13A Double Socket White",
		"LED Downlight 5W Fire Rated Dimmable",
		"Galvanised Steel Conduit 20mm",
	}
	c := &stubCatalogue{}
	for i, name := range names {
		c.materials = append(c.materials, &domain.Material{
			ID:           int64(i + 1),
			Name:         name,
			Unit:         "each",
			Category:     "accessory",
			DefaultPrice: decimal.New(int64(i+1), 0),
		})
	}
	return c
}

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("13A Double Socket White", "13a double socket  white"))
}

func TestSimilarity_Unrelated(t *testing.T) {
	score := Similarity("plasterboard screws", "LED Downlight 5W Fire Rated Dimmable")
	assert.Less(t, score, MinScore)
}

func TestSimilarity_WordOrderInsensitive(t *testing.T) {
	a := Similarity("2.5mm twin and earth cable", "Twin and Earth Cable 2.5mm 6242Y")
	assert.Greater(t, a, 0.5)
}

func TestSimilarity_Bounds(t *testing.T) {
	for _, pair := range [][2]string{
		{"", "anything"},
		{"x", "x"},
		{"abc def", "zzz qqq"},
		{"Twin and Earth", "twin & earth"},
	} {
		score := Similarity(pair[0], pair[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestCandidatesOrderedByScore(t *testing.T) {
	matcher := NewMatcher(electricalCatalogue())

	candidates, err := matcher.Candidates(context.Background(), "twin earth cable 2.5mm")
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	assert.Equal(t, "Twin and Earth Cable 2.5mm 6242Y", candidates[0].Name)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
}

func TestCandidatesDropUnrelated(t *testing.T) {
	matcher := NewMatcher(electricalCatalogue())

	candidates, err := matcher.Candidates(context.Background(), "15mm copper pipe")
	require.NoError(t, err)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Score, MinScore)
	}
}

func TestCandidatesCap(t *testing.T) {
	c := &stubCatalogue{}
	for i := 0; i < 20; i++ {
		c.materials = append(c.materials, &domain.Material{
			ID:   int64(i + 1),
			Name: "Twin and Earth Cable 2.5mm",
		})
	}
	matcher := NewMatcher(c)

	candidates, err := matcher.Candidates(context.Background(), "Twin and Earth Cable 2.5mm")
	require.NoError(t, err)
	assert.Len(t, candidates, MaxCandidates)
}

func TestCandidatesCarryCatalogueFields(t *testing.T) {
	matcher := NewMatcher(electricalCatalogue())

	candidates, err := matcher.Candidates(context.Background(), "13A double socket white")
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.True(t, candidates[0].DefaultPrice.Equal(decimal.New(3, 0)))
	assert.Equal(t, "each", candidates[0].Unit)
	assert.Equal(t, "accessory", candidates[0].Category)
}
