package service

import (
	"sort"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// Rank orders chunks by descending score, keeps the first topK and then
// drops anything that did not score above zero. Equal scores keep their
// input order.
func Rank(chunks []domain.Chunk, scores []float64, topK int) []domain.RetrievedCandidate {
	if len(chunks) == 0 || topK <= 0 {
		return []domain.RetrievedCandidate{}
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return ia < ib
	})

	if len(order) > topK {
		order = order[:topK]
	}

	ranked := make([]domain.RetrievedCandidate, 0, len(order))
	for _, i := range order {
		if scores[i] <= 0 {
			continue
		}
		ranked = append(ranked, domain.NewRetrievedCandidate(chunks[i], scores[i]))
	}
	return ranked
}
