package geo

import "sort"

// Located pairs an item with its distance from the search centre.
type Located[T any] struct {
	Item       T
	DistanceKm float64
}

// Nearby returns the items within radiusKm of center, closest first.
// Items at equal distance keep their input order.
//
// This is a linear scan followed by a sort, so O(n log n) in the number of
// candidates. Callers are expected to narrow the candidate set (per city)
// before calling; there is no spatial index behind it.
func Nearby[T any](center Point, radiusKm float64, items []T, locate func(T) Point) []Located[T] {
	result := make([]Located[T], 0)
	for _, item := range items {
		d := Between(center, locate(item))
		if d <= radiusKm {
			result = append(result, Located[T]{Item: item, DistanceKm: d})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	return result
}
