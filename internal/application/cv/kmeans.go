package cv

import "math"

// KMeans1D clusters a set of scalar values into k clusters using Lloyd's
// algorithm with k-means++ seeding and a fixed iteration cap, applied on
// a single coordinate axis (column clustering on X, row clustering on Y
// within a column).
func KMeans1D(values []float64, k int, seed uint64) (labels []int, centers []float64) {
	n := len(values)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k >= n {
		labels = make([]int, n)
		centers = make([]float64, n)
		for i := range values {
			labels[i] = i
			centers[i] = values[i]
		}
		return labels, centers
	}

	rng := newDeterministicRNG(seed)
	centers = kmeansPlusPlusSeed(values, k, rng)
	labels = make([]int, n)

	const maxIterations = 100
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range values {
			best := 0
			bestDist := math.Abs(v - centers[0])
			for c := 1; c < k; c++ {
				d := math.Abs(v - centers[c])
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			c := labels[i]
			sums[c] += v
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				centers[c] = sums[c] / float64(counts[c])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	return labels, centers
}

// kmeansPlusPlusSeed picks k initial centers biased toward points far from
// already-chosen centers, per the k-means++ seeding strategy sklearn uses
// by default.
func kmeansPlusPlusSeed(values []float64, k int, rng *deterministicRNG) []float64 {
	n := len(values)
	centers := make([]float64, 0, k)
	first := values[rng.intn(n)]
	centers = append(centers, first)

	distSq := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, v := range values {
			minD := math.MaxFloat64
			for _, c := range centers {
				d := v - c
				d *= d
				if d < minD {
					minD = d
				}
			}
			distSq[i] = minD
			total += minD
		}
		if total == 0 {
			centers = append(centers, values[rng.intn(n)])
			continue
		}
		target := float64(rng.next()%1_000_000) / 1_000_000 * total
		running := 0.0
		chosen := values[n-1]
		for i, d := range distSq {
			running += d
			if running >= target {
				chosen = values[i]
				break
			}
		}
		centers = append(centers, chosen)
	}
	return centers
}

// OrderClustersByCenter returns the cluster indices sorted ascending by
// their center value, so labeled clusters (which come out of KMeans1D in
// arbitrary order) can be read back in left-to-right or top-to-bottom
// order.
func OrderClustersByCenter(centers []float64) []int {
	order := make([]int, len(centers))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && centers[order[j]] < centers[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
