package spatialstat

import "sync"

// parallelFor calls fn(i) for every i in [0, n) using up to numWorkers
// goroutines. Indices are split into contiguous ranges, one per worker, so
// fn may write to slot i of a pre-allocated result without synchronization.
// Falls back to a plain loop if numWorkers <= 1 or n <= 1.
func parallelFor(n, numWorkers int, fn func(i int)) {
	if numWorkers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	perWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}

	wg.Wait()
}

// parallelMap runs fn over every index in [0, n) and collects the results
// in input order.
func parallelMap[T any](n, numWorkers int, fn func(i int) T) []T {
	out := make([]T, n)
	parallelFor(n, numWorkers, func(i int) {
		out[i] = fn(i)
	})
	return out
}
