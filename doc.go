// Package spatialstat computes spatial statistics over point-pattern and
// areal data such as cell coordinates from spatial-omics imaging.
//
// It builds proximity graphs (KD-tree, Delaunay, R-tree) and runs global
// and local statistics over them: Moran's I and Geary's C, distribution
// pattern indices, co-occurrence entropy, Getis-Ord hotspots, pairwise
// correlation and cell-type adjacency enrichment.
//
// Basic usage:
//
//	nb, err := spatialstat.PointsNeighbors(points, nil, spatialstat.KDTreeSearch{K: 6})
//	cfg := spatialstat.DefaultConfig()
//	res, err := spatialstat.SpatialAutocorr(expr, nb, nil, spatialstat.MoranI{TwoTailed: true}, cfg)
//	// res[g].Value is Moran's I of gene g, res[g].Err is set if it was undefined
//
// # Neighbor lists
//
// Every neighbor builder returns one row per point, in input order, holding
// the sorted labels of the point's neighbors. A point is always its own
// neighbor. Labels default to positions 0..N-1 when nil is passed.
//
// # Batches
//
// Operations over many regions or feature rows take a Config and fan out
// over Config.Workers goroutines. Results keep input order and a failing
// item reports its error in its own result slot. Monte-Carlo steps draw
// from streams derived from Config.Seed, so output does not depend on the
// number of workers.
package spatialstat
