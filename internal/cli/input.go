package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TrevorS/spatialstat"
)

// pointTable is a point CSV split into regions. Every per-region slice is
// aligned with regions; types and values are nil when the file has no such
// column.
type pointTable struct {
	regions []string
	points  [][][]float64
	types   [][]string
	values  [][]float64
}

// all returns every point of every region in one slice.
func (t *pointTable) all() [][]float64 {
	var out [][]float64
	for _, p := range t.points {
		out = append(out, p...)
	}
	return out
}

// single fails unless the table holds exactly one region.
func (t *pointTable) single() error {
	if len(t.regions) != 1 {
		return fmt.Errorf("expected a single region, found %d", len(t.regions))
	}
	return nil
}

// open returns stdin for "-" and the named file otherwise.
func open(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, errors.New("no input file given")
	}
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// readPoints parses a point CSV. The header names the columns; x and y are
// required, z, type, value and region are optional and may appear in any
// order. Rows sharing a region value form one region, in first-seen order.
func readPoints(cmd *cobra.Command, path string) (*pointTable, error) {
	f, err := open(cmd, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	xi, okx := col["x"]
	yi, oky := col["y"]
	if !okx || !oky {
		return nil, fmt.Errorf("%s: header must name x and y columns, got %v", path, header)
	}
	zi, hasZ := col["z"]
	ti, hasType := col["type"]
	vi, hasValue := col["value"]
	ri, hasRegion := col["region"]

	t := &pointTable{}
	index := map[string]int{}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		region := ""
		if hasRegion {
			region = rec[ri]
		}
		k, ok := index[region]
		if !ok {
			k = len(t.regions)
			index[region] = k
			t.regions = append(t.regions, region)
			t.points = append(t.points, nil)
			t.types = append(t.types, nil)
			t.values = append(t.values, nil)
		}

		p := []float64{0, 0}
		if hasZ {
			p = append(p, 0)
		}
		cols := []int{xi, yi}
		if hasZ {
			cols = append(cols, zi)
		}
		for d, c := range cols {
			if p[d], err = parseFloat(rec[c]); err != nil {
				return nil, fmt.Errorf("%s:%d: column %s: %w", path, line, header[c], err)
			}
		}
		t.points[k] = append(t.points[k], p)

		if hasType {
			t.types[k] = append(t.types[k], rec[ti])
		}
		if hasValue {
			v, err := parseFloat(rec[vi])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %s: %w", path, line, header[vi], err)
			}
			t.values[k] = append(t.values[k], v)
		}
	}
	if len(t.regions) == 0 {
		return nil, fmt.Errorf("%s: %w: no rows", path, spatialstat.ErrEmptyInput)
	}
	if !hasType {
		t.types = nil
	}
	if !hasValue {
		t.values = nil
	}
	return t, nil
}

// readMatrix parses a headerless CSV of numbers, one row per record.
func readMatrix(cmd *cobra.Command, path string) ([][]float64, error) {
	f, err := open(cmd, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	r.FieldsPerRecord = -1
	var rows [][]float64
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := make([]float64, len(rec))
		for i, s := range rec {
			if row[i], err = parseFloat(s); err != nil {
				return nil, fmt.Errorf("%s:%d: field %d: %w", path, line, i+1, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseFloats splits a comma-separated list of numbers.
func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := parseFloat(p)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseBBox reads "minx,miny,maxx,maxy" or the 3D form with six values. An
// empty string falls back to the bounding box of fallback.
func parseBBox(s string, fallback [][]float64) (spatialstat.BoundingBox, error) {
	v, err := parseFloats(s)
	if err != nil {
		return spatialstat.BoundingBox{}, fmt.Errorf("--bbox: %w", err)
	}
	switch len(v) {
	case 0:
		return spatialstat.PointsBBox(fallback)
	case 4:
		return spatialstat.BBox2D(v[0], v[1], v[2], v[3]), nil
	case 6:
		return spatialstat.BBox3D(v[0], v[1], v[2], v[3], v[4], v[5]), nil
	}
	return spatialstat.BoundingBox{}, fmt.Errorf("--bbox needs 4 or 6 values, got %d", len(v))
}

// parsePair reads an "a,b" pair; empty means zeros.
func parsePair(flag, s string) ([2]float64, error) {
	v, err := parseFloats(s)
	if err != nil {
		return [2]float64{}, fmt.Errorf("--%s: %w", flag, err)
	}
	switch len(v) {
	case 0:
		return [2]float64{}, nil
	case 2:
		return [2]float64{v[0], v[1]}, nil
	}
	return [2]float64{}, fmt.Errorf("--%s needs 2 values, got %d", flag, len(v))
}

// gridFlags reads --quad and --rect-side.
func gridFlags(a *app) (quad [2]int, side [2]float64, err error) {
	q, err := parsePair("quad", a.v.GetString("quad"))
	if err != nil {
		return quad, side, err
	}
	quad = [2]int{int(q[0]), int(q[1])}
	side, err = parsePair("rect-side", a.v.GetString("rect-side"))
	return quad, side, err
}
