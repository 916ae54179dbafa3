package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command tree with args and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const squareCSV = "x,y\n0,0\n0,1\n1,1\n1,0\n"

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "spatialstat", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"neighbors", "autocorr", "pattern", "entropy", "hotspot", "corr", "shape", "interaction"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	for _, flag := range []string{"config", "workers", "seed", "pvalue", "min-cells", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
}

func TestNeighbors_KNN(t *testing.T) {
	path := writeFile(t, "square.csv", squareCSV)
	stdout, err := run(t, "neighbors", path, "--k", "3")
	require.NoError(t, err)

	var out []neighborsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.Equal(t, [][]int{{0, 1, 3}, {0, 1, 2}, {1, 2, 3}, {0, 2, 3}}, out[0].Neighbors)
	assert.Empty(t, out[0].Error)
}

func TestNeighbors_Regions(t *testing.T) {
	csv := "region,x,y\nb,0,0\na,5,5\nb,1,0\na,6,5\na,7,5\n"
	path := writeFile(t, "regions.csv", csv)
	stdout, err := run(t, "neighbors", path, "--radius", "1.5")
	require.NoError(t, err)

	var out []neighborsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Region)
	assert.Equal(t, [][]int{{0, 1}, {0, 1}}, out[0].Neighbors)
	assert.Equal(t, "a", out[1].Region)
	assert.Equal(t, [][]int{{0, 1}, {0, 1, 2}, {1, 2}}, out[1].Neighbors)
	assert.Equal(t, []int{0, 0, 0}, out[1].Components)
}

func TestNeighbors_InvalidMethod(t *testing.T) {
	path := writeFile(t, "square.csv", squareCSV)
	_, err := run(t, "neighbors", path, "--neighbor-method", "voronoi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voronoi not found, available options are kdtree, delaunay")
}

func TestReadPoints_Errors(t *testing.T) {
	_, err := run(t, "neighbors", writeFile(t, "bad.csv", "a,b\n1,2\n"))
	assert.ErrorContains(t, err, "header must name x and y")

	_, err = run(t, "neighbors", writeFile(t, "nan.csv", "x,y\n1,oops\n"))
	assert.ErrorContains(t, err, "column y")

	_, err = run(t, "neighbors", writeFile(t, "empty.csv", "x,y\n"))
	assert.ErrorContains(t, err, "no rows")
}

func TestCorr_NullForConstantRows(t *testing.T) {
	path := writeFile(t, "m.csv", "1,2,3\n3,2,1\n4,4,4\n")
	stdout, err := run(t, "corr", path)
	require.NoError(t, err)

	var out [][]*float64
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 3)
	require.NotNil(t, out[0][1])
	assert.InDelta(t, -1.0, *out[0][1], 1e-12)
	assert.Nil(t, out[2][0])
	assert.Nil(t, out[2][2])
}

func TestShape_Convex(t *testing.T) {
	path := writeFile(t, "pts.csv", squareCSV+"0.5,0.5\n")
	stdout, err := run(t, "shape", path)
	require.NoError(t, err)

	var out []shapeOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].WKT, "POLYGON(("), out[0].WKT)
	assert.InDelta(t, 1.0, out[0].Area, 1e-12)
}

func TestPattern_MinCellsFromEnv(t *testing.T) {
	path := writeFile(t, "pts.csv", "x,y\n0,0\n1,3\n2,1\n3,4\n4,2\n")
	stdout, err := run(t, "pattern", path, "--method", "clark_evans")
	require.NoError(t, err)
	var out []patternOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "insufficient", out[0].Pattern)

	t.Setenv("SPATIALSTAT_MIN_CELLS", "2")
	stdout, err = run(t, "pattern", path, "--method", "clark_evans")
	require.NoError(t, err)
	out = nil
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEqual(t, "insufficient", out[0].Pattern)
	assert.Positive(t, out[0].Index)
}

func TestConfigFile(t *testing.T) {
	cfgPath := writeFile(t, "spatialstat.yaml", "min-cells: 2\n")
	path := writeFile(t, "pts.csv", "x,y\n0,0\n1,3\n2,1\n3,4\n4,2\n")
	stdout, err := run(t, "pattern", path, "--method", "clark_evans", "--config", cfgPath)
	require.NoError(t, err)
	var out []patternOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEqual(t, "insufficient", out[0].Pattern)
}

func TestEntropy_RequiresTypes(t *testing.T) {
	path := writeFile(t, "square.csv", squareCSV)
	_, err := run(t, "entropy", path)
	assert.ErrorContains(t, err, "type column")

	typed := writeFile(t, "typed.csv", "x,y,type\n0,0,a\n0,1,b\n1,1,a\n1,0,b\n")
	stdout, err := run(t, "entropy", typed, "--distance", "1.01")
	require.NoError(t, err)
	var out []entropyOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	// Four unit edges, every one joining a and b.
	assert.InDelta(t, 0.0, out[0].Value, 1e-12)
}

func TestInteraction_Output(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,y,type\n")
	for i := 0; i < 10; i++ {
		b.WriteString(strings.Join([]string{strconv.Itoa(i), "0", "a"}, ","))
		b.WriteString("\n")
		b.WriteString(strings.Join([]string{strconv.Itoa(i), "100", "b"}, ","))
		b.WriteString("\n")
	}
	path := writeFile(t, "typed.csv", b.String())
	stdout, err := run(t, "interaction", path, "--k", "3", "--iterations", "50", "--seed", "3")
	require.NoError(t, err)

	var out []interactionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out, 1)
	assert.Equal(t, []string{"a", "b"}, out[0].Types)
	require.Len(t, out[0].Composition, 20)
	require.Len(t, out[0].Interactions, 3)
	assert.Equal(t, "a", out[0].Interactions[1].TypeA)
	assert.Equal(t, "b", out[0].Interactions[1].TypeB)
	assert.Equal(t, 0, out[0].Interactions[1].Observed)
	assert.Equal(t, "depleted", out[0].Interactions[1].Relation)
	assert.Less(t, out[0].Interactions[1].PValue, 0.05)
	assert.Negative(t, out[0].Interactions[1].Z)
}
