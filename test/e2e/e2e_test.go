package e2e_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mcncl/kv3typer/internal/analyzer"
	"github.com/mcncl/kv3typer/internal/bridge"
	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/formatter"
	"github.com/mcncl/kv3typer/internal/generator"
	"github.com/mcncl/kv3typer/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePath = "../../testdata/samples/particle.vpcf"

func particleConfig(pkg string) *config.Config {
	cfg := config.NewConfig()
	cfg.Package = pkg
	cfg.RootName = "ParticleSystem"
	cfg.Naming.TrimHungarian = true
	return cfg
}

// generate runs the whole pipeline the gen command runs
func generate(t testing.TB, cfg *config.Config, input string) string {
	t.Helper()

	ir, err := parser.NewParser(cfg, nil).ParseString(input)
	require.NoError(t, err)

	result, err := analyzer.NewAnalyzerWithConfig(cfg).Analyze(ir, cfg.RootName)
	require.NoError(t, err)

	code, err := generator.NewGeneratorWithConfig(cfg).GenerateStructs(result, cfg.Package)
	require.NoError(t, err)

	formatted, err := formatter.NewFormatter().Format(code)
	require.NoError(t, err)
	return formatted
}

func readSample(t testing.TB) string {
	t.Helper()
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	return string(data)
}

// TestEndToEnd_ParticleGolden keeps examples/particle in step with the generator
func TestEndToEnd_ParticleGolden(t *testing.T) {
	golden, err := os.ReadFile("../../examples/particle/particle.go")
	require.NoError(t, err)

	code := generate(t, particleConfig("particle"), readSample(t))
	assert.Equal(t, string(golden), code)
}

// TestEndToEnd_GeneratedCodeCompiles builds generated types into a program
// and decodes the sample with them
func TestEndToEnd_GeneratedCodeCompiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping compile test in short mode")
	}

	// inside the module so the kv3 import resolves
	dir, err := os.MkdirTemp(".", "generated")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	code := generate(t, particleConfig("main"), readSample(t))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.go"), []byte(code), 0644))

	program := `package main

import (
	"fmt"
	"os"

	"github.com/mcncl/kv3typer/kv3"
)

func main() {
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var ps ParticleSystem
	if err := kv3.Unmarshal(string(data), &ps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(ps.Class, ps.MaxParticles, len(ps.Operators), ps.Metadata.Author)
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(program), 0644))

	sample, err := filepath.Abs(samplePath)
	require.NoError(t, err)

	cmd := exec.Command("go", "run", "./"+filepath.Base(dir), sample)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), stderr.String())

	assert.Equal(t, "CParticleSystemDefinition 128 3 vfx\n", stdout.String())
}

func TestEndToEnd_HeterogeneousArrays(t *testing.T) {
	input := `{
		mixed = [ 1, "two", true ]
		numbers = [ 1, 2.5, 3 ]
		nested = [ [ 1 ], [ "a" ] ]
		grid = [ [ 1, 2 ], [ 3.5 ] ]
		shapes = [ { radius = 1.0 }, { width = 2 height = 3 } ]
		holes = [ { id = 1 }, null ]
	}`

	code := generate(t, config.NewConfig(), input)

	assert.Contains(t, code, `kv3.OptionalField("mixed", kv3.Slice(kv3.Any()), &r.Mixed),`)
	assert.Contains(t, code, `kv3.OptionalField("numbers", kv3.Slice(kv3.Float[float64]()), &r.Numbers),`)
	assert.Contains(t, code, `kv3.OptionalField("nested", kv3.Slice(kv3.Any()), &r.Nested),`)
	assert.Contains(t, code, `kv3.OptionalField("grid", kv3.Slice(kv3.Slice(kv3.Float[float64]())), &r.Grid),`)
	// objects with different keys merge into one element struct
	assert.Contains(t, code, "type RootTypeShape struct {")
	assert.Contains(t, code, `kv3.OptionalField("radius", kv3.Float[float64](), &r.Radius),`)
	assert.Contains(t, code, `kv3.OptionalField("width", kv3.Integer[int64](), &r.Width),`)
	// an object next to null is not an array of objects
	assert.Contains(t, code, `kv3.OptionalField("holes", kv3.Slice(kv3.Any()), &r.Holes),`)
}

func TestEndToEnd_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "empty root",
			input:    `{}`,
			contains: []string{"type RootType struct {\n}", "return m.Decode()"},
		},
		{
			name:  "keys that are not Go identifiers",
			input: `{ 3d_model = "box" type = 1 __internal_flag = true }`,
			contains: []string{
				`kv3.Field("3d_model", kv3.Text(), &r.`,
				`kv3.Field("type", kv3.Integer[int64](), &r.Type),`,
				`kv3.Field("__internal_flag", kv3.Boolean(), &r.`,
			},
		},
		{
			name:     "colliding names",
			input:    `{ render_mode = 1 RenderMode = 2 }`,
			contains: []string{"&r.RenderMode)", "&r.RenderMode2)"},
		},
		{
			name:     "comments everywhere",
			input:    "// leading\n{ /* inline */ a = 1 // trailing\n <!-- xml --> b = 2 }",
			contains: []string{`kv3.Field("a", kv3.Integer[int64](), &r.A),`, `kv3.Field("b", kv3.Integer[int64](), &r.B),`},
		},
		{
			name:     "deep nesting",
			input:    `{ a = { b = { c = { d = [ 1.5 ] } } } }`,
			contains: []string{"type RootTypeABC struct {", `kv3.OptionalField("d", kv3.Slice(kv3.Float[float64]()), &r.D),`},
		},
		{
			name:     "bytes and null",
			input:    `{ blob = #[ 01 02 ] nothing = null }`,
			contains: []string{`kv3.OptionalField("blob", kv3.Bytes(), &r.Blob),`, `kv3.OptionalField("nothing", kv3.Any(), &r.Nothing),`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := generate(t, config.NewConfig(), tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, code, want)
			}
		})
	}
}

func TestEndToEnd_JSONBridge(t *testing.T) {
	ir, err := parser.ParseString(readSample(t))
	require.NoError(t, err)

	data, err := bridge.JSON(ir.Root)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"m_checksum":[222,173,190,239]`)
	assert.Contains(t, string(data), `"m_hSnapshot":null`)

	result, err := bridge.Query(ir.Root, "m_Children.#.m_ChildRef")
	require.NoError(t, err)
	assert.Equal(t, `["particles/smoke_trail.vpcf","particles/embers.vpcf"]`, result.Raw)

	result, err = bridge.Query(ir.Root, `m_Operators.#(_class=="C_OP_BasicMovement").m_fDrag`)
	require.NoError(t, err)
	assert.Equal(t, 0.05, result.Float())
}
