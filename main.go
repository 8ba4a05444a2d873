package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mcncl/kv3typer/internal/analyzer"
	"github.com/mcncl/kv3typer/internal/bridge"
	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/errors"
	"github.com/mcncl/kv3typer/internal/formatter"
	"github.com/mcncl/kv3typer/internal/generator"
	"github.com/mcncl/kv3typer/internal/models"
	"github.com/mcncl/kv3typer/internal/parser"
	"github.com/mcncl/kv3typer/internal/schema"
)

// Version information
const (
	Version = "0.1.0"
)

// Globals are flags shared by every command
type Globals struct {
	Config        string           `help:"Path to a config file. Defaults to the nearest .kv3typer.yml." type:"path"`
	Debug         bool             `help:"Enable debug logging." short:"d"`
	Version       kong.VersionFlag `help:"Show version information." short:"v"`
	MaxDepth      int              `help:"Maximum array and object nesting. Negative disables the limit."`
	AllowTrailing bool             `help:"Ignore text after the root object instead of failing."`
}

// InputFlags selects the KV3 document a command reads
type InputFlags struct {
	Input string `help:"Path to input KV3 file. If not specified, reads from stdin." short:"i" type:"path"`
}

// CLI defines the command-line interface
var CLI struct {
	Globals

	Gen   GenCmd   `cmd:"" default:"withargs" help:"Generate Go structs and KV3 decoders from a sample document (default)."`
	JSON  JSONCmd  `cmd:"" name:"json" help:"Print a KV3 document as JSON."`
	Get   GetCmd   `cmd:"" help:"Query a KV3 document with a gjson path."`
	Check CheckCmd `cmd:"" help:"Parse a KV3 document and report the first error."`
}

// Context holds the runtime context shared by commands
type Context struct {
	Debug  bool
	Config *config.Config
	Log    *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	cli := kong.Must(&CLI,
		kong.Name("kv3typer"),
		kong.Description("A tool to read Valve KeyValues3 documents and generate Go types for them"),
		kong.UsageOnError(),
		kong.Vars{"version": "kv3typer version " + Version},
	)

	kctx, err := cli.Parse(os.Args[1:])
	if err != nil {
		// usage was already shown by kong.UsageOnError()
		os.Exit(1)
	}

	// bare invocation on a terminal waits for pasted input
	if len(os.Args) == 1 {
		CLI.Gen.Interactive = true
	}

	ctx, err := newContext(CLI.Globals, CLI.Gen.overrides(), os.Stdin, os.Stdout, os.Stderr)
	if err == nil {
		err = kctx.Run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: kv3typer --help\n")
		os.Exit(1)
	}
}

// newContext loads the configuration and sets up logging. Flag values in
// globals and gen take precedence over the config file.
func newContext(globals Globals, gen config.CLIOverrides, stdin io.Reader, stdout, stderr io.Writer) (*Context, error) {
	log := newLogger(stderr, globals.Debug)

	path := globals.Config
	if path == "" {
		path = config.FindConfigFile()
	}

	gen.MaxDepth = globals.MaxDepth
	gen.AllowTrailing = globals.AllowTrailing
	cfg, err := config.LoadConfigWithCLI(path, gen)
	if err != nil {
		return nil, errors.NewInputError(fmt.Sprintf("failed to load config '%s'", path), err)
	}
	if path != "" {
		log.Debug("loaded config", "path", path)
	}

	return &Context{
		Debug:  globals.Debug,
		Config: cfg,
		Log:    log,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// GenCmd generates Go source from a KV3 sample or a JSON Schema
type GenCmd struct {
	InputFlags

	Output        string `help:"Path to output Go file. If not specified, writes to stdout." short:"o" type:"path"`
	Package       string `help:"Package name for generated code (default \"main\")." short:"p"`
	RootName      string `help:"Name for the root struct (default \"RootType\")." short:"r"`
	NoFormat      bool   `help:"Skip gofmt on the generated code."`
	JSONTags      bool   `help:"Add json tags next to the kv3 tags."`
	TrimHungarian bool   `help:"Drop Source 2 member prefixes, so m_flRadius becomes Radius."`
	Schema        string `help:"Generate from a JSON Schema file instead of a KV3 sample." type:"path"`
	Interactive   bool   `help:"Run in interactive mode, allowing direct KV3 input with Ctrl+D to process." short:"I"`
}

func (g *GenCmd) overrides() config.CLIOverrides {
	return config.CLIOverrides{
		Package:       g.Package,
		RootName:      g.RootName,
		NoFormat:      g.NoFormat,
		JSONTags:      g.JSONTags,
		TrimHungarian: g.TrimHungarian,
	}
}

// Run executes the generation pipeline
func (g *GenCmd) Run(ctx *Context) error {
	var (
		result models.AnalysisResult
		err    error
	)
	if g.Schema != "" {
		result, err = g.fromSchema(ctx)
	} else {
		result, err = g.fromSample(ctx)
	}
	if err != nil {
		return err
	}
	ctx.Log.Debug("analysis complete", "structs", len(result.Structs), "imports", len(result.Imports))

	code, err := generator.NewGeneratorWithConfig(ctx.Config).GenerateStructs(result, ctx.Config.Package)
	if err != nil {
		return errors.NewGenerateError("failed to generate Go structs", err)
	}

	if ctx.Config.Formatting.Enabled {
		code, err = formatter.NewFormatter().Format(code)
		if err != nil {
			return errors.NewFormatError("failed to format Go code", err)
		}
	}

	return writeOutput(ctx, g.Output, code)
}

func (g *GenCmd) fromSample(ctx *Context) (models.AnalysisResult, error) {
	ir, err := readDocument(ctx, g.Input, g.Interactive)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	result, err := analyzer.NewAnalyzerWithConfig(ctx.Config).Analyze(ir, ctx.Config.RootName)
	if err != nil {
		return models.AnalysisResult{}, errors.NewAnalysisError("failed to analyze KV3 structure", err)
	}
	return result, nil
}

func (g *GenCmd) fromSchema(ctx *Context) (models.AnalysisResult, error) {
	s, err := schema.ParseFile(g.Schema)
	if err != nil {
		return models.AnalysisResult{}, errors.NewInputError(fmt.Sprintf("failed to read schema '%s'", g.Schema), err)
	}

	// the schema title names the root unless a name was asked for
	rootName := g.RootName
	if rootName == "" && ctx.Config.RootName != analyzer.DefaultRootName {
		rootName = ctx.Config.RootName
	}

	result, err := schema.NewConverterWithConfig(s, ctx.Config).Convert(rootName)
	if err != nil {
		return models.AnalysisResult{}, errors.NewAnalysisError("failed to convert JSON Schema", err)
	}
	return result, nil
}

// JSONCmd prints a document as JSON
type JSONCmd struct {
	InputFlags

	Indent  int  `help:"Spaces per indentation level." default:"2"`
	Compact bool `help:"Print on a single line." short:"c"`
}

// Run renders the document to stdout
func (j *JSONCmd) Run(ctx *Context) error {
	ir, err := readDocument(ctx, j.Input, false)
	if err != nil {
		return err
	}

	indent := j.Indent
	if j.Compact {
		indent = 0
	}
	if err := bridge.WriteJSON(ctx.Stdout, ir.Root, indent); err != nil {
		return errors.NewOutputError("failed to write JSON", err)
	}
	if _, err := fmt.Fprintln(ctx.Stdout); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// GetCmd prints the values a gjson path selects
type GetCmd struct {
	InputFlags

	Path string `arg:"" help:"gjson path, for example 'm_Children.#.m_name'."`
}

// Run evaluates the path and prints the result
func (g *GetCmd) Run(ctx *Context) error {
	ir, err := readDocument(ctx, g.Input, false)
	if err != nil {
		return err
	}

	result, err := bridge.Query(ir.Root, g.Path)
	if err != nil {
		return err
	}
	ctx.Log.Debug("query matched", "path", g.Path, "type", result.Type.String())

	if _, err := fmt.Fprintln(ctx.Stdout, bridge.FormatResult(result)); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// CheckCmd validates a document
type CheckCmd struct {
	InputFlags
}

// Run parses the document and reports how many top-level keys it holds
func (c *CheckCmd) Run(ctx *Context) error {
	ir, err := readDocument(ctx, c.Input, false)
	if err != nil {
		return err
	}

	source := c.Input
	if source == "" {
		source = "stdin"
	}
	_, err = fmt.Fprintf(ctx.Stdout, "%s: ok (%d top-level keys)\n", source, ir.Root.Len())
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readDocument reads KV3 from a file, piped stdin or an interactive terminal
func readDocument(ctx *Context, path string, interactive bool) (models.IntermediateRepresentation, error) {
	p := parser.NewParser(ctx.Config, ctx.Log)
	if path != "" {
		return p.ParseFile(path)
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewInputError("failed to access stdin", err)
		}
		// terminal rather than a pipe
		if info.Mode()&os.ModeCharDevice != 0 {
			if !interactive {
				return models.IntermediateRepresentation{}, errors.NewInputError("no input provided", errors.ErrNoInput)
			}
			text, err := readInteractiveInput(ctx)
			if err != nil {
				return models.IntermediateRepresentation{}, err
			}
			return p.ParseString(text)
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError("failed to read from stdin", err)
	}
	if len(data) == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	ctx.Log.Debug("read stdin", "bytes", len(data))

	return p.ParseString(string(data))
}

// readInteractiveInput lets users paste KV3 and signal completion with
// Ctrl+D (EOF)
func readInteractiveInput(ctx *Context) (string, error) {
	fmt.Fprintln(ctx.Stderr, "kv3typer Interactive Mode")
	fmt.Fprintln(ctx.Stderr, "Paste your KV3 below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(ctx.Stdin)
	var b strings.Builder
	for {
		line, err := reader.ReadString('\n')
		b.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.NewInputError("error reading input", err)
		}
	}

	if b.Len() == 0 {
		return "", errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(ctx.Stderr, "\nProcessing KV3...")
	return b.String(), nil
}

// writeOutput writes code to a file, or to stdout when path is empty
func writeOutput(ctx *Context, path, code string) error {
	if path != "" {
		if err := os.WriteFile(path, []byte(code), 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(ctx.Stderr, "Generated Go code written to %s\n", path)
		return nil
	}

	if _, err := fmt.Fprintln(ctx.Stdout, strings.TrimSpace(code)); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
