package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/errors"
	"github.com/mcncl/kv3typer/internal/models"
	"github.com/mcncl/kv3typer/kv3"
)

// Parser reads KV3 documents into an IntermediateRepresentation, applying
// the parser section of the configuration.
type Parser struct {
	engine        *kv3.Parser
	allowTrailing bool
	log           *slog.Logger
}

// NewParser creates a Parser from cfg. A nil cfg uses defaults; a nil log
// disables logging.
func NewParser(cfg *config.Config, log *slog.Logger) *Parser {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Parser{
		engine:        kv3.NewParser(kv3.Options{MaxDepth: cfg.Parser.MaxDepth, Logger: log}),
		allowTrailing: cfg.Parser.AllowTrailing,
		log:           log,
	}
}

var defaultParser = NewParser(nil, nil)

// Parse reads KV3 from r using default settings
func Parse(r io.Reader) (models.IntermediateRepresentation, error) {
	return defaultParser.Parse(r)
}

// ParseString parses KV3 from a string using default settings
func ParseString(text string) (models.IntermediateRepresentation, error) {
	return defaultParser.ParseString(text)
}

// ParseFile parses KV3 from a file path using default settings
func ParseFile(path string) (models.IntermediateRepresentation, error) {
	return defaultParser.ParseFile(path)
}

// Parse reads all of r and parses it
func (p *Parser) Parse(r io.Reader) (models.IntermediateRepresentation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError("failed to read input", err)
	}
	return p.ParseString(string(data))
}

// ParseString parses a KV3 document held in a string
func (p *Parser) ParseString(text string) (models.IntermediateRepresentation, error) {
	// only whitespace and comments
	if rest, err := kv3.Skip(text); err == nil && rest == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("input is empty", errors.ErrEmptyInput)
	}

	rest, root, err := p.engine.Parse(text)
	if err != nil {
		return models.IntermediateRepresentation{}, errors.FromKV3(err)
	}

	if rest != "" {
		if !p.allowTrailing {
			line := strings.Count(text[:len(text)-len(rest)], "\n") + 1
			return models.IntermediateRepresentation{}, errors.NewParsingError(
				fmt.Sprintf("line %d: data after the root object", line),
				errors.ErrTrailingData,
			)
		}
		if p.log != nil {
			p.log.Warn("ignoring data after the root object", "bytes", len(rest))
		}
	}

	return models.IntermediateRepresentation{Root: root, Remaining: rest}, nil
}

// ParseFile parses a KV3 document from a file path
func (p *Parser) ParseFile(path string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(path) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.IntermediateRepresentation{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", path),
				errors.ErrFileNotFound,
			)
		}
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to read file '%s'", path),
			err,
		)
	}
	if len(data) == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", path),
			errors.ErrFileEmpty,
		)
	}

	if p.log != nil {
		p.log.Debug("read input file", "path", path, "bytes", len(data))
	}
	return p.ParseString(string(data))
}
