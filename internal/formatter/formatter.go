package formatter

import (
	"fmt"
	"go/format"
	"regexp"
	"sort"
	"strings"
)

// Formatter is responsible for formatting Go code according to standard conventions
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

var importBlock = regexp.MustCompile(`(?ms)^import \((.*?)^\)`)

// Format takes Go code as a string and returns properly formatted Go code
func (f *Formatter) Format(code string) (string, error) {
	// Handle empty input
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", fmt.Errorf("failed to parse Go code: %w", err)
	}

	return f.formatImports(string(formatted)), nil
}

// formatImports organizes the import block with standard library imports
// first, followed by third-party imports with a blank line in between
func (f *Formatter) formatImports(code string) string {
	match := importBlock.FindStringSubmatchIndex(code)
	if match == nil {
		// No import block, or a single-line import
		return code
	}

	var stdLibImports, thirdPartyImports []string
	for _, line := range strings.Split(code[match[2]:match[3]], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if isStdLib(line) {
			stdLibImports = append(stdLibImports, line)
		} else {
			thirdPartyImports = append(thirdPartyImports, line)
		}
	}

	sort.Slice(stdLibImports, func(i, j int) bool { return importPath(stdLibImports[i]) < importPath(stdLibImports[j]) })
	sort.Slice(thirdPartyImports, func(i, j int) bool { return importPath(thirdPartyImports[i]) < importPath(thirdPartyImports[j]) })

	var b strings.Builder
	b.WriteString("import (\n")
	for _, imp := range stdLibImports {
		b.WriteString("\t" + imp + "\n")
	}
	if len(stdLibImports) > 0 && len(thirdPartyImports) > 0 {
		b.WriteString("\n")
	}
	for _, imp := range thirdPartyImports {
		b.WriteString("\t" + imp + "\n")
	}
	b.WriteString(")")

	return code[:match[0]] + b.String() + code[match[1]:]
}

// importPath extracts the quoted path from an import spec, which may carry
// an alias or a trailing comment.
func importPath(spec string) string {
	start := strings.IndexByte(spec, '"')
	if start < 0 {
		return spec
	}
	end := strings.IndexByte(spec[start+1:], '"')
	if end < 0 {
		return spec[start+1:]
	}
	return spec[start+1 : start+1+end]
}

// isStdLib reports whether the import's first path element lacks a dot.
func isStdLib(spec string) bool {
	first, _, _ := strings.Cut(importPath(spec), "/")
	return !strings.Contains(first, ".")
}
