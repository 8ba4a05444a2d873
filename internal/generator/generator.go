package generator

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/models"
)

// KV3Import is the package every generated file decodes with.
const KV3Import = "github.com/mcncl/kv3typer/kv3"

// Generator is responsible for generating Go struct definitions and their
// KV3 decoders from analysis results
type Generator struct {
	config *config.Config
}

// NewGenerator creates a new Generator instance
func NewGenerator() *Generator {
	return NewGeneratorWithConfig(config.NewConfig())
}

// NewGeneratorWithConfig creates a Generator that honours cfg's output settings.
func NewGeneratorWithConfig(cfg *config.Config) *Generator {
	return &Generator{config: cfg}
}

// GenerateStructs generates Go source for the analysis result
func (g *Generator) GenerateStructs(result models.AnalysisResult, packageName string) (string, error) {
	if packageName == "" {
		return "", fmt.Errorf("package name is empty")
	}

	var buf bytes.Buffer

	if header := strings.TrimSpace(g.config.Output.FileHeader); header != "" {
		for _, line := range strings.Split(header, "\n") {
			buf.WriteString("// " + strings.TrimSpace(line) + "\n")
		}
		buf.WriteString("\n")
	}

	// Write package declaration
	buf.WriteString(fmt.Sprintf("package %s\n", packageName))

	if len(result.Structs) == 0 {
		return buf.String(), nil
	}

	writeImports(&buf, result.Imports)

	// Sort structs to ensure root structs come first
	sortedStructs := sortStructs(result.Structs)

	for _, structDef := range sortedStructs {
		buf.WriteString("\n")
		writeStruct(&buf, structDef)
		buf.WriteString("\n")
		writeDecoder(&buf, structDef)
	}

	return buf.String(), nil
}

func writeImports(buf *bytes.Buffer, required map[string]struct{}) {
	imports := make([]string, 0, len(required)+1)
	for imp := range required {
		if imp != KV3Import {
			imports = append(imports, imp)
		}
	}
	imports = append(imports, KV3Import)
	sort.Strings(imports)

	// Separate standard library imports from third-party imports
	var stdLibImports, thirdPartyImports []string
	for _, imp := range imports {
		if !strings.Contains(imp, ".") { // Standard library imports don't have dots
			stdLibImports = append(stdLibImports, imp)
		} else {
			thirdPartyImports = append(thirdPartyImports, imp)
		}
	}

	buf.WriteString("\nimport (\n")
	for _, imp := range stdLibImports {
		buf.WriteString(fmt.Sprintf("\t%q\n", imp))
	}
	if len(stdLibImports) > 0 && len(thirdPartyImports) > 0 {
		buf.WriteString("\n")
	}
	for _, imp := range thirdPartyImports {
		buf.WriteString(fmt.Sprintf("\t%q\n", imp))
	}
	buf.WriteString(")\n")
}

func writeStruct(buf *bytes.Buffer, structDef models.StructDef) {
	if structDef.Comment != "" {
		writeComment(buf, "", structDef.Comment)
	}
	buf.WriteString(fmt.Sprintf("type %s struct {\n", structDef.Name))

	// Align runs of fields the way gofmt does; a comment line ends a run.
	fields := structDef.Fields
	for start := 0; start < len(fields); {
		end := start + 1
		for end < len(fields) && fields[end].Comment == "" {
			end++
		}
		writeFields(buf, fields[start:end])
		start = end
	}

	buf.WriteString("}\n")
}

func writeFields(buf *bytes.Buffer, fields []models.FieldInfo) {
	// Calculate the maximum width for field names and types for proper alignment
	maxNameWidth := 0
	maxTypeWidth := 0
	for _, field := range fields {
		maxNameWidth = max(maxNameWidth, utf8.RuneCountInString(field.GoName))
		maxTypeWidth = max(maxTypeWidth, utf8.RuneCountInString(getTypeString(field.GoType)))
	}

	for _, field := range fields {
		if field.Comment != "" {
			writeComment(buf, "\t", field.Comment)
		}
		buf.WriteString(fmt.Sprintf("\t%-*s %-*s %s\n",
			maxNameWidth, field.GoName,
			maxTypeWidth, getTypeString(field.GoType),
			field.Tag))
	}
}

// writeDecoder emits the DecodeKV3 method binding each field to its key.
func writeDecoder(buf *bytes.Buffer, structDef models.StructDef) {
	recv := receiverName(structDef.Name)

	buf.WriteString("// DecodeKV3 implements kv3.ObjectDecoder.\n")
	buf.WriteString(fmt.Sprintf("func (%s *%s) DecodeKV3(m *kv3.MapAccess) error {\n", recv, structDef.Name))
	if len(structDef.Fields) == 0 {
		buf.WriteString("\treturn m.Decode()\n}\n")
		return
	}

	buf.WriteString("\treturn m.Decode(\n")
	for _, field := range structDef.Fields {
		fn := "kv3.Field"
		if field.Optional {
			fn = "kv3.OptionalField"
		}
		buf.WriteString(fmt.Sprintf("\t\t%s(%s, %s, &%s.%s),\n",
			fn, strconv.Quote(field.Key), decoderExpr(field.GoType), recv, field.GoName))
	}
	buf.WriteString("\t)\n}\n")
}

func writeComment(buf *bytes.Buffer, indent, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		buf.WriteString(indent + "// " + strings.TrimSpace(line) + "\n")
	}
}

// receiverName is the lowercased first letter of the type name. "m" is
// taken by the MapAccess parameter.
func receiverName(typeName string) string {
	r, _ := utf8.DecodeRuneInString(typeName)
	if !unicode.IsLetter(r) || unicode.ToLower(r) == 'm' {
		return "v"
	}
	return string(unicode.ToLower(r))
}

// sortStructs sorts structs to ensure root structs come first, followed by nested structs
func sortStructs(structs []models.StructDef) []models.StructDef {
	sorted := make([]models.StructDef, len(structs))
	copy(sorted, structs)

	sort.SliceStable(sorted, func(i, j int) bool {
		// If one is root and the other is not, root comes first
		if sorted[i].IsRoot != sorted[j].IsRoot {
			return sorted[i].IsRoot
		}
		// Otherwise, sort alphabetically by name
		return sorted[i].Name < sorted[j].Name
	})

	return sorted
}

// getTypeString converts a TypeInfo to a string representation of the Go type
func getTypeString(typeInfo models.TypeInfo) string {
	var typeStr string

	switch typeInfo.Kind {
	case models.Struct:
		typeStr = typeInfo.StructName
	case models.Slice:
		if typeInfo.SliceElementType != nil {
			typeStr = "[]" + getTypeString(*typeInfo.SliceElementType)
		} else {
			typeStr = "[]kv3.Value"
		}
	case models.Map:
		if typeInfo.SliceElementType != nil {
			typeStr = "map[string]" + getTypeString(*typeInfo.SliceElementType)
		} else {
			typeStr = "map[string]kv3.Value"
		}
	default:
		typeStr = typeInfo.Name
	}

	if typeInfo.IsPointer {
		return "*" + typeStr
	}

	return typeStr
}

// decoderExpr returns the kv3 visitor expression that produces typeInfo.
func decoderExpr(typeInfo models.TypeInfo) string {
	var expr string

	switch typeInfo.Kind {
	case models.Bool:
		expr = "kv3.Boolean()"
	case models.Int:
		expr = fmt.Sprintf("kv3.Integer[%s]()", typeInfo.Name)
	case models.Float:
		expr = fmt.Sprintf("kv3.Float[%s]()", typeInfo.Name)
	case models.String:
		expr = "kv3.Text()"
	case models.Bytes:
		expr = "kv3.Bytes()"
	case models.Time:
		if typeInfo.Layout == "" {
			expr = "kv3.Time(time.RFC3339)"
		} else {
			expr = fmt.Sprintf("kv3.Time(%s)", strconv.Quote(typeInfo.Layout))
		}
	case models.UUID:
		expr = "kv3.UUID()"
	case models.Struct:
		expr = fmt.Sprintf("kv3.Struct[%s]()", typeInfo.StructName)
	case models.Slice:
		elem := "kv3.Any()"
		if typeInfo.SliceElementType != nil {
			elem = decoderExpr(*typeInfo.SliceElementType)
		}
		expr = fmt.Sprintf("kv3.Slice(%s)", elem)
	case models.Map:
		elem := "kv3.Any()"
		if typeInfo.SliceElementType != nil {
			elem = decoderExpr(*typeInfo.SliceElementType)
		}
		expr = fmt.Sprintf("kv3.Map(%s)", elem)
	case models.Custom:
		expr = typeInfo.Decoder
	default:
		expr = "kv3.Any()"
	}

	if typeInfo.IsPointer {
		return fmt.Sprintf("kv3.Ptr(%s)", expr)
	}
	return expr
}
