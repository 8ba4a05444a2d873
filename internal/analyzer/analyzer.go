package analyzer

import (
	"fmt"
	"regexp"

	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/models"
	"github.com/mcncl/kv3typer/kv3"
)

// DefaultRootName is the default name for the root struct if not specified.
const DefaultRootName = "RootType"

// Regex patterns for special string types
var (
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	rfc3339Regex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`) // 2006-01-02T15:04:05Z
	dateOnlyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)                                             // 2006-01-02
	dateTimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`)                   // 2006-01-02 15:04:05
)

// time.Parse layouts for the patterns above. Fractional seconds are accepted
// after the seconds field even when the layout omits them.
const (
	layoutRFC3339  = "2006-01-02T15:04:05Z07:00"
	layoutDateOnly = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

var (
	valueType  = models.TypeInfo{Kind: models.Value, Name: "kv3.Value"}
	floatType  = models.TypeInfo{Kind: models.Float, Name: "float64"}
	intType    = models.TypeInfo{Kind: models.Int, Name: "int64"}
	stringType = models.TypeInfo{Kind: models.String, Name: "string"}
)

// Analyzer walks a KV3 tree and determines Go types and struct definitions
type Analyzer struct {
	// structNames tracks generated struct names to avoid collisions
	structNames map[string]int
	// analysisResult holds discovered structs and imports
	analysisResult models.AnalysisResult
	config         *config.Config
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(config.NewConfig())
}

// NewAnalyzerWithConfig creates a new Analyzer instance with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{
		structNames: make(map[string]int),
		analysisResult: models.AnalysisResult{
			Structs: make([]models.StructDef, 0),
			Imports: make(map[string]struct{}),
		},
		config: cfg,
	}
}

// Analyze processes a parsed document and returns struct definitions and imports
func (a *Analyzer) Analyze(ir models.IntermediateRepresentation, rootStructName string) (models.AnalysisResult, error) {
	if ir.Root == nil {
		return models.AnalysisResult{}, fmt.Errorf("document has no root object")
	}
	if rootStructName == "" {
		rootStructName = DefaultRootName
	}
	rootStructName = a.generateUniqueStructName(a.getFieldName(rootStructName))

	def, err := a.structFromObjects([]*kv3.Object{ir.Root}, rootStructName)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to analyze root object: %w", err)
	}
	// the root is always emitted, even when a nested struct has the same shape
	def.Name = rootStructName
	def.IsRoot = true
	a.analysisResult.Structs = append(a.analysisResult.Structs, def)

	// Imports follow the final field types, since samples may widen
	// a time.Time field back to string.
	a.analysisResult.Imports = models.CollectImports(a.analysisResult.Structs)
	return a.analysisResult, nil
}

// analyzeNode determines the TypeInfo for a single node. suggestedName names
// any struct created for an object or an array of objects.
func (a *Analyzer) analyzeNode(node kv3.Value, suggestedName string) (models.TypeInfo, error) {
	switch v := node.(type) {
	case kv3.Null:
		return valueType, nil
	case kv3.Bool:
		return models.TypeInfo{Kind: models.Bool, Name: "bool"}, nil
	case kv3.Int:
		return intType, nil
	case kv3.Double:
		return floatType, nil
	case kv3.String:
		return a.analyzeString(string(v)), nil
	case kv3.HexArray:
		return models.TypeInfo{Kind: models.Bytes, Name: "[]byte"}, nil
	case kv3.Array:
		return a.analyzeArray(v, suggestedName)
	case *kv3.Object:
		return a.analyzeObject(v, suggestedName)
	default:
		return models.TypeInfo{}, fmt.Errorf("unexpected kv3 value type: %T", v)
	}
}

func (a *Analyzer) analyzeString(s string) models.TypeInfo {
	if uuidRegex.MatchString(s) {
		return models.TypeInfo{Kind: models.UUID, Name: "uuid.UUID"}
	}

	var layout string
	switch {
	case rfc3339Regex.MatchString(s):
		layout = layoutRFC3339
	case dateOnlyRegex.MatchString(s):
		layout = layoutDateOnly
	case dateTimeRegex.MatchString(s):
		layout = layoutDateTime
	default:
		return stringType
	}
	return models.TypeInfo{Kind: models.Time, Name: "time.Time", Layout: layout}
}

func (a *Analyzer) analyzeObject(obj *kv3.Object, suggestedName string) (models.TypeInfo, error) {
	def, err := a.structFromObjects([]*kv3.Object{obj}, suggestedName)
	if err != nil {
		return models.TypeInfo{}, err
	}
	return a.findOrAddStructDef(def, suggestedName), nil
}

func (a *Analyzer) analyzeArray(arr kv3.Array, suggestedName string) (models.TypeInfo, error) {
	if len(arr) == 0 {
		return sliceOf(valueType), nil
	}

	elementName := suggestedName
	if a.config.Arrays.SingularizeNames {
		elementName = config.Singularize(suggestedName)
	}

	objects := make([]*kv3.Object, 0, len(arr))
	for _, element := range arr {
		if obj, ok := element.(*kv3.Object); ok {
			objects = append(objects, obj)
		}
	}

	// Arrays of objects become a slice of one merged element struct
	if len(objects) == len(arr) {
		if !a.config.Arrays.MergeDifferentObjects && !sameKeys(objects) {
			return sliceOf(valueType), nil
		}
		def, err := a.structFromObjects(objects, elementName)
		if err != nil {
			return models.TypeInfo{}, fmt.Errorf("failed to merge elements of '%s': %w", suggestedName, err)
		}
		elem := a.findOrAddStructDef(def, elementName)
		elem.IsPointer = true
		return sliceOf(elem), nil
	}

	var elem models.TypeInfo
	for i, element := range arr {
		info, err := a.analyzeNode(element, elementName)
		if err != nil {
			return models.TypeInfo{}, fmt.Errorf("failed to analyze element %d of '%s': %w", i, suggestedName, err)
		}
		if i == 0 {
			elem = info
			continue
		}
		merged, ok := unify(elem, info)
		if !ok {
			// Heterogeneous array
			return sliceOf(valueType), nil
		}
		elem = merged
	}
	return sliceOf(elem), nil
}

// structFromObjects builds a struct definition covering every key of every
// object. Keys keep first-seen order. A key missing from some objects, or
// null in some, becomes optional.
func (a *Analyzer) structFromObjects(objects []*kv3.Object, structName string) (models.StructDef, error) {
	var keys []string
	values := make(map[string][]kv3.Value)
	for _, obj := range objects {
		for key, val := range obj.All() {
			if _, seen := values[key]; !seen {
				keys = append(keys, key)
			}
			values[key] = append(values[key], val)
		}
	}

	def := models.StructDef{
		Name:   structName,
		Fields: make([]models.FieldInfo, 0, len(keys)),
	}
	usedNames := make(map[string]int)

	for _, key := range keys {
		vals := values[key]
		goFieldName := uniqueFieldName(usedNames, a.getFieldName(key))

		nonNull := make([]kv3.Value, 0, len(vals))
		for _, v := range vals {
			if _, isNull := v.(kv3.Null); !isNull {
				nonNull = append(nonNull, v)
			}
		}
		nullable := len(nonNull) < len(vals)

		fieldType, err := a.fieldType(key, nonNull, structName+goFieldName)
		if err != nil {
			return models.StructDef{}, fmt.Errorf("failed to analyze field '%s' in '%s': %w", key, structName, err)
		}
		if nullable && !fieldType.Kind.Nilable() {
			fieldType.IsPointer = true
		}

		optional := len(vals) < len(objects) || nullable || isOptionalKind(fieldType.Kind)
		field := models.FieldInfo{
			Key:      key,
			GoName:   goFieldName,
			GoType:   fieldType,
			Tag:      a.buildTag(key, optional),
			Optional: optional,
		}
		if mapping, found := a.checkTypeMapping(key); found {
			field.Comment = mapping.Comment
		}
		def.Fields = append(def.Fields, field)
	}
	return def, nil
}

// fieldType determines the type for all non-null samples of one key.
func (a *Analyzer) fieldType(key string, samples []kv3.Value, nestedName string) (models.TypeInfo, error) {
	if mapping, found := a.checkTypeMapping(key); found {
		return models.TypeInfo{Kind: models.Custom, Name: mapping.Type, Decoder: mapping.Decoder, Import: mapping.Import}, nil
	}

	if len(samples) == 0 {
		return valueType, nil
	}

	// Objects under the same key share one struct
	objects := make([]*kv3.Object, 0, len(samples))
	for _, s := range samples {
		if obj, ok := s.(*kv3.Object); ok {
			objects = append(objects, obj)
		}
	}
	if len(objects) == len(samples) {
		def, err := a.structFromObjects(objects, nestedName)
		if err != nil {
			return models.TypeInfo{}, err
		}
		info := a.findOrAddStructDef(def, nestedName)
		info.IsPointer = true
		return info, nil
	}

	// Arrays under the same key are analyzed as one array
	var elements kv3.Array
	arrays := 0
	for _, s := range samples {
		if arr, ok := s.(kv3.Array); ok {
			elements = append(elements, arr...)
			arrays++
		}
	}
	if arrays == len(samples) && arrays > 1 {
		return a.analyzeArray(elements, nestedName)
	}

	var result models.TypeInfo
	for i, s := range samples {
		info, err := a.analyzeNode(s, nestedName)
		if err != nil {
			return models.TypeInfo{}, err
		}
		if i == 0 {
			result = info
			continue
		}
		merged, ok := unify(result, info)
		if !ok {
			return valueType, nil
		}
		result = merged
	}
	return result, nil
}

func (a *Analyzer) buildTag(key string, optional bool) string {
	tag := fmt.Sprintf(`kv3:"%s"`, key)
	if a.config.Tags.JSON {
		omit := ""
		if optional {
			omit = ",omitempty"
		}
		tag += fmt.Sprintf(` json:"%s%s"`, key, omit)
	}
	return "`" + tag + "`"
}

// generateUniqueStructName ensures that the struct name is unique by appending a number if needed.
func (a *Analyzer) generateUniqueStructName(baseName string) string {
	name := baseName
	count := a.structNames[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	a.structNames[baseName] = count + 1
	return name
}

// uniqueFieldName disambiguates keys that map to the same Go name, such as
// render_mode and renderMode.
func uniqueFieldName(used map[string]int, name string) string {
	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}
	return fmt.Sprintf("%s%d", name, count+1)
}

// getFieldName returns the Go field name for a KV3 key using configuration
func (a *Analyzer) getFieldName(key string) string {
	return a.config.GetFieldName(key)
}

// checkTypeMapping checks if a key matches any configured type mappings
func (a *Analyzer) checkTypeMapping(key string) (config.TypeMapping, bool) {
	return a.config.FindTypeMapping(key)
}

func sliceOf(elem models.TypeInfo) models.TypeInfo {
	return models.TypeInfo{
		Kind:             models.Slice,
		Name:             "[]" + typeName(elem),
		SliceElementType: &elem,
	}
}

func typeName(t models.TypeInfo) string {
	name := t.Name
	if t.Kind == models.Struct {
		name = t.StructName
	}
	if t.IsPointer {
		return "*" + name
	}
	return name
}

func isOptionalKind(k models.Kind) bool {
	return k == models.Struct || k.Nilable()
}

func sameKeys(objects []*kv3.Object) bool {
	first := objects[0]
	for _, obj := range objects[1:] {
		if obj.Len() != first.Len() {
			return false
		}
		for _, k := range first.Keys() {
			if !obj.Has(k) {
				return false
			}
		}
	}
	return true
}

// unify finds one type that can hold samples of both t1 and t2.
func unify(t1, t2 models.TypeInfo) (models.TypeInfo, bool) {
	if areTypeInfosEqual(&t1, &t2) {
		return t1, true
	}
	if isNumber(t1) && isNumber(t2) {
		return floatType, true
	}
	// time and uuid samples mixed with plain strings
	if isStringLike(t1) && isStringLike(t2) {
		return stringType, true
	}
	if t1.Kind == models.Slice && t2.Kind == models.Slice &&
		t1.SliceElementType != nil && t2.SliceElementType != nil {
		elem, ok := unify(*t1.SliceElementType, *t2.SliceElementType)
		if ok {
			return sliceOf(elem), true
		}
	}
	return models.TypeInfo{}, false
}

func isNumber(t models.TypeInfo) bool {
	return !t.IsPointer && (t.Kind == models.Int || t.Kind == models.Float)
}

func isStringLike(t models.TypeInfo) bool {
	return !t.IsPointer && (t.Kind == models.String || t.Kind == models.Time || t.Kind == models.UUID)
}

// areTypeInfosEqual checks if two TypeInfo objects represent the same type.
func areTypeInfosEqual(t1, t2 *models.TypeInfo) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if t1.Kind != t2.Kind || t1.Name != t2.Name || t1.IsPointer != t2.IsPointer ||
		t1.StructName != t2.StructName || t1.Layout != t2.Layout || t1.Decoder != t2.Decoder {
		return false
	}
	if t1.Kind == models.Slice {
		return areTypeInfosEqual(t1.SliceElementType, t2.SliceElementType)
	}
	return true
}

// areStructDefsEquivalent compares two StructDefs for structural equality.
// Keys, Go names, types and tags must match; field order does not matter.
func areStructDefsEquivalent(s1, s2 *models.StructDef) bool {
	if s1 == nil || s2 == nil {
		return s1 == s2
	}
	if len(s1.Fields) != len(s2.Fields) {
		return false
	}

	s1Fields := make(map[string]models.FieldInfo, len(s1.Fields))
	for _, f := range s1.Fields {
		s1Fields[f.Key] = f
	}

	for _, f2 := range s2.Fields {
		f1, ok := s1Fields[f2.Key]
		if !ok {
			return false
		}
		if f1.GoName != f2.GoName || f1.Tag != f2.Tag || f1.Optional != f2.Optional ||
			!areTypeInfosEqual(&f1.GoType, &f2.GoType) {
			return false
		}
	}
	return true
}

// findOrAddStructDef returns the TypeInfo of an existing equivalent struct,
// or names the candidate uniquely and records it.
func (a *Analyzer) findOrAddStructDef(candidate models.StructDef, suggestedName string) models.TypeInfo {
	for _, existing := range a.analysisResult.Structs {
		if areStructDefsEquivalent(&candidate, &existing) {
			return models.TypeInfo{
				Kind:       models.Struct,
				Name:       existing.Name,
				StructName: existing.Name,
			}
		}
	}

	finalName := a.generateUniqueStructName(suggestedName)
	candidate.Name = finalName
	candidate.IsRoot = false
	a.analysisResult.Structs = append(a.analysisResult.Structs, candidate)

	return models.TypeInfo{
		Kind:       models.Struct,
		Name:       finalName,
		StructName: finalName,
	}
}
