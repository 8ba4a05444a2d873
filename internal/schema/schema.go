// Package schema converts JSON Schema documents into struct definitions that
// the generator turns into KV3 decoders.
package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/mcncl/kv3typer/internal/config"
	"github.com/mcncl/kv3typer/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SchemaType handles JSON Schema type field which can be string or array of strings
type SchemaType struct {
	Types []string
}

// UnmarshalJSON handles both string and array forms of type
func (st *SchemaType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		st.Types = []string{s}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		st.Types = arr
		return nil
	}

	return fmt.Errorf("type must be string or array of strings")
}

// Primary returns the first type other than "null", or "null" if that is
// the only type.
func (st SchemaType) Primary() string {
	for _, t := range st.Types {
		if t != "null" {
			return t
		}
	}
	if len(st.Types) > 0 {
		return st.Types[0]
	}
	return ""
}

// IsNullable returns true if "null" is one of the allowed types
func (st SchemaType) IsNullable() bool {
	for _, t := range st.Types {
		if t == "null" {
			return true
		}
	}
	return false
}

// AdditionalProperties handles JSON Schema additionalProperties which can be bool or Schema
type AdditionalProperties struct {
	Allowed bool
	Schema  *Schema
}

// UnmarshalJSON handles both boolean and schema forms
func (ap *AdditionalProperties) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		ap.Allowed = b
		ap.Schema = nil
		return nil
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err == nil {
		ap.Allowed = true
		ap.Schema = &s
		return nil
	}

	return fmt.Errorf("additionalProperties must be boolean or schema")
}

// Schema represents the subset of a JSON Schema document kv3typer reads
type Schema struct {
	Schema      string `json:"$schema,omitempty"`
	ID          string `json:"$id,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	Properties           map[string]*Schema    `json:"properties,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *AdditionalProperties `json:"additionalProperties,omitempty"`

	Items *Schema `json:"items,omitempty"`

	Format string `json:"format,omitempty"`
	Enum   []any  `json:"enum,omitempty"`

	// Nullable is the OpenAPI style flag
	Nullable bool `json:"nullable,omitempty"`

	AllOf []*Schema `json:"allOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`

	Definitions map[string]*Schema `json:"definitions,omitempty"`
	Defs        map[string]*Schema `json:"$defs,omitempty"`

	// propertyOrder lists Properties keys in document order
	propertyOrder []string
}

// UnmarshalJSON decodes the schema and records the order its properties
// were written in, which a Go map would lose.
func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	s.propertyOrder = s.propertyOrder[:0]
	gjson.GetBytes(data, "properties").ForEach(func(key, _ gjson.Result) bool {
		s.propertyOrder = append(s.propertyOrder, key.String())
		return true
	})
	return nil
}

// PropertyNames returns the property names in document order. Schemas built
// in code fall back to sorted order.
func (s *Schema) PropertyNames() []string {
	if len(s.propertyOrder) == len(s.Properties) {
		return s.propertyOrder
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFile reads and parses a JSON Schema from a file
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	return ParseBytes(data)
}

// ParseBytes parses JSON Schema from bytes
func ParseBytes(data []byte) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse JSON Schema: %w", err)
	}

	return &schema, nil
}

// ParseString parses JSON Schema from a string
func ParseString(s string) (*Schema, error) {
	return ParseBytes([]byte(s))
}

// time.Parse layouts for the string formats JSON Schema defines
var formatLayouts = map[string]string{
	"date-time": "2006-01-02T15:04:05Z07:00",
	"date":      "2006-01-02",
	"time":      "15:04:05Z07:00",
}

var refPrefixes = []string{"#/definitions/", "#/$defs/"}

// Converter converts JSON Schema to Go struct definitions
type Converter struct {
	schema       *Schema
	config       *config.Config
	structs      []models.StructDef
	structNames  map[string]int
	definitions  map[string]*Schema
	resolvedRefs map[string]models.TypeInfo
}

// NewConverter creates a new schema converter using default configuration
func NewConverter(schema *Schema) *Converter {
	return NewConverterWithConfig(schema, config.NewConfig())
}

// NewConverterWithConfig creates a schema converter that names fields and
// builds tags according to cfg.
func NewConverterWithConfig(schema *Schema, cfg *config.Config) *Converter {
	definitions := make(map[string]*Schema)
	for k, v := range schema.Definitions {
		definitions[k] = v
	}
	for k, v := range schema.Defs {
		definitions[k] = v
	}

	return &Converter{
		schema:       schema,
		config:       cfg,
		structs:      make([]models.StructDef, 0),
		structNames:  make(map[string]int),
		definitions:  definitions,
		resolvedRefs: make(map[string]models.TypeInfo),
	}
}

// Convert processes the schema and returns analysis results
func (c *Converter) Convert(rootName string) (models.AnalysisResult, error) {
	if rootName == "" {
		rootName = c.schema.Title
		if rootName == "" {
			rootName = "RootType"
		}
	}
	rootName = typeName(rootName)

	root := c.schema
	if len(root.AllOf) > 0 {
		root = c.mergeAllOf(root.AllOf)
	}
	if root.Type.Primary() != "object" && len(root.Properties) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("root schema must describe an object, a KV3 document always has one at the root")
	}

	if _, err := c.convertObject(root, c.generateUniqueName(rootName), true); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to convert schema: %w", err)
	}

	return models.AnalysisResult{
		Structs: c.structs,
		Imports: models.CollectImports(c.structs),
	}, nil
}

// convertSchema recursively converts a schema to Go types
func (c *Converter) convertSchema(schema *Schema, suggestedName string) (models.TypeInfo, error) {
	if schema.Ref != "" {
		return c.resolveRef(schema.Ref)
	}

	if len(schema.AllOf) > 0 {
		return c.convertSchema(c.mergeAllOf(schema.AllOf), suggestedName)
	}

	schemaType := schema.Type.Primary()
	if schemaType == "" {
		// Infer type from properties
		if len(schema.Properties) > 0 || schema.AdditionalProperties != nil {
			schemaType = "object"
		} else if schema.Items != nil {
			schemaType = "array"
		}
	}

	switch schemaType {
	case "object":
		if len(schema.Properties) == 0 {
			return c.convertMap(schema, suggestedName)
		}
		return c.convertObject(schema, c.generateUniqueName(suggestedName), false)
	case "array":
		return c.convertArray(schema, suggestedName)
	case "string":
		return convertString(schema), nil
	case "integer":
		return models.TypeInfo{Kind: models.Int, Name: "int64"}, nil
	case "number":
		return models.TypeInfo{Kind: models.Float, Name: "float64"}, nil
	case "boolean":
		return models.TypeInfo{Kind: models.Bool, Name: "bool"}, nil
	default:
		// null, anyOf, oneOf or no type at all
		return models.TypeInfo{Kind: models.Value, Name: "kv3.Value"}, nil
	}
}

// convertObject converts an object schema to a Go struct named finalName
func (c *Converter) convertObject(schema *Schema, finalName string, isRoot bool) (models.TypeInfo, error) {
	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}

	fields := make([]models.FieldInfo, 0, len(schema.Properties))
	usedNames := make(map[string]int)

	for _, propName := range schema.PropertyNames() {
		propSchema := schema.Properties[propName]
		if propSchema == nil {
			continue
		}

		goFieldName := c.config.GetFieldName(propName)
		if n := usedNames[goFieldName]; n > 0 {
			usedNames[goFieldName] = n + 1
			goFieldName = fmt.Sprintf("%s%d", goFieldName, n+1)
		} else {
			usedNames[goFieldName] = 1
		}

		typeInfo, err := c.convertSchema(propSchema, finalName+goFieldName)
		if err != nil {
			return models.TypeInfo{}, fmt.Errorf("failed to convert property %s: %w", propName, err)
		}

		nullable := propSchema.Nullable || propSchema.Type.IsNullable()
		optional := !requiredSet[propName] || nullable
		// structs are always pointers so recursive definitions stay finite
		if !typeInfo.Kind.Nilable() && (optional || typeInfo.Kind == models.Struct) {
			typeInfo.IsPointer = true
		}

		fields = append(fields, models.FieldInfo{
			Key:      propName,
			GoName:   goFieldName,
			GoType:   typeInfo,
			Tag:      c.fieldTag(propName, optional),
			Optional: optional,
			Comment:  fieldComment(propSchema),
		})
	}

	c.structs = append(c.structs, models.StructDef{
		Name:    finalName,
		Fields:  fields,
		IsRoot:  isRoot,
		Comment: structComment(finalName, schema.Description),
	})

	return models.TypeInfo{
		Kind:       models.Struct,
		Name:       finalName,
		StructName: finalName,
	}, nil
}

// convertMap handles objects described only by additionalProperties
func (c *Converter) convertMap(schema *Schema, suggestedName string) (models.TypeInfo, error) {
	value := models.TypeInfo{Kind: models.Value, Name: "kv3.Value"}
	if ap := schema.AdditionalProperties; ap != nil && ap.Schema != nil {
		var err error
		value, err = c.convertSchema(ap.Schema, config.Singularize(suggestedName))
		if err != nil {
			return models.TypeInfo{}, fmt.Errorf("failed to convert additionalProperties: %w", err)
		}
		if value.Kind == models.Struct {
			value.IsPointer = true
		}
	}
	return models.TypeInfo{
		Kind:             models.Map,
		Name:             "map[string]" + value.Name,
		SliceElementType: &value,
	}, nil
}

// convertArray converts an array schema to a Go slice
func (c *Converter) convertArray(schema *Schema, suggestedName string) (models.TypeInfo, error) {
	elementType := models.TypeInfo{Kind: models.Value, Name: "kv3.Value"}

	if schema.Items != nil {
		elementName := suggestedName
		if c.config.Arrays.SingularizeNames {
			elementName = config.Singularize(suggestedName)
		}
		var err error
		elementType, err = c.convertSchema(schema.Items, elementName)
		if err != nil {
			return models.TypeInfo{}, fmt.Errorf("failed to convert array items: %w", err)
		}
	}

	sliceName := "[]" + elementType.Name
	if elementType.Kind == models.Struct {
		// Use pointer elements for struct slices
		sliceName = "[]*" + elementType.Name
		elementType.IsPointer = true
	}

	return models.TypeInfo{
		Kind:             models.Slice,
		Name:             sliceName,
		SliceElementType: &elementType,
	}, nil
}

// convertString converts a string schema to Go type
func convertString(schema *Schema) models.TypeInfo {
	if layout, ok := formatLayouts[schema.Format]; ok {
		return models.TypeInfo{Kind: models.Time, Name: "time.Time", Layout: layout}
	}
	if schema.Format == "uuid" {
		return models.TypeInfo{Kind: models.UUID, Name: "uuid.UUID"}
	}
	return models.TypeInfo{Kind: models.String, Name: "string"}
}

func definitionName(ref string) (string, bool) {
	for _, prefix := range refPrefixes {
		if name, ok := strings.CutPrefix(ref, prefix); ok {
			return name, true
		}
	}
	return "", false
}

// resolveRef resolves a local $ref. Object definitions are registered
// before their properties are converted, so self references terminate.
func (c *Converter) resolveRef(ref string) (models.TypeInfo, error) {
	if cached, ok := c.resolvedRefs[ref]; ok {
		return cached, nil
	}

	defName, ok := definitionName(ref)
	if !ok {
		return models.TypeInfo{}, fmt.Errorf("external $ref not supported: %s", ref)
	}
	defSchema, ok := c.definitions[defName]
	if !ok {
		return models.TypeInfo{}, fmt.Errorf("unresolved $ref: %s", ref)
	}

	if len(defSchema.Properties) > 0 && defSchema.Ref == "" && len(defSchema.AllOf) == 0 {
		name := c.generateUniqueName(typeName(defName))
		c.resolvedRefs[ref] = models.TypeInfo{Kind: models.Struct, Name: name, StructName: name}
		return c.convertObject(defSchema, name, false)
	}

	typeInfo, err := c.convertSchema(defSchema, typeName(defName))
	if err != nil {
		return models.TypeInfo{}, err
	}
	c.resolvedRefs[ref] = typeInfo
	return typeInfo, nil
}

// mergeAllOf merges multiple schemas from allOf
func (c *Converter) mergeAllOf(schemas []*Schema) *Schema {
	merged := &Schema{
		Properties: make(map[string]*Schema),
		Required:   make([]string, 0),
	}

	for _, s := range schemas {
		resolved := s
		if name, ok := definitionName(s.Ref); ok {
			if defSchema, ok := c.definitions[name]; ok {
				resolved = defSchema
			}
		}

		for _, k := range resolved.PropertyNames() {
			if _, seen := merged.Properties[k]; !seen {
				merged.propertyOrder = append(merged.propertyOrder, k)
			}
			merged.Properties[k] = resolved.Properties[k]
		}
		merged.Required = append(merged.Required, resolved.Required...)

		if merged.Title == "" && resolved.Title != "" {
			merged.Title = resolved.Title
		}
		if merged.Description == "" && resolved.Description != "" {
			merged.Description = resolved.Description
		}
	}

	merged.Type = SchemaType{Types: []string{"object"}}
	return merged
}

func (c *Converter) fieldTag(key string, optional bool) string {
	tag := fmt.Sprintf(`kv3:"%s"`, key)
	if c.config.Tags.JSON {
		omit := ""
		if optional {
			omit = ",omitempty"
		}
		tag += fmt.Sprintf(` json:"%s%s"`, key, omit)
	}
	return "`" + tag + "`"
}

// fieldComment is the description, plus the allowed values of an enum.
func fieldComment(schema *Schema) string {
	comment := schema.Description
	if len(schema.Enum) == 0 {
		return comment
	}
	values := make([]string, len(schema.Enum))
	for i, v := range schema.Enum {
		values[i] = fmt.Sprint(v)
	}
	enum := "One of: " + strings.Join(values, ", ") + "."
	if comment == "" {
		return enum
	}
	return comment + "\n" + enum
}

// structComment turns a description into a doc comment starting with the
// type name.
func structComment(name, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	if strings.HasPrefix(description, name+" ") {
		return description
	}
	return name + ": " + description
}

// generateUniqueName ensures struct names are unique
func (c *Converter) generateUniqueName(baseName string) string {
	name := baseName
	count := c.structNames[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	c.structNames[baseName] = count + 1
	return name
}

// typeName converts a title or definition name into an exported Go type name
func typeName(s string) string {
	name := strcase.ToCamel(s)
	if name == "" {
		return "Type"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "T" + name
	}
	return name
}
