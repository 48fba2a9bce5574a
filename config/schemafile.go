package config

import (
	"os"

	"factdb/models"

	"gopkg.in/yaml.v2"
)

// schemaDoc is the YAML shape a schema file declares — an explicit
// schema description that stands in for runtime class introspection.
//
// Example:
//
//	entities:
//	  User:
//	    attributes:
//	      login: {type: string, unique: true}
//	      addr:  {type: eid}
//	      addrs: {type: eid, list: true}
type schemaDoc struct {
	Entities map[string]struct {
		Attributes map[string]struct {
			Type   string `yaml:"type"`
			Unique bool   `yaml:"unique"`
			List   bool   `yaml:"list"`
		} `yaml:"attributes"`
	} `yaml:"entities"`
}

var yamlTypeToKind = map[string]models.ValueKind{
	"bool":    models.KindBool,
	"byte":    models.KindByte,
	"int32":   models.KindInt32,
	"int64":   models.KindInt64,
	"string":  models.KindString,
	"bytes":   models.KindBytes,
	"instant": models.KindInstant,
	"zoned":   models.KindZoned,
	"eid":     models.KindEID,
}

// LoadSchemaFile reads a YAML schema declaration from path and returns the
// populated Schema. Attribute names are assembled as "<Entity>.<prop>",
// matching the wire convention used everywhere else.
func LoadSchemaFile(path string) (*models.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSchemaFile(raw)
}

// ParseSchemaFile parses a YAML schema document already read into memory.
func ParseSchemaFile(raw []byte) (*models.Schema, error) {
	var doc schemaDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	schema := models.NewSchema()
	for entity, decl := range doc.Entities {
		for prop, a := range decl.Attributes {
			kind, ok := yamlTypeToKind[a.Type]
			if !ok {
				return nil, &unknownTypeError{entity: entity, prop: prop, typ: a.Type}
			}
			attr := models.Attribute{
				Name:   entity + "." + prop,
				Type:   kind,
				Unique: a.Unique,
				List:   a.List,
			}
			if err := schema.Declare(attr); err != nil {
				return nil, err
			}
		}
	}
	return schema, nil
}

type unknownTypeError struct {
	entity, prop, typ string
}

func (e *unknownTypeError) Error() string {
	return "config: " + e.entity + "." + e.prop + " declares unknown type " + e.typ
}
