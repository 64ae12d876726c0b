package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/tansive/vaultconsole/internal/metadata"
)

// manifestSchema is the envelope every manifest document must satisfy. The
// spec body is checked later against the kind's own record type.
const manifestSchema = `{
  "type": "object",
  "required": ["kind", "spec"],
  "additionalProperties": false,
  "properties": {
    "kind": {"type": "string", "minLength": 1},
    "id": {"type": "integer", "minimum": 1},
    "spec": {"type": "object", "minProperties": 1}
  }
}`

const manifestSchemaURL = "inline://manifest"

var compiledManifestSchema = mustCompileManifestSchema()

func mustCompileManifestSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(manifestSchemaURL)
}

// Manifest is one record document of a manifest file:
//
//	kind: dh
//	id: 42        # update only
//	spec:
//	  projectshortname: p1
//	  ...
type Manifest struct {
	Kind   metadata.Kind
	ID     int64
	Spec   json.RawMessage
	Source string // file name and document number, for messages
}

// Record decodes the spec into the kind's record type.
func (m Manifest) Record() (metadata.Record, error) {
	return metadata.Decode(m.Kind, m.Spec)
}

// Fields returns the spec's field names, sorted.
func (m Manifest) Fields() []string {
	var out []string
	gjson.ParseBytes(m.Spec).ForEach(func(key, _ gjson.Result) bool {
		out = append(out, key.String())
		return true
	})
	return out
}

// Name is the best human identifier in the spec.
func (m Manifest) Name() string {
	doc := gjson.ParseBytes(m.Spec)
	for _, f := range []string{"compname", "projectshortname"} {
		if v := doc.Get(f).String(); v != "" {
			return v
		}
	}
	return m.Source
}

// LoadManifests reads filename, or stdin when filename is "-". If data is
// provided it is used instead of reading the file.
func LoadManifests(filename string, data ...[]byte) ([]Manifest, error) {
	var raw []byte
	var err error
	switch {
	case len(data) > 0:
		raw = data[0]
	case filename == "-":
		raw, err = io.ReadAll(os.Stdin)
	default:
		raw, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	raw = replaceTabsWithSpaces(raw)
	var envDirs []string
	if filename != "" && filename != "-" {
		envDirs = append(envDirs, filepath.Dir(filename))
	}
	raw, err = PreprocessYAML(raw, envDirs...)
	if err != nil {
		return nil, err
	}
	return ParseManifests(raw, filepath.Base(filename))
}

// ParseManifests parses a multi-document manifest. Empty documents are
// skipped; any invalid document fails the whole file.
func ParseManifests(data []byte, source string) ([]Manifest, error) {
	docs, err := splitDocuments(data)
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(docs))
	for i, doc := range docs {
		m, err := parseManifest(doc, fmt.Sprintf("%s#%d", source, i+1))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// splitDocuments re-encodes each non-empty YAML document on its own.
func splitDocuments(data []byte) ([][]byte, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var out [][]byte
	for {
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if isEmptyDocument(&node) {
			continue
		}
		b, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func isEmptyDocument(node *yaml.Node) bool {
	if node.Kind == 0 || len(node.Content) == 0 {
		return true
	}
	body := node.Content[0]
	return body.Kind == yaml.ScalarNode && body.Tag == "!!null"
}

func parseManifest(doc []byte, source string) (Manifest, error) {
	js, err := sigsyaml.YAMLToJSON(doc)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: unable to convert to JSON: %v", source, err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Manifest{}, fmt.Errorf("%s: unable to parse manifest: %v", source, err)
	}
	if err := compiledManifestSchema.Validate(v); err != nil {
		return Manifest{}, fmt.Errorf("%s: invalid manifest: %s", source, schemaMessage(err))
	}

	parsed := gjson.ParseBytes(js)
	k, err := metadata.ParseKind(parsed.Get("kind").String())
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", source, err)
	}
	if !k.IsComponent() {
		return Manifest{}, fmt.Errorf("%s: %s records are read-only", source, k.Label())
	}
	return Manifest{
		Kind:   k,
		ID:     parsed.Get("id").Int(),
		Spec:   json.RawMessage(parsed.Get("spec").Raw),
		Source: source,
	}, nil
}

// schemaMessage flattens a schema validation error to its leaf messages.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	for _, u := range ve.BasicOutput().Errors {
		if u.Error == "" || strings.HasPrefix(u.Error, "doesn't validate with") {
			continue
		}
		loc := u.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, loc+": "+u.Error)
	}
	if len(msgs) == 0 {
		return ve.Message
	}
	return strings.Join(msgs, "; ")
}

// replaceTabsWithSpaces replaces all tab characters with four spaces
func replaceTabsWithSpaces(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\t"), []byte("    "))
}
