package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Formatter renders result data for the terminal or a file
type Formatter interface {
	Format(data any, pretty bool) ([]byte, error)
}

// NewFormatter returns the formatter for a format name. Unknown names fall
// back to JSON.
func NewFormatter(format string) Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return &YAMLFormatter{}
	case "csv":
		return &CSVFormatter{}
	case "table":
		return &TableFormatter{}
	default:
		return &JSONFormatter{}
	}
}

// JSONFormatter writes JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any, pretty bool) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return append(out, '\n'), nil
}

// YAMLFormatter writes YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if pretty {
		enc.SetIndent(2)
	}
	if err := enc.Encode(Sanitize(data)); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// CSVFormatter writes one key,value row per scalar leaf
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return nil, err
	}
	for _, row := range Flatten(data) {
		if err := w.Write([]string{row.Key, row.Value}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buf.Bytes(), nil
}

// TableFormatter writes an aligned two-column table with titled keys
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, pretty bool) ([]byte, error) {
	title := cases.Title(language.English)

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, row := range Flatten(data) {
		key := title.String(strings.NewReplacer("_", " ", ".", " / ").Replace(row.Key))
		fmt.Fprintf(tw, "%s\t%s\n", key, row.Value)
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}
	return buf.Bytes(), nil
}

// Row is one flattened key/value pair
type Row struct {
	Key   string
	Value string
}

// Flatten walks maps and structs into dotted keys. Long numeric slices are
// summarized instead of expanded.
func Flatten(data any) []Row {
	var rows []Row
	flatten("", Sanitize(data), &rows)
	return rows
}

func flatten(prefix string, v any, rows *[]Row) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, val[k], rows)
		}
	case []any:
		*rows = append(*rows, Row{Key: prefix, Value: summarize(val)})
	case []float64:
		items := make([]any, len(val))
		for i, x := range val {
			items[i] = x
		}
		*rows = append(*rows, Row{Key: prefix, Value: summarize(items)})
	default:
		*rows = append(*rows, Row{Key: prefix, Value: formatScalar(v)})
	}
}

func summarize(items []any) string {
	if len(items) <= 4 {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = formatScalar(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("[%d values]", len(items))
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Sanitize converts data into maps, slices and scalars, replacing NaN and
// infinite floats with zero so every encoder accepts it
func Sanitize(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case float64:
		return finite(v)
	case float32:
		return float32(finite(float64(v)))
	case string, bool, int, int64, uint64:
		return v
	case []float64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = finite(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[k] = Sanitize(x)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = Sanitize(x)
		}
		return out
	default:
		return sanitizeWithReflection(data)
	}
}

func finite(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

func sanitizeWithReflection(data any) any {
	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := val.Field(i)
			fieldType := typ.Field(i)
			if !field.CanInterface() {
				continue
			}

			name := fieldType.Name
			if tag := fieldType.Tag.Get("json"); tag != "" {
				parts := strings.Split(tag, ",")
				if parts[0] == "-" {
					continue
				}
				if parts[0] != "" {
					name = parts[0]
				}
			}
			result[name] = Sanitize(field.Interface())
		}
		return result
	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = Sanitize(val.Index(i).Interface())
		}
		return result
	case reflect.Map:
		result := make(map[string]any)
		for _, key := range val.MapKeys() {
			result[fmt.Sprintf("%v", key.Interface())] = Sanitize(val.MapIndex(key).Interface())
		}
		return result
	case reflect.Float32, reflect.Float64:
		return finite(val.Float())
	default:
		return val.Interface()
	}
}
