package pbtxt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const indentUnit = "  "

// Marshal renders msg in protobuf text format. Output is deterministic.
func Marshal(msg map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeMessage(&buf, msg, "", 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile marshals msg and writes it to path.
func WriteFile(path string, msg map[string]any) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sortedKeys(msg map[string]any) []string {
	keys := make([]string, 0, len(msg))
	for k := range msg {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := fieldRank[keys[i]]
		rj, jok := fieldRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

func writeMessage(buf *bytes.Buffer, msg map[string]any, parent string, depth int) error {
	for _, key := range sortedKeys(msg) {
		if err := writeField(buf, parent, key, msg[key], depth); err != nil {
			return err
		}
	}
	return nil
}

func writeField(buf *bytes.Buffer, parent, name string, value any, depth int) error {
	indent := strings.Repeat(indentUnit, depth)

	switch v := generic(value).(type) {
	case nil:
		return nil
	case []any:
		for _, item := range v {
			if _, nested := item.([]any); nested {
				return fmt.Errorf("field %q: nested lists are not representable", name)
			}
			if err := writeField(buf, parent, name, item, depth); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if isMapField(parent, name) {
			return writeMapField(buf, name, v, depth)
		}
		buf.WriteString(indent + name + " {\n")
		if err := writeMessage(buf, v, name, depth+1); err != nil {
			return err
		}
		buf.WriteString(indent + "}\n")
		return nil
	}

	scalar, err := formatScalar(name, value)
	if err != nil {
		return err
	}
	buf.WriteString(indent + name + ": " + scalar + "\n")
	return nil
}

func writeMapField(buf *bytes.Buffer, name string, entries map[string]any, depth int) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		entry := map[string]any{"key": k, "value": entries[k]}
		if name == "priority_queue_policy" {
			if n, err := strconv.ParseUint(k, 10, 64); err == nil {
				entry["key"] = n
			}
		}
		indent := strings.Repeat(indentUnit, depth)
		buf.WriteString(indent + name + " {\n")
		if err := writeMessage(buf, entry, name, depth+1); err != nil {
			return err
		}
		buf.WriteString(indent + "}\n")
	}
	return nil
}

// generic converts named map and slice types, such as domain.ModelConfig or
// []int, into the map[string]any / []any shapes the writer walks.
func generic(value any) any {
	switch value.(type) {
	case nil, map[string]any, []any, string, []byte:
		return value
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return value
}

func formatScalar(name string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		if enumFields[name] && isEnumIdent(v) {
			return v, nil
		}
		return quote(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v)), nil
	case float64:
		return formatFloat(v), nil
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("field %q: unsupported value type %T", name, value)
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isEnumIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
