package hush

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"
)

func hexFuncs() []stdFunc {
	return []stdFunc{
		{"encode", 1, hexEncode},
		{"decode", 1, hexDecode},
	}
}

func hexEncode(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	return String(hex.EncodeToString([]byte(s))), nil
}

func hexDecode(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return NewError(err.Error(), String(s)), nil
	}
	return String(data), nil
}

func jsonFuncs() []stdFunc {
	return []stdFunc{
		{"encode", 1, jsonEncode},
		{"decode", 1, jsonDecode},
	}
}

// jsonEncode keeps dict insertion order, which encoding/json cannot do for
// maps, so containers are written by hand and scalars delegated.
func jsonEncode(c *Call) (Value, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, c.Args[0], make(map[Value]bool)); err != nil {
		return nil, c.Panicf("%v", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, c.Panicf("%v", err)
	}
	return String(out.String()), nil
}

var errCyclic = errors.New("value contains itself")

// enter marks a container as being encoded, failing if it already is.
func enter(active map[Value]bool, v Value) error {
	if active[v] {
		return errCyclic
	}
	if len(active) > maxInspectDepth {
		return fmt.Errorf("value is nested too deeply")
	}
	active[v] = true
	return nil
}

func writeJSON(buf *bytes.Buffer, v Value, active map[Value]bool) error {
	switch v.(type) {
	case *Array, *Dict:
		if err := enter(active, v); err != nil {
			return err
		}
		defer delete(active, v)
	}
	switch x := v.(type) {
	case Nil:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(x)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot encode %s as json", Inspect(x))
		}
		buf.WriteString(formatFloat(f))
	case Char:
		return writeJSONString(buf, string([]byte{byte(x)}))
	case String:
		return writeJSONString(buf, string(x))
	case *Array:
		buf.WriteByte('[')
		for i, item := range x.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, active); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Dict:
		buf.WriteByte('{')
		for i, k := range x.Keys() {
			key, ok := k.(String)
			if !ok {
				return fmt.Errorf("cannot encode dict key (%s) as json", Inspect(k))
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, string(key)); err != nil {
				return err
			}
			buf.WriteByte(':')
			item, _ := x.Get(k)
			if err := writeJSON(buf, item, active); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode (%s: %s) as json", Inspect(v), TypeOf(v))
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func jsonDecode(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	v, err := readJSON(dec)
	if err == nil {
		if _, trailing := dec.Token(); trailing != io.EOF {
			err = fmt.Errorf("invalid character after top-level value")
		}
	}
	if err != nil {
		return NewError(err.Error(), String(s)), nil
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return Nil{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			arr := NewArray()
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			_, err := dec.Token()
			return arr, err
		case '{':
			dict := NewDict()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				item, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				dict.Set(String(key), item)
			}
			_, err := dec.Token()
			return dict, err
		}
	}
	return nil, fmt.Errorf("unexpected json token %v", tok)
}

func yamlFuncs() []stdFunc {
	return []stdFunc{
		{"encode", 1, yamlEncode},
		{"decode", 1, yamlDecode},
	}
}

func yamlEncode(c *Call) (Value, error) {
	node, err := toYAML(c.Args[0], make(map[Value]bool))
	if err != nil {
		return nil, c.Panicf("%v", err)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, c.Panicf("%v", err)
	}
	return String(data), nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toYAML(v Value, active map[Value]bool) (*yaml.Node, error) {
	switch v.(type) {
	case *Array, *Dict:
		if err := enter(active, v); err != nil {
			return nil, err
		}
		defer delete(active, v)
	}
	switch x := v.(type) {
	case Nil:
		return scalarNode("!!null", "null"), nil
	case Bool:
		return scalarNode("!!bool", strconv.FormatBool(bool(x))), nil
	case Int:
		return scalarNode("!!int", strconv.FormatInt(int64(x), 10)), nil
	case Float:
		f := float64(x)
		switch {
		case math.IsNaN(f):
			return scalarNode("!!float", ".nan"), nil
		case math.IsInf(f, 1):
			return scalarNode("!!float", ".inf"), nil
		case math.IsInf(f, -1):
			return scalarNode("!!float", "-.inf"), nil
		}
		return scalarNode("!!float", formatFloat(f)), nil
	case Char:
		return scalarNode("!!str", string([]byte{byte(x)})), nil
	case String:
		return scalarNode("!!str", string(x)), nil
	case *Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x.Items {
			child, err := toYAML(item, active)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case *Dict:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range x.Keys() {
			key, err := toYAML(k, active)
			if err != nil {
				return nil, err
			}
			item, _ := x.Get(k)
			value, err := toYAML(item, active)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, key, value)
		}
		return node, nil
	}
	return nil, fmt.Errorf("cannot encode (%s: %s) as yaml", Inspect(v), TypeOf(v))
}

func yamlDecode(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return NewError(err.Error(), String(s)), nil
	}
	v, err := fromYAML(&doc)
	if err != nil {
		return NewError(err.Error(), String(s)), nil
	}
	return v, nil
}

func fromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case 0:
		return Nil{}, nil
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Nil{}, nil
		}
		return fromYAML(node.Content[0])
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.SequenceNode:
		arr := NewArray()
		for _, child := range node.Content {
			item, err := fromYAML(child)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, item)
		}
		return arr, nil
	case yaml.MappingNode:
		dict := NewDict()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := fromYAML(node.Content[i])
			if err != nil {
				return nil, err
			}
			if !ValidKey(key) {
				return nil, fmt.Errorf("invalid mapping key %s", Inspect(key))
			}
			item, err := fromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			dict.Set(key, item)
		}
		return dict, nil
	}

	switch node.ShortTag() {
	case "!!null":
		return Nil{}, nil
	case "!!bool":
		var b bool
		err := node.Decode(&b)
		return Bool(b), err
	case "!!int":
		var n int64
		err := node.Decode(&n)
		return Int(n), err
	case "!!float":
		var f float64
		err := node.Decode(&f)
		return Float(f), err
	}
	return String(node.Value), nil
}

func gzipFuncs() []stdFunc {
	return []stdFunc{
		{"compress", 1, gzipCompress},
		{"decompress", 1, gzipDecompress},
	}
}

func gzipCompress(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		return nil, c.Panicf("%v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, c.Panicf("%v", err)
	}
	return String(buf.String()), nil
}

func gzipDecompress(c *Call) (Value, error) {
	s, err := c.String(0)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader([]byte(s)))
	if err != nil {
		return NewError(err.Error(), Nil{}), nil
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return NewError(err.Error(), Nil{}), nil
	}
	return String(data), nil
}
