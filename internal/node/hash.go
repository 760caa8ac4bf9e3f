package node

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"
)

// ContentHash computes the deterministic fingerprint described in spec
// §4.3: node type, every non-function non-underscored non-children prop
// (stringified with a cycle-safe stringifier), and the recursive hash of
// every child (or "text:<value>" for TEXT children).
func (t *Tree) ContentHash(id ID) string {
	n := t.Get(id)
	var b strings.Builder
	b.WriteString(string(n.Type))
	b.WriteByte(0)

	for _, p := range n.Props {
		if p.Key == "children" || strings.HasPrefix(p.Key, "_") {
			continue
		}
		if isFunc(p.Value) {
			continue
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(cycleSafeStringify(p.Value))
		b.WriteByte(0)
	}

	for _, c := range n.Children {
		child := t.Get(c)
		if child.Type == TypeText {
			b.WriteString("text:")
			b.WriteString(child.Value)
		} else {
			b.WriteString(t.ContentHash(c))
		}
		b.WriteByte(0)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func isFunc(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

// cycleSafeStringify renders v deterministically, emitting "[Circular]"
// for back-references (spec §9 "cycle-safe stringify for content
// hashing") and explicit sentinels for Go's non-JSON-native primitives:
// *big.Int stands in for the JS BigInt case ("bigint:<decimal>"); there is
// no Go analogue of a Symbol, so that branch is intentionally unreachable
// from Go callers and omitted rather than faked.
func cycleSafeStringify(v any) string {
	visited := map[uintptr]bool{}
	return stringify(reflect.ValueOf(v), visited)
}

func stringify(rv reflect.Value, visited map[uintptr]bool) string {
	if !rv.IsValid() {
		return "null"
	}

	if bi, ok := rv.Interface().(*big.Int); ok {
		if bi == nil {
			return "null"
		}
		return "bigint:" + bi.String()
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "null"
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return "[Circular]"
		}
		visited[ptr] = true
		defer delete(visited, ptr)
	}

	switch rv.Kind() {
	case reflect.String:
		return strconvQuote(rv.String())
	case reflect.Bool:
		return fmt.Sprint(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprint(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprint(rv.Float())
	case reflect.Ptr, reflect.Interface:
		return stringify(rv.Elem(), visited)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i), visited)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		keys := rv.MapKeys()
		ks := make([]string, len(keys))
		for i, k := range keys {
			ks[i] = fmt.Sprint(k.Interface())
		}
		sort.Strings(ks)
		idx := map[string]reflect.Value{}
		for _, k := range keys {
			idx[fmt.Sprint(k.Interface())] = rv.MapIndex(k)
		}
		parts := make([]string, len(ks))
		for i, k := range ks {
			parts[i] = strconvQuote(k) + ":" + stringify(idx[k], visited)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}

func strconvQuote(s string) string {
	return fmt.Sprintf("%q", s)
}
