// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
)

type field struct {
	key, value string
}

// fields is an ordered list of key-value pairs taken from the command line.
type fields []field

// pairFields pairs flat[0] with flat[1], flat[2] with flat[3], and so on.
// If flat has odd length, its last element has no partner and is dropped.
func pairFields(flat []string) fields {
	var fs fields
	for i := 0; i+1 < len(flat); i += 2 {
		fs = append(fs, field{flat[i], flat[i+1]})
	}
	return fs
}

// toMap converts fs to the form the store accepts. Later duplicates
// overwrite earlier ones. If typed is true, numeric-looking values become
// numbers.
func (fs fields) toMap(typed bool) map[string]interface{} {
	m := make(map[string]interface{}, len(fs))
	for _, f := range fs {
		m[f.key] = storeValue(f.value, typed)
	}
	return m
}

// chunkWheres groups flat into (path, op, value) triples. A trailing
// remainder of one or two elements is dropped.
func chunkWheres(flat []string) []where {
	var ws []where
	for i := 0; i+2 < len(flat); i += 3 {
		ws = append(ws, where{path: flat[i], op: flat[i+1], value: flat[i+2]})
	}
	return ws
}

func storeValue(s string, typed bool) interface{} {
	if !typed {
		return s
	}
	return convertString(s)
}

func convertString(s string) interface{} {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f
	}
	return s
}

// formatData renders a document's data as {k1: v1, k2: v2} with sorted keys.
func formatData(m map[string]interface{}) string {
	return formatValue(m)
}

func formatValue(v interface{}) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(v))
	case time.Time:
		b.WriteString(v.Format(time.RFC3339Nano))
	case *firestore.DocumentRef:
		b.WriteString(v.Path)
	case []byte:
		fmt.Fprintf(b, "%x", v)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			writeValue(b, v[k])
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	default:
		fmt.Fprint(b, v)
	}
}

// isOption reports whether tok looks like a command-line option rather
// than a value. Negative numbers are values.
func isOption(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err != nil
}
