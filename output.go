// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var errUnknownFormat = errors.New("unknown output format")

var formats = []string{"text", "json", "csv"}

func validFormat(f string) bool {
	for _, g := range formats {
		if f == g {
			return true
		}
	}
	return false
}

func displayDocs(w io.Writer, docs []document, format string) error {
	switch format {
	case "text":
		for _, doc := range docs {
			if _, err := fmt.Fprintf(w, "%s: %s\n", doc.id, formatData(doc.data)); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		for _, doc := range docs {
			err := enc.Encode(struct {
				ID   string                 `json:"id"`
				Data map[string]interface{} `json:"data"`
			}{doc.id, doc.data})
			if err != nil {
				return fmt.Errorf("JSON encoding %s: %w", doc.id, err)
			}
		}
		return nil
	case "csv":
		return writeCSV(w, docs)
	default:
		return fmt.Errorf("%w %q", errUnknownFormat, format)
	}
}

// writeCSV writes one row per document. The columns are the document ID
// followed by the sorted union of all field names.
func writeCSV(w io.Writer, docs []document) error {
	seen := map[string]bool{}
	var cols []string
	for _, doc := range docs {
		for k := range doc.data {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, cols...)); err != nil {
		return err
	}
	for _, doc := range docs {
		row := make([]string, 0, len(cols)+1)
		row = append(row, doc.id)
		for _, c := range cols {
			row = append(row, csvCell(doc.data, c))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return formatValue(v)
}
