// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
)

// A query selects documents of a collection. All wheres must hold.
type query struct {
	coll   string
	wheres []where
	orders []order
	limit  int
}

type where struct {
	path, op string
	value    interface{}
}

type order struct {
	path string
	dir  firestore.Direction
}

// parseOrders parses arguments of the form "path" or "path:asc" or
// "path:desc".
func parseOrders(args []string) ([]order, error) {
	var ords []order
	for _, a := range args {
		path, dir, found := strings.Cut(a, ":")
		if path == "" {
			return nil, fmt.Errorf("order %q: empty field", a)
		}
		o := order{path: path, dir: firestore.Asc}
		if found {
			switch dir {
			case "asc":
			case "desc":
				o.dir = firestore.Desc
			default:
				return nil, fmt.Errorf("order %q: direction must be asc or desc", a)
			}
		}
		ords = append(ords, o)
	}
	return ords, nil
}

// typedWheres returns a copy of ws whose string values are converted
// to numbers where possible.
func typedWheres(ws []where) []where {
	out := make([]where, len(ws))
	for i, w := range ws {
		out[i] = w
		if s, ok := w.value.(string); ok {
			out[i].value = convertString(s)
		}
	}
	return out
}
