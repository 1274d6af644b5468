// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"strings"
)

// A request is one operation parsed from the command line.
type request interface {
	name() string
}

type syncRequest struct {
	coll string
}

type deleteRequest struct {
	coll, id string
}

type addRequest struct {
	coll   string
	fields fields
}

type updateRequest struct {
	coll, id string
	fields   fields
}

type importRequest struct {
	coll, path string
}

func (*syncRequest) name() string   { return "sync" }
func (*deleteRequest) name() string { return "delete" }
func (*addRequest) name() string    { return "add" }
func (*updateRequest) name() string { return "update" }
func (*importRequest) name() string { return "csv" }
func (*query) name() string         { return "query" }

// An operation option and the number of arguments it takes.
// A max of -1 means unbounded.
type opSpec struct {
	flag     string
	min, max int
	build    func([]string) request
}

// opSpecs is in priority order: when several operations are given,
// the first one here runs.
var opSpecs = []opSpec{
	{"--sync", 1, 1, func(a []string) request {
		return &syncRequest{coll: a[0]}
	}},
	{"--delete", 2, 2, func(a []string) request {
		return &deleteRequest{coll: a[0], id: a[1]}
	}},
	{"--add", 1, -1, func(a []string) request {
		return &addRequest{coll: a[0], fields: pairFields(a[1:])}
	}},
	{"--update", 2, -1, func(a []string) request {
		return &updateRequest{coll: a[0], id: a[1], fields: pairFields(a[2:])}
	}},
	{"--csv", 2, 2, func(a []string) request {
		return &importRequest{coll: a[0], path: a[1]}
	}},
	{"--query", 1, -1, func(a []string) request {
		return &query{coll: a[0], wheres: chunkWheres(a[1:])}
	}},
}

// parseCommandLine extracts the operation options from args. It returns the
// highest-priority request (nil if there is none) and the arguments that
// belong to no operation, in the order given.
func parseCommandLine(args []string) (request, []string, error) {
	given := map[string][]string{}
	var rest []string

	alts := make([]parser, 0, len(opSpecs)+2)
	// Nothing after "--" is an operation.
	alts = append(alts, Do(And(Lit("--"), Repeat(Any)), func(toks []string) error {
		rest = append(rest, toks...)
		return nil
	}))
	for _, op := range opSpecs {
		op := op
		alts = append(alts, Do(
			And(Lit(op.flag), Commit, Between("argument "+op.flag, op.min, op.max, isValue)),
			func(toks []string) error {
				// A repeated option replaces the earlier one.
				given[op.flag] = toks[1:]
				return nil
			}))
	}
	alts = append(alts, Do(Any, func(toks []string) error {
		rest = append(rest, toks...)
		return nil
	}))

	if err := Parse(splitInline(args), Repeat(Or(alts...))); err != nil {
		return nil, nil, usageErrorf("%v", err)
	}
	for _, op := range opSpecs {
		if a, ok := given[op.flag]; ok {
			return op.build(a), rest, nil
		}
	}
	return nil, rest, nil
}

func isValue(tok string) bool {
	return !isOption(tok)
}

// splitInline rewrites "--sync=users" as "--sync", "users".
func splitInline(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if flag, val, ok := strings.Cut(a, "="); ok && isOpFlag(flag) {
			out = append(out, flag, val)
			continue
		}
		out = append(out, a)
	}
	return out
}

func isOpFlag(s string) bool {
	for _, op := range opSpecs {
		if op.flag == s {
			return true
		}
	}
	return false
}
