// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// A dispatcher runs requests against a store.
type dispatcher struct {
	store   Store
	out     io.Writer // query results
	dir     string    // where sync writes its files
	format  string    // query output format
	typed   bool      // convert numeric-looking values to numbers
	limiter *rate.Limiter
	log     zerolog.Logger
}

func (d *dispatcher) run(ctx context.Context, req request) error {
	var err error
	switch r := req.(type) {
	case *syncRequest:
		err = d.sync(ctx, r.coll)
	case *deleteRequest:
		err = d.store.Delete(ctx, r.coll, r.id)
		if err == nil {
			d.log.Info().Str("collection", r.coll).Str("id", r.id).Msg("deleted document")
		}
	case *addRequest:
		var id string
		id, err = d.store.Add(ctx, r.coll, r.fields.toMap(d.typed))
		if err == nil {
			d.log.Info().Str("collection", r.coll).Str("id", id).Msg("added document")
		}
	case *updateRequest:
		err = d.store.SetMerge(ctx, r.coll, r.id, r.fields.toMap(d.typed))
		if err == nil {
			d.log.Info().Str("collection", r.coll).Str("id", r.id).Msg("updated document")
		}
	case *importRequest:
		err = d.importCSV(ctx, r.coll, r.path)
	case *query:
		err = d.query(ctx, r)
	default:
		return fmt.Errorf("unknown request %T", req)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.name(), err)
	}
	return nil
}

// syncPath returns the file that sync writes for coll.
func (d *dispatcher) syncPath(coll string) string {
	return filepath.Join(d.dir, coll+".txt")
}

// sync writes every document of coll to its sync file, one per line,
// replacing the file's previous contents.
//
// The file is created when the first document arrives, or after an empty
// collection has been read, so a collection the store rejects leaves no
// file. A store error after that leaves the documents written so far.
func (d *dispatcher) sync(ctx context.Context, coll string) (err error) {
	path := d.syncPath(coll)
	var (
		f *os.File
		w *bufio.Writer
	)
	create := func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		var err error
		if f, err = os.Create(path); err != nil {
			return err
		}
		w = bufio.NewWriter(f)
		return nil
	}
	defer func() {
		if f == nil {
			return
		}
		ferr := w.Flush()
		cerr := f.Close()
		if err == nil {
			err = ferr
		}
		if err == nil {
			err = cerr
		}
	}()

	n := 0
	err = d.store.Stream(ctx, coll, func(doc document) error {
		if f == nil {
			if err := create(); err != nil {
				return err
			}
		}
		n++
		_, err := fmt.Fprintf(w, "%s: %s\n", doc.id, formatData(doc.data))
		return err
	})
	if err != nil {
		return err
	}
	if f == nil {
		if err := create(); err != nil {
			return err
		}
	}
	d.log.Info().Str("collection", coll).Int("documents", n).Str("file", path).Msg("synced")
	return nil
}

// importCSV adds one document to coll for each data row of the CSV file at
// path, keyed by the header row. Rows are written one at a time; on error,
// the rows before the failing one remain in the store.
func (d *dispatcher) importCSV(ctx context.Context, coll, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		d.log.Warn().Str("file", path).Msg("empty CSV file")
		return nil
	}
	if err != nil {
		return err
	}
	n := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w (%d rows imported)", path, err, n)
		}
		line, _ := r.FieldPos(0)
		if len(rec) > len(header) {
			d.log.Warn().Int("line", line).Int("extra", len(rec)-len(header)).Msg("ignoring fields beyond header")
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if _, err := d.store.Add(ctx, coll, d.rowData(header, rec)); err != nil {
			return fmt.Errorf("%s:%d: %w (%d rows imported)", path, line, err, n)
		}
		n++
	}
	d.log.Info().Str("collection", coll).Int("documents", n).Str("file", path).Msg("imported")
	return nil
}

// rowData maps header names to the fields of rec. Header names without a
// field get a null value.
func (d *dispatcher) rowData(header, rec []string) map[string]interface{} {
	m := make(map[string]interface{}, len(header))
	for i, h := range header {
		if i < len(rec) {
			m[h] = storeValue(rec[i], d.typed)
		} else {
			m[h] = nil
		}
	}
	return m
}

func (d *dispatcher) query(ctx context.Context, q *query) error {
	if d.typed {
		qc := *q
		qc.wheres = typedWheres(q.wheres)
		q = &qc
	}
	docs, err := d.store.Query(ctx, q)
	if err != nil {
		return err
	}
	d.log.Debug().Str("collection", q.coll).Int("documents", len(docs)).Msg("query done")
	return displayDocs(d.out, docs, d.format)
}
