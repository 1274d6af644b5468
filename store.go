// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// A document is a store record as seen by this program.
type document struct {
	id   string
	data map[string]interface{}
}

// Store is the document database the operations run against.
type Store interface {
	// Stream calls f on every document of coll, stopping at the first error.
	Stream(ctx context.Context, coll string, f func(document) error) error
	Delete(ctx context.Context, coll, id string) error
	// Add creates a document with a generated ID and returns the ID.
	Add(ctx context.Context, coll string, data map[string]interface{}) (string, error)
	// SetMerge writes the fields of data to the document, leaving its
	// other fields alone. The document is created if it doesn't exist.
	SetMerge(ctx context.Context, coll, id string, data map[string]interface{}) error
	Query(ctx context.Context, q *query) ([]document, error)
	Close() error
}

type firestoreStore struct {
	c *firestore.Client
}

// openFirestore creates a Firestore client from cfg.
func openFirestore(ctx context.Context, cfg *config) (Store, error) {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	project := cfg.Project
	if project == "" {
		project = firestore.DetectProjectID
	}
	var (
		c   *firestore.Client
		err error
	)
	if cfg.Database != "" {
		c, err = firestore.NewClientWithDatabase(ctx, project, cfg.Database, opts...)
	} else {
		c, err = firestore.NewClient(ctx, project, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return &firestoreStore{c: c}, nil
}

func (s *firestoreStore) collection(name string) (*firestore.CollectionRef, error) {
	coll := s.c.Collection(name)
	if coll == nil {
		return nil, fmt.Errorf("invalid collection %q", name)
	}
	return coll, nil
}

func (s *firestoreStore) doc(coll, id string) (*firestore.DocumentRef, error) {
	cr, err := s.collection(coll)
	if err != nil {
		return nil, err
	}
	dr := cr.Doc(id)
	if dr == nil {
		return nil, fmt.Errorf("invalid document ID %q", id)
	}
	return dr, nil
}

func (s *firestoreStore) Stream(ctx context.Context, coll string, f func(document) error) error {
	cr, err := s.collection(coll)
	if err != nil {
		return err
	}
	iter := cr.Documents(ctx)
	defer iter.Stop()
	for {
		ds, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := f(document{id: ds.Ref.ID, data: ds.Data()}); err != nil {
			return err
		}
	}
}

func (s *firestoreStore) Delete(ctx context.Context, coll, id string) error {
	dr, err := s.doc(coll, id)
	if err != nil {
		return err
	}
	_, err = dr.Delete(ctx)
	return err
}

func (s *firestoreStore) Add(ctx context.Context, coll string, data map[string]interface{}) (string, error) {
	cr, err := s.collection(coll)
	if err != nil {
		return "", err
	}
	dr, _, err := cr.Add(ctx, data)
	if err != nil {
		return "", err
	}
	return dr.ID, nil
}

func (s *firestoreStore) SetMerge(ctx context.Context, coll, id string, data map[string]interface{}) error {
	dr, err := s.doc(coll, id)
	if err != nil {
		return err
	}
	_, err = dr.Set(ctx, data, firestore.MergeAll)
	return err
}

func (s *firestoreStore) Query(ctx context.Context, q *query) ([]document, error) {
	cr, err := s.collection(q.coll)
	if err != nil {
		return nil, err
	}
	fq := cr.Query
	for _, w := range q.wheres {
		fq = fq.Where(w.path, w.op, w.value)
	}
	for _, ord := range q.orders {
		fq = fq.OrderBy(ord.path, ord.dir)
	}
	if q.limit > 0 {
		fq = fq.Limit(q.limit)
	}
	dss, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	docs := make([]document, len(dss))
	for i, ds := range dss {
		docs[i] = document{id: ds.Ref.ID, data: ds.Data()}
	}
	return docs, nil
}

func (s *firestoreStore) Close() error {
	return s.c.Close()
}
