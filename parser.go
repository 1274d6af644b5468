// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"errors"
	"fmt"
	"strconv"
)

// A parser consumes tokens from a state. A parser that fails after
// reaching a Commit leaves the state committed, so enclosing Or and
// Repeat parsers report its error instead of backtracking.
type parser func(*state) error

type state struct {
	toks      []string
	pos       int
	committed bool
}

func (s *state) atEOF() bool {
	return s.pos >= len(s.toks)
}

func (s *state) current() string {
	if s.atEOF() {
		return "end of input"
	}
	return fmt.Sprintf("%q", s.toks[s.pos])
}

func Parse(toks []string, p parser) error {
	s := &state{toks: toks, pos: 0}
	if err := p(s); err != nil {
		return err
	}
	if s.pos != len(s.toks) {
		return fmt.Errorf("unconsumed input starting at %s", s.current())
	}
	return nil
}

func And(parsers ...parser) parser {
	return func(s *state) error {
		for _, p := range parsers {
			if err := p(s); err != nil {
				return err
			}
		}
		return nil
	}
}

func Lit(lit string) parser {
	return func(s *state) error {
		if s.atEOF() || s.toks[s.pos] != lit {
			return fmt.Errorf("expected %q, got %s", lit, s.current())
		}
		s.pos++
		return nil
	}
}

func Is(name string, pred func(s string) bool) parser {
	return func(s *state) error {
		if s.atEOF() || !pred(s.toks[s.pos]) {
			return fmt.Errorf("expected %s, got %s", name, s.current())
		}
		s.pos++
		return nil
	}
}

func Or(parsers ...parser) parser {
	return func(s *state) error {
		start := s.pos
		c := s.committed
		s.committed = false
		for _, p := range parsers {
			err := p(s)
			if err == nil {
				s.committed = c
				return nil
			}
			if s.committed {
				return err
			}
			s.pos = start
		}
		s.committed = c
		return fmt.Errorf("parse failed at %s", s.current())
	}
}

var (
	Any parser = func(s *state) error {
		if s.atEOF() {
			return errors.New("unexpected end of input")
		}
		s.pos++
		return nil
	}

	Commit parser = func(s *state) error {
		s.committed = true
		return nil
	}
)

// Repeat applies p until it fails or the input is exhausted.
// An uncommitted failure ends the repetition without error.
func Repeat(p parser) parser {
	return func(s *state) error {
		c := s.committed
		for !s.atEOF() {
			start := s.pos
			s.committed = false
			if err := p(s); err != nil {
				if s.committed {
					return err
				}
				s.pos = start
				break
			}
		}
		s.committed = c
		return nil
	}
}

// Between consumes at least min and at most max tokens accepted by pred.
// A negative max means no upper bound. Consumption stops at the first
// token pred rejects.
func Between(name string, min, max int, pred func(string) bool) parser {
	item := Is(name, pred)
	return func(s *state) error {
		n := 0
		for (max < 0 || n < max) && opt(item, s) {
			n++
		}
		if n < min {
			return fmt.Errorf("%s: expected %s", name, countPhrase(min, max))
		}
		return nil
	}
}

func countPhrase(min, max int) string {
	switch {
	case min == max && min == 1:
		return "one argument"
	case min == max:
		return strconv.Itoa(min) + " arguments"
	case min == 1:
		return "at least one argument"
	default:
		return "at least " + strconv.Itoa(min) + " arguments"
	}
}

func opt(p parser, s *state) bool {
	start := s.pos
	if p(s) != nil {
		s.pos = start
		return false
	}
	return true
}

// Do runs p and passes the tokens it consumed to f.
func Do(p parser, f func([]string) error) parser {
	return func(s *state) error {
		start := s.pos
		if err := p(s); err != nil {
			return err
		}
		return f(s.toks[start:s.pos])
	}
}
