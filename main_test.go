// Copyright 2021 Jonathan Amsterdam.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// cliEnv isolates a test from the user's config file and environment.
func cliEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, v := range []string{"FSOPS_PROJECT", "GOOGLE_CLOUD_PROJECT", "FSOPS_DATABASE", "FSOPS_CREDENTIALS", "FSOPS_DIR", "FSOPS_FORMAT"} {
		t.Setenv(v, "")
	}
}

type cliResult struct {
	out    string
	err    error
	opened *config // nil if the store was never opened
}

// runCLI runs the root command with args against s.
func runCLI(t *testing.T, s Store, args ...string) cliResult {
	t.Helper()
	var res cliResult
	open := func(_ context.Context, cfg *config) (Store, error) {
		res.opened = cfg
		return s, nil
	}
	logger := zerolog.Nop()
	cmd := newRootCmd(open, &logger)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	res.err = cmd.ExecuteContext(context.Background())
	res.out = out.String()
	return res
}

func TestCLIAdd(t *testing.T) {
	cliEnv(t)
	s := newFakeStore()
	res := runCLI(t, s, "--add", "users", "name", "Alice", "age", "30")
	if res.err != nil {
		t.Fatal(res.err)
	}
	docs := s.colls["users"]
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if diff := cmp.Diff(data{"name": "Alice", "age": "30"}, docs[0].data); diff != "" {
		t.Errorf("(-want, +got):\n%s", diff)
	}
	if !s.closed {
		t.Error("store was not closed")
	}
}

func TestCLIUpdate(t *testing.T) {
	cliEnv(t)
	s := newFakeStore()
	s.put("users", "abc123", data{"name": "Alice", "status": "open"})
	if res := runCLI(t, s, "--update", "users", "abc123", "status", "done"); res.err != nil {
		t.Fatal(res.err)
	}
	got, _ := s.get("users", "abc123")
	if diff := cmp.Diff(data{"name": "Alice", "status": "done"}, got); diff != "" {
		t.Errorf("(-want, +got):\n%s", diff)
	}
}

func TestCLIQuery(t *testing.T) {
	cliEnv(t)
	res := runCLI(t, ordersStore(), "--query", "orders", "status", "==", "shipped")
	if res.err != nil {
		t.Fatal(res.err)
	}
	want := "o1: {status: \"shipped\", total: 30}\no3: {status: \"shipped\", total: 20}\n"
	if res.out != want {
		t.Errorf("got\n%s\nwant\n%s", res.out, want)
	}
}

func TestCLIQueryOptions(t *testing.T) {
	cliEnv(t)
	res := runCLI(t, ordersStore(), "--query", "orders", "total", ">", "5",
		"--typed", "--order-by", "total:desc", "--limit", "1", "--format", "csv")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if want := "id,status,total\no1,shipped,30\n"; res.out != want {
		t.Errorf("got\n%s\nwant\n%s", res.out, want)
	}
}

func TestCLIImportCSV(t *testing.T) {
	cliEnv(t)
	s := newFakeStore()
	path := writeCSVFile(t, "name,price\nwidget,2\ngadget,3\n")
	if res := runCLI(t, s, "--csv", "products", path, "--import-rate", "1000"); res.err != nil {
		t.Fatal(res.err)
	}
	var got []data
	for _, doc := range s.colls["products"] {
		got = append(got, doc.data)
	}
	want := []data{{"name": "widget", "price": "2"}, {"name": "gadget", "price": "3"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want, +got):\n%s", diff)
	}
}

func TestCLISync(t *testing.T) {
	cliEnv(t)
	s := newFakeStore()
	s.put("users", "u1", data{"name": "Alice"})
	dir := filepath.Join(t.TempDir(), "out")
	if res := runCLI(t, s, "--sync", "users", "--dir", dir); res.err != nil {
		t.Fatal(res.err)
	}
	if got, want := readFile(t, filepath.Join(dir, "users.txt")), "u1: {name: \"Alice\"}\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCLIPriority(t *testing.T) {
	cliEnv(t)
	s := newFakeStore()
	s.put("users", "a", data{"name": "A"})
	if res := runCLI(t, s, "--add", "users", "name", "B", "--delete", "users", "a"); res.err != nil {
		t.Fatal(res.err)
	}
	if n := len(s.colls["users"]); n != 0 {
		t.Errorf("got %d documents, want 0: only the delete should run", n)
	}
}

func TestCLINoOperation(t *testing.T) {
	cliEnv(t)
	for _, args := range [][]string{nil, {"--project", "p"}, {"-v"}} {
		res := runCLI(t, newFakeStore(), args...)
		if res.err != nil {
			t.Errorf("%v: %v", args, res.err)
		}
		if res.opened != nil {
			t.Errorf("%v: store opened with no operation", args)
		}
	}
}

func TestCLIHelp(t *testing.T) {
	cliEnv(t)
	res := runCLI(t, newFakeStore(), "-h")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.out, "--query COLL FIELD OP VALUE") {
		t.Errorf("help output missing operations:\n%s", res.out)
	}
	if res.opened != nil {
		t.Error("store opened for help")
	}
}

func TestCLIUsageErrors(t *testing.T) {
	cliEnv(t)
	for _, args := range [][]string{
		{"--delete", "users"},
		{"--sync", "users", "extra"},
		{"--sync", "users", "--format", "xml"},
		{"--sync", "users", "--no-such-flag"},
		{"--query", "orders", "--order-by", "pop:sideways"},
		{"--query", "orders", "--limit", "many"},
	} {
		res := runCLI(t, newFakeStore(), args...)
		if res.err == nil {
			t.Errorf("%v: got success, want error", args)
			continue
		}
		if got := exitCode(res.err); got != exitUsage {
			t.Errorf("%v: got exit code %d, want %d (error: %v)", args, got, exitUsage, res.err)
		}
		if res.opened != nil {
			t.Errorf("%v: store opened despite usage error", args)
		}
	}
}

func TestCLIConfigPrecedence(t *testing.T) {
	cliEnv(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), configDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "project: file-proj\ndatabase: file-db\ncollections_dir: file-dir\nformat: json\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FSOPS_PROJECT", "env-proj")
	t.Setenv("FSOPS_DIR", "env-dir")

	res := runCLI(t, newFakeStore(), "--delete", "users", "x", "--dir", "flag-dir")
	if res.err != nil {
		t.Fatal(res.err)
	}
	want := &config{
		Project:  "env-proj",
		Database: "file-db",
		Dir:      "flag-dir",
		Format:   "json",
	}
	if diff := cmp.Diff(want, res.opened); diff != "" {
		t.Errorf("(-want, +got):\n%s", diff)
	}
}

func TestCLIOpenError(t *testing.T) {
	cliEnv(t)
	logger := zerolog.Nop()
	open := func(context.Context, *config) (Store, error) {
		return nil, errors.New("no credentials")
	}
	cmd := newRootCmd(open, &logger)
	cmd.SetArgs([]string{"--sync", "users"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("got %v, want open error", err)
	}
}

func TestExitCode(t *testing.T) {
	for _, test := range []struct {
		err  error
		want int
	}{
		{usageErrorf("bad"), exitUsage},
		{fmt.Errorf("add: %w", status.Error(codes.PermissionDenied, "denied")), exitAuth},
		{status.Error(codes.Unauthenticated, "who are you"), exitAuth},
		{fmt.Errorf("query: %w", status.Error(codes.FailedPrecondition, "needs index")), exitError},
		{errors.New("disk full"), exitError},
	} {
		if got := exitCode(test.err); got != test.want {
			t.Errorf("%v: got %d, want %d", test.err, got, test.want)
		}
	}
}
