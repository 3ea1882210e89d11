package main

import (
	"errors"
	"strings"
	"testing"
)

// fakeRunner returns canned output for git invocations.
type fakeRunner struct {
	out  string
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(name string, args ...string) (string, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

// TestResolveRepoRoot verifies toplevel detection and the -C passthrough.
func TestResolveRepoRoot(t *testing.T) {
	runner := &fakeRunner{out: "/work/project"}

	root, err := resolveRepoRoot(runner, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if root != "/work/project" {
		t.Errorf("root = %q", root)
	}
	if strings.Join(runner.args, " ") != "rev-parse --show-toplevel" {
		t.Errorf("args = %v", runner.args)
	}

	if _, err := resolveRepoRoot(runner, "/work/project/sub"); err != nil {
		t.Fatalf("resolve with arg: %v", err)
	}
	if strings.Join(runner.args, " ") != "-C /work/project/sub rev-parse --show-toplevel" {
		t.Errorf("args = %v", runner.args)
	}
}

// TestResolveRepoRootErrors verifies the two failure messages.
func TestResolveRepoRootErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 128")}

	_, err := resolveRepoRoot(runner, "/tmp/notrepo")
	if err == nil || !strings.Contains(err.Error(), "--repo is not a git repository") {
		t.Errorf("err = %v", err)
	}

	_, err = resolveRepoRoot(runner, "")
	if err == nil || !strings.Contains(err.Error(), "unable to detect git repository") {
		t.Errorf("err = %v", err)
	}
}
