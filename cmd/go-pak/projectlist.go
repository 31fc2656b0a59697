package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpcpool/go-pak/filenametable"
)

// resolveProjectList implements the project-list lookup rule: if
// project already names an existing file, use it verbatim; otherwise
// look for assets/filelist/<project>.list[.zst] against both the
// current working directory and the executable's own directory,
// first hit wins.
func resolveProjectList(project string) (string, error) {
	if project == "" {
		return "", nil
	}
	if info, err := os.Stat(project); err == nil && !info.IsDir() {
		return project, nil
	}

	candidates := make([]string, 0, 4)
	names := []string{project + ".list", project + ".list.zst"}
	for _, dir := range searchDirs() {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(dir, "assets", "filelist", n))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &ProjectListNotFoundError{Project: project, Tried: candidates}
}

func searchDirs() []string {
	dirs := make([]string, 0, 2)
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// ProjectListNotFoundError reports that --project resolved to neither
// an existing path nor a name found under assets/filelist/.
type ProjectListNotFoundError struct {
	Project string
	Tried   []string
}

func (e *ProjectListNotFoundError) Error() string {
	return fmt.Sprintf("project list %q not found (tried: %v)", e.Project, e.Tried)
}

// loadNames resolves and loads the project's file-name table. An empty
// project argument yields a nil table, meaning every entry is treated
// as unknown.
func loadNames(ctx context.Context, project string) (*filenametable.Table, error) {
	if project == "" {
		return nil, nil
	}
	path, err := resolveProjectList(project)
	if err != nil {
		return nil, err
	}
	return filenametable.LoadFile(ctx, path)
}
