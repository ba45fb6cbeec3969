// SPDX-License-Identifier: MPL-2.0

// Package envfile materializes the persisted environment file and provides
// key lookup over it. The file is plain `KEY=value` lines; it is copied from
// a template on first run and never rewritten afterwards.
package envfile

import (
	"bufio"
	"fmt"
	"os"
)

const (
	// Exists means the target file was already present; nothing was done.
	Exists MaterializeResult = iota
	// Copied means the template was copied verbatim to the target path.
	Copied
	// NoTemplate means neither target nor template exist; lookups will fall
	// back to defaults. Callers degrade this to a warning.
	NoTemplate
)

type (
	// MaterializeResult describes what Materialize did.
	MaterializeResult int

	// File is a handle to the environment file. Lookups read the file lazily
	// on each call, so a file created after the handle never goes stale.
	File struct {
		path string
	}
)

// New returns a handle for the environment file at path.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the target file path.
func (f *File) Path() string {
	return f.path
}

// Materialize ensures the environment file exists: an existing target is
// left untouched, otherwise the template is copied verbatim. A missing
// template is not an error; the caller decides how loudly to complain.
func Materialize(path, templatePath string) (MaterializeResult, error) {
	if fileExists(path) {
		return Exists, nil
	}
	if !fileExists(templatePath) {
		return NoTemplate, nil
	}
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return NoTemplate, fmt.Errorf("read template %s: %w", templatePath, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NoTemplate, fmt.Errorf("write %s: %w", path, err)
	}
	return Copied, nil
}

// Get returns the value of the last line exactly matching `key=value`.
// Matching is case-sensitive on the full key; commented or indented lines
// never match. One layer of surrounding single or double quotes and any
// trailing carriage returns are stripped from the value. def is returned
// when the file is absent or the key unmatched.
func (f *File) Get(key, def string) string {
	file, err := os.Open(f.path)
	if err != nil {
		return def
	}
	defer file.Close()

	prefix := key + "="
	value := def
	found := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < len(prefix) || line[:len(prefix)] != prefix {
			continue
		}
		value = line[len(prefix):]
		found = true
	}
	if !found {
		return def
	}
	return unquote(trimCR(value))
}

func trimCR(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

// unquote strips exactly one layer of matching surrounding quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first != last {
		return s
	}
	if first == '"' || first == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
