//go:build ignore
// +build ignore

// add-license-headers inserts the SPDX license header into source files
// that lack it. Run from the repository root:
//
//	go run hack/add-license-headers.go [--check] [DIR]
//
// With --check no files are rewritten; offenders are listed and the exit
// code is nonzero.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

var headerLines = []string{
	"SPDX-License-Identifier: Apache-2.0",
	"Copyright 2025 Vexa.ai Inc.",
}

// commentPrefix maps the handled file extensions to their line-comment
// marker.
var commentPrefix = map[string]string{
	".go": "//",
	".js": "//",
	".ts": "//",
	".py": "#",
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

func main() {
	checkOnly := pflag.Bool("check", false, "report files missing the header without rewriting them")
	pflag.Parse()

	root := "."
	if pflag.NArg() > 0 {
		root = pflag.Arg(0)
	}

	var missing []string
	count := 0

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		prefix, ok := commentPrefix[filepath.Ext(path)]
		if !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if hasHeader(string(content)) {
			return nil
		}

		if *checkOnly {
			missing = append(missing, path)
			return nil
		}

		if err := os.WriteFile(path, append(headerFor(prefix), content...), 0644); err != nil {
			return err
		}
		fmt.Printf("Added header to %s\n", path)
		count++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *checkOnly {
		if len(missing) > 0 {
			fmt.Fprintf(os.Stderr, "%d files missing license header:\n", len(missing))
			for _, path := range missing {
				fmt.Fprintf(os.Stderr, "  %s\n", path)
			}
			os.Exit(1)
		}
		fmt.Println("All files carry the license header.")
		return
	}

	fmt.Printf("Added license headers to %d files.\n", count)
}

func hasHeader(content string) bool {
	// Tolerate build tags or a shebang above the header.
	for _, line := range strings.SplitN(content, "\n", 10) {
		if strings.Contains(line, "SPDX-License-Identifier:") {
			return true
		}
	}
	return false
}

func headerFor(prefix string) []byte {
	var b strings.Builder
	for _, line := range headerLines {
		b.WriteString(prefix)
		b.WriteString(" ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
