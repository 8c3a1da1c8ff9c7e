package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
)

// readDescriptorFile reads one image's descriptors: one per line, each in
// the trait's text form. Blank lines and #-comments are skipped.
func readDescriptorFile(path string, trait descriptor.Trait) ([]descriptor.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ds []descriptor.Descriptor
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		d, err := trait.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		ds = append(ds, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// expandArgs resolves glob patterns into a sorted, de-duplicated file list.
// Plain paths pass through, so shells that already expanded the glob work
// the same as quoting it.
func expandArgs(args []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if matches == nil {
			matches = []string{arg}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no descriptor files given")
	}
	return paths, nil
}

// readImages loads every file as one image's descriptor set.
func readImages(paths []string, trait descriptor.Trait) ([][]descriptor.Descriptor, error) {
	images := make([][]descriptor.Descriptor, 0, len(paths))
	for _, path := range paths {
		ds, err := readDescriptorFile(path, trait)
		if err != nil {
			return nil, err
		}
		images = append(images, ds)
	}
	return images, nil
}
