package ctr

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

func allFiles(dir string) ([]string, error) {
	var files []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := allFiles(path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// FindTitleFile locates a CDN directory's ticket file, named either
// "cetk" or with a ".tik" extension.
func FindTitleFile(dir string) (string, error) {
	files, err := allFiles(dir)
	if err != nil {
		return "", fmt.Errorf("ctr: find title file: %w", err)
	}
	for _, f := range files {
		if filepath.Base(f) == "cetk" || strings.TrimPrefix(filepath.Ext(f), ".") == "tik" {
			return f, nil
		}
	}
	return "", fmt.Errorf("ctr: no title file found in %s", dir)
}

// FindTMDFile locates a CDN directory's title metadata file: exactly
// "tmd" with no extension if present, else the lowest-numbered "tmd.N".
func FindTMDFile(dir string) (string, error) {
	files, err := allFiles(dir)
	if err != nil {
		return "", fmt.Errorf("ctr: find tmd file: %w", err)
	}

	var candidates []string
	for _, f := range files {
		name := filepath.Base(f)
		ext := strings.TrimPrefix(filepath.Ext(f), ".")
		base := strings.TrimSuffix(name, "."+ext)
		if ext == "" {
			base = name
		}
		if base == "tmd" {
			candidates = append(candidates, f)
		}
	}

	for _, f := range candidates {
		if filepath.Base(f) == "tmd" && filepath.Ext(f) == "" {
			return f, nil
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return tmdSuffixNumber(candidates[i]) < tmdSuffixNumber(candidates[j])
	})

	if len(candidates) == 0 {
		return "", fmt.Errorf("ctr: no tmd file found in %s", dir)
	}
	return candidates[0], nil
}

func tmdSuffixNumber(path string) uint32 {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	n, err := strconv.ParseUint(ext, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
