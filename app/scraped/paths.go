package scraped

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const ArchiveExt = ".jsonl.gz"

// PathToDate returns the scrape date encoded in .../YYYY/MM/DD/<file>.
func PathToDate(path string) (time.Time, error) {
	return DirToDate(filepath.Dir(path))
}

// DirToDate returns the scrape date encoded in .../YYYY/MM/DD.
func DirToDate(dir string) (time.Time, error) {
	dir = filepath.Clean(dir)
	day := filepath.Base(dir)
	month := filepath.Base(filepath.Dir(dir))
	year := filepath.Base(filepath.Dir(filepath.Dir(dir)))

	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, fmt.Errorf("invalid archive directory %s: expected YYYY/MM/DD", dir)
	}

	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values, 2024/02/30 would become March 1st
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return time.Time{}, fmt.Errorf("invalid archive directory %s: %04d-%02d-%02d is not a calendar date", dir, y, m, d)
	}

	return date, nil
}

// FilterRelevantPaths keeps archives scraped on or after since.
func FilterRelevantPaths(paths []string, since time.Time) ([]string, error) {
	relevant := make(map[string]bool)
	filtered := make([]string, 0, len(paths))

	for _, path := range paths {
		dir := filepath.Dir(path)
		keep, seen := relevant[dir]
		if !seen {
			date, err := DirToDate(dir)
			if err != nil {
				return nil, err
			}
			keep = !date.Before(since)
			relevant[dir] = keep
		}
		if keep {
			filtered = append(filtered, path)
		}
	}

	return filtered, nil
}

// SortBySize returns paths ordered from the largest file to the smallest.
func SortBySize(paths []string) ([]string, error) {
	sizes := make(map[string]int64, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat archive: %w", err)
		}
		sizes[path] = info.Size()
	}

	sorted := slices.Clone(paths)
	slices.SortStableFunc(sorted, func(a, b string) int {
		switch {
		case sizes[a] > sizes[b]:
			return -1
		case sizes[a] < sizes[b]:
			return 1
		default:
			return 0
		}
	})

	return sorted, nil
}

// Glob finds all archives below dir.
func Glob(dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ArchiveExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find archives in %s: %w", dir, err)
	}

	slices.Sort(paths)
	return paths, nil
}
