package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const unknownCharacter = "未知角色"

var characterPattern = regexp.MustCompile(`【(.+?)】`)

// RebuildResult summarizes one catalog rebuild pass.
type RebuildResult struct {
	Total   int
	Added   int
	Updated int
}

// Rebuild scans the photo directory tree and merges it into the catalog
// file: paths of known entries are refreshed (files move between character
// folders), new files get the next sequential id, and ids already assigned
// are never changed. The file name without extension is the entry name; the
// character is taken from a 【...】 marker in the folder name, falling back
// to the file name.
func Rebuild(photoDir, catalogPath string) (RebuildResult, error) {
	existing, err := loadEntries(catalogPath)
	if err != nil {
		return RebuildResult{}, err
	}

	paths, err := scanPhotoTree(photoDir)
	if err != nil {
		return RebuildResult{}, err
	}

	res := RebuildResult{}
	byName := make(map[string]int, len(existing))
	nextSeq := 1
	for i, e := range existing {
		byName[e.Name] = i
		if seq, ok := idSequence(e.ID); ok && seq >= nextSeq {
			nextSeq = seq + 1
		}
	}

	for i := range existing {
		if p, ok := paths[existing[i].Name]; ok && existing[i].Path != p {
			existing[i].Path = p
			res.Updated++
		}
	}

	for _, name := range sortedKeys(paths) {
		if _, ok := byName[name]; ok {
			continue
		}
		existing = append(existing, Entry{
			ID:        fmt.Sprintf("a%04d", nextSeq),
			Name:      name,
			Path:      paths[name],
			Character: extractCharacter(paths[name], name),
		})
		nextSeq++
		res.Added++
	}

	if err := saveFile(catalogPath, existing); err != nil {
		return RebuildResult{}, err
	}
	res.Total = len(existing)
	return res, nil
}

func loadEntries(catalogPath string) ([]Entry, error) {
	ix, err := LoadFile(catalogPath)
	if err != nil {
		return nil, err
	}
	return ix.entries, nil
}

func scanPhotoTree(photoDir string) (map[string]string, error) {
	paths := make(map[string]string)
	err := filepath.WalkDir(photoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg", ".png":
		default:
			return nil
		}
		rel, err := filepath.Rel(photoDir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		paths[name] = filepath.ToSlash(rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan photo dir %s: %w", photoDir, err)
	}
	return paths, nil
}

func idSequence(id string) (int, bool) {
	if !LooksLikeID(id) {
		return 0, false
	}
	seq, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return seq, true
}

func extractCharacter(relPath, name string) string {
	for _, part := range strings.Split(relPath, "/") {
		if m := characterPattern.FindStringSubmatch(part); m != nil {
			return m[1]
		}
	}
	if m := characterPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return unknownCharacter
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Map order is random; sort so repeated rebuilds assign the same ids.
	sort.Strings(keys)
	return keys
}
