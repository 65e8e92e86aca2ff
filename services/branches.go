package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Branch is one office of the legal cell that files writs
type Branch struct {
	Name     string `yaml:"name" json:"name"`
	District string `yaml:"district" json:"district,omitempty"`
	Code     string `yaml:"code" json:"code,omitempty"`
}

// BranchDirectory is the set of branches a case may be filed under
type BranchDirectory struct {
	branches []Branch
	byName   map[string]Branch
}

type branchFile struct {
	Branches []Branch `yaml:"branches"`
}

// BranchesFromYAML parses a branch directory document
func BranchesFromYAML(data []byte) (*BranchDirectory, error) {
	var file branchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid branches yaml: %w", err)
	}

	dir := &BranchDirectory{byName: make(map[string]Branch)}
	for i, b := range file.Branches {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			return nil, fmt.Errorf("branch %d has no name", i)
		}
		key := strings.ToLower(b.Name)
		if _, dup := dir.byName[key]; dup {
			return nil, fmt.Errorf("branch %q listed twice", b.Name)
		}
		dir.byName[key] = b
		dir.branches = append(dir.branches, b)
	}
	sort.Slice(dir.branches, func(i, j int) bool { return dir.branches[i].Name < dir.branches[j].Name })
	return dir, nil
}

// LoadBranchDirectory reads the directory at path. A missing file yields a
// nil directory, which accepts any branch name.
func LoadBranchDirectory(path string) (*BranchDirectory, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return BranchesFromYAML(data)
}

// Lookup finds a branch by name, ignoring case
func (d *BranchDirectory) Lookup(name string) (Branch, bool) {
	if d == nil {
		return Branch{}, false
	}
	b, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// Accepts reports whether a case may be filed under name
func (d *BranchDirectory) Accepts(name string) bool {
	if d == nil {
		return true
	}
	_, ok := d.Lookup(name)
	return ok
}

// List returns the branches sorted by name
func (d *BranchDirectory) List() []Branch {
	if d == nil {
		return []Branch{}
	}
	return append([]Branch{}, d.branches...)
}
