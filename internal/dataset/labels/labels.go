// Package labels derives class tokens from image paths and assigns them
// stable, contiguous class ids.
package labels

import (
	"path"
	"slices"
	"strconv"
	"strings"
)

// Mapping assigns ids 0..k-1 to k distinct tokens in sorted order.
type Mapping struct {
	tokens []string
	ids    map[string]int
}

// NewMapping dedupes tokens, sorts them lexically and numbers them.
func NewMapping(tokens []string) *Mapping {
	distinct := slices.Clone(tokens)
	slices.Sort(distinct)
	return build(slices.Compact(distinct))
}

// NewIntMapping is NewMapping for integer labels, sorted numerically.
func NewIntMapping(values []int64) *Mapping {
	distinct := slices.Clone(values)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)
	tokens := make([]string, len(distinct))
	for i, v := range distinct {
		tokens[i] = strconv.FormatInt(v, 10)
	}
	return build(tokens)
}

func build(sorted []string) *Mapping {
	m := &Mapping{tokens: sorted, ids: make(map[string]int, len(sorted))}
	for i, t := range sorted {
		m.ids[t] = i
	}
	return m
}

// ID returns the class id of token.
func (m *Mapping) ID(token string) (int, bool) {
	id, ok := m.ids[token]
	return id, ok
}

// IntID returns the class id of an integer label.
func (m *Mapping) IntID(v int64) (int, bool) {
	return m.ID(strconv.FormatInt(v, 10))
}

// Tokens returns the tokens in id order.
func (m *Mapping) Tokens() []string {
	return slices.Clone(m.tokens)
}

// Len is the number of classes.
func (m *Mapping) Len() int {
	return len(m.tokens)
}

// Token derives the label token of an image from its slash-separated path
// relative to the archive root: the parent directory name when there is one,
// otherwise the file stem up to the first sep.
func Token(rel, sep string) string {
	if dir := path.Dir(rel); dir != "." && dir != "/" {
		return path.Base(dir)
	}
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if sep == "" {
		return stem
	}
	if prefix, _, found := strings.Cut(stem, sep); found && prefix != "" {
		return prefix
	}
	return stem
}

// PreSplit reports whether every path sits under a top-level train or test
// directory (case-insensitive) with both present. When it does, test[i]
// says whether rels[i] belongs to the test split and stripped[i] is the
// path with that top-level directory removed.
func PreSplit(rels []string) (test []bool, stripped []string, ok bool) {
	if len(rels) == 0 {
		return nil, nil, false
	}
	test = make([]bool, len(rels))
	stripped = make([]string, len(rels))
	var sawTrain, sawTest bool
	for i, rel := range rels {
		first, rest, found := strings.Cut(rel, "/")
		if !found {
			return nil, nil, false
		}
		switch strings.ToLower(first) {
		case "train":
			sawTrain = true
		case "test":
			sawTest = true
			test[i] = true
		default:
			return nil, nil, false
		}
		stripped[i] = rest
	}
	if !sawTrain || !sawTest {
		return nil, nil, false
	}
	return test, stripped, true
}
