package search

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	porterstemmer "github.com/reiver/go-porterstemmer"
)

// LunrIndex answers queries against a serialized lunr 2.x index, the format
// written by the site publisher.
type LunrIndex struct {
	fields   []string
	terms    []string // sorted, for prefix expansion
	postings map[string]posting
	vectors  map[string]map[int]float64 // "field/ref" -> term index -> weight
	stem     bool
}

type posting struct {
	index  int
	fields map[string][]string // field -> doc refs
}

type serializedIndex struct {
	Version       string               `json:"version"`
	Fields        []string             `json:"fields"`
	FieldVectors  [][2]json.RawMessage `json:"fieldVectors"`
	InvertedIndex [][2]json.RawMessage `json:"invertedIndex"`
	Pipeline      []string             `json:"pipeline"`
}

// LoadLunr decodes a serialized lunr index.
func LoadLunr(data []byte) (Searcher, error) {
	var raw serializedIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode search index: %w", err)
	}
	if len(raw.Fields) == 0 {
		return nil, fmt.Errorf("decode search index: no fields")
	}

	ix := &LunrIndex{
		fields:   raw.Fields,
		postings: make(map[string]posting, len(raw.InvertedIndex)),
		vectors:  make(map[string]map[int]float64, len(raw.FieldVectors)),
	}
	for _, p := range raw.Pipeline {
		if p == "stemmer" {
			ix.stem = true
		}
	}

	for i, entry := range raw.FieldVectors {
		var ref string
		var elems []float64
		if err := json.Unmarshal(entry[0], &ref); err != nil {
			return nil, fmt.Errorf("decode field vector %d: %w", i, err)
		}
		if err := json.Unmarshal(entry[1], &elems); err != nil {
			return nil, fmt.Errorf("decode field vector %s: %w", ref, err)
		}
		vec := make(map[int]float64, len(elems)/2)
		for j := 0; j+1 < len(elems); j += 2 {
			vec[int(elems[j])] = elems[j+1]
		}
		ix.vectors[ref] = vec
	}

	for i, entry := range raw.InvertedIndex {
		var term string
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(entry[0], &term); err != nil {
			return nil, fmt.Errorf("decode inverted index %d: %w", i, err)
		}
		if err := json.Unmarshal(entry[1], &obj); err != nil {
			return nil, fmt.Errorf("decode posting %q: %w", term, err)
		}
		p := posting{fields: make(map[string][]string)}
		for key, val := range obj {
			if key == "_index" {
				if err := json.Unmarshal(val, &p.index); err != nil {
					return nil, fmt.Errorf("decode posting %q index: %w", term, err)
				}
				continue
			}
			var docs map[string]json.RawMessage
			if err := json.Unmarshal(val, &docs); err != nil {
				return nil, fmt.Errorf("decode posting %q field %s: %w", term, key, err)
			}
			refs := make([]string, 0, len(docs))
			for ref := range docs {
				refs = append(refs, ref)
			}
			sort.Strings(refs)
			p.fields[key] = refs
		}
		ix.postings[term] = p
		ix.terms = append(ix.terms, term)
	}
	sort.Strings(ix.terms)

	return ix, nil
}

type presence int

const (
	optional presence = iota
	required
	prohibited
)

type clause struct {
	term     string
	fields   []string
	wildcard bool
	boost    float64
	presence presence
}

// Search runs a lunr-style query: whitespace separated terms, optional
// "field:" scoping, "+" / "-" presence, "^n" boosts and trailing "*"
// wildcards. Results are ordered by score, then ref.
func (ix *LunrIndex) Search(query string) []Result {
	clauses := ix.parse(query)

	type match struct {
		score float64
		terms map[string]bool
	}
	queryVectors := make(map[string]map[int]float64)
	fieldMatches := make(map[string]map[string]bool) // "field/ref" -> matched terms
	var requiredSets []map[string]bool
	prohibitedRefs := make(map[string]bool)

	for _, c := range clauses {
		matchedRefs := make(map[string]bool)
		for _, term := range ix.expand(c) {
			p := ix.postings[term]
			for _, field := range c.fields {
				refs := p.fields[field]
				if len(refs) == 0 {
					continue
				}
				for _, ref := range refs {
					matchedRefs[ref] = true
				}
				if c.presence == prohibited {
					continue
				}
				qv := queryVectors[field]
				if qv == nil {
					qv = make(map[int]float64)
					queryVectors[field] = qv
				}
				qv[p.index] += c.boost
				for _, ref := range refs {
					key := field + "/" + ref
					if fieldMatches[key] == nil {
						fieldMatches[key] = make(map[string]bool)
					}
					fieldMatches[key][term] = true
				}
			}
		}
		switch c.presence {
		case required:
			requiredSets = append(requiredSets, matchedRefs)
		case prohibited:
			for ref := range matchedRefs {
				prohibitedRefs[ref] = true
			}
		}
	}

	matches := make(map[string]*match)
	for key, terms := range fieldMatches {
		field, ref, _ := strings.Cut(key, "/")
		if prohibitedRefs[ref] || !inAll(requiredSets, ref) {
			continue
		}
		score := similarity(queryVectors[field], ix.vectors[key])
		m := matches[ref]
		if m == nil {
			m = &match{terms: make(map[string]bool)}
			matches[ref] = m
		}
		m.score += score
		for t := range terms {
			m.terms[t] = true
		}
	}

	results := make([]Result, 0, len(matches))
	for ref, m := range matches {
		terms := make([]string, 0, len(m.terms))
		for t := range m.terms {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		results = append(results, Result{Ref: ref, Score: m.score, Terms: terms})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ref < results[j].Ref
	})
	return results
}

func (ix *LunrIndex) parse(query string) []clause {
	var out []clause
	for _, tok := range strings.Fields(query) {
		c := clause{fields: ix.fields, boost: 1}
		switch {
		case strings.HasPrefix(tok, "+"):
			c.presence = required
			tok = tok[1:]
		case strings.HasPrefix(tok, "-"):
			c.presence = prohibited
			tok = tok[1:]
		}
		if field, rest, ok := strings.Cut(tok, ":"); ok && ix.hasField(field) {
			c.fields = []string{field}
			tok = rest
		}
		if body, boost, ok := strings.Cut(tok, "^"); ok {
			if b, err := strconv.ParseFloat(boost, 64); err == nil && b > 0 {
				c.boost = b
			}
			tok = body
		}
		if strings.HasSuffix(tok, "*") {
			c.wildcard = true
			tok = strings.TrimRight(tok, "*")
		}
		// Hyphenated words are indexed as separate tokens.
		for _, part := range strings.Split(tok, "-") {
			term := trim(strings.ToLower(part))
			if term == "" {
				continue
			}
			pc := c
			pc.term = term
			out = append(out, pc)
		}
	}
	return out
}

// expand returns the indexed terms a clause matches.
func (ix *LunrIndex) expand(c clause) []string {
	if c.wildcard {
		i := sort.SearchStrings(ix.terms, c.term)
		var out []string
		for ; i < len(ix.terms) && strings.HasPrefix(ix.terms[i], c.term); i++ {
			out = append(out, ix.terms[i])
		}
		return out
	}
	term := c.term
	if ix.stem {
		term = porterstemmer.StemString(term)
	}
	if _, ok := ix.postings[term]; ok {
		return []string{term}
	}
	return nil
}

func (ix *LunrIndex) hasField(name string) bool {
	for _, f := range ix.fields {
		if f == name {
			return true
		}
	}
	return false
}

// trim strips leading and trailing non-word characters, as lunr's trimmer does.
func trim(s string) string {
	isWord := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
	return strings.TrimFunc(s, func(r rune) bool { return !isWord(r) })
}

func inAll(sets []map[string]bool, ref string) bool {
	for _, s := range sets {
		if !s[ref] {
			return false
		}
	}
	return true
}

// similarity is the dot product of q and doc divided by the magnitude of q.
func similarity(q, doc map[int]float64) float64 {
	var mag float64
	for _, v := range q {
		mag += v * v
	}
	if mag == 0 {
		return 0
	}
	var dot float64
	for idx, v := range q {
		dot += v * doc[idx]
	}
	return dot / math.Sqrt(mag)
}
