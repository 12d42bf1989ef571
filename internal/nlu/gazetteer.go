package nlu

import (
	"cmp"
	"slices"
	"strings"

	"github.com/garyellow/tucurso-bot/internal/catalog"
)

// phrase is a canonical surface form pointing at a catalog key.
type phrase struct {
	text string
	key  string
}

// Gazetteer finds category and course mentions by looking up catalog keys
// and synonyms in the message.
//
// Course precedence: the longest course key, then the longest course
// synonym, then the longest run of words that appears inside some course
// key (a fragment such as "excel" or "python"). Fragments may not start or
// end with a stopword. Category: the longest category key, then the
// longest category synonym.
type Gazetteer struct {
	courses          []phrase
	courseSynonyms   []phrase
	categories       []phrase
	categorySynonyms []phrase
	courseTexts      []string // canonical course keys, for fragment search
}

// NewGazetteer indexes the catalog and the synonym table
// (alias -> category or course key). Synonyms whose target is not in the
// catalog are ignored.
func NewGazetteer(c *catalog.Catalog, synonyms map[string]string) *Gazetteer {
	g := &Gazetteer{}
	isCategory := make(map[string]bool)
	isCourse := make(map[string]bool)

	for _, cat := range c.Categories() {
		isCategory[cat] = true
		g.categories = append(g.categories, phrase{text: Canonical(cat), key: cat})
	}
	for _, name := range c.CourseNames() {
		if isCourse[name] {
			continue
		}
		isCourse[name] = true
		canon := Canonical(name)
		g.courses = append(g.courses, phrase{text: canon, key: name})
		g.courseTexts = append(g.courseTexts, canon)
	}

	for alias, target := range synonyms {
		canon := Canonical(alias)
		key := catalog.Normalize(strings.TrimSpace(target))
		if canon == "" {
			continue
		}
		switch {
		case isCourse[key]:
			g.courseSynonyms = append(g.courseSynonyms, phrase{text: canon, key: key})
		case isCategory[key]:
			g.categorySynonyms = append(g.categorySynonyms, phrase{text: canon, key: key})
		}
	}

	for _, list := range [][]phrase{g.courses, g.courseSynonyms, g.categories, g.categorySynonyms} {
		sortLongestFirst(list)
	}
	return g
}

// sortLongestFirst orders by length, then text, so results are stable
// across map iteration orders.
func sortLongestFirst(list []phrase) {
	slices.SortStableFunc(list, func(a, b phrase) int {
		if c := cmp.Compare(len(b.text), len(a.text)); c != 0 {
			return c
		}
		return cmp.Compare(a.text, b.text)
	})
}

func longestMatch(text string, list []phrase) (string, bool) {
	for _, p := range list {
		if containsWords(text, p.text) {
			return p.key, true
		}
	}
	return "", false
}

// Extract returns the entities mentioned in text.
func (g *Gazetteer) Extract(text string) Entities {
	canon := Canonical(text)
	if canon == "" {
		return Entities{}
	}

	var e Entities
	if key, ok := longestMatch(canon, g.categories); ok {
		e.Category = key
	} else if key, ok := longestMatch(canon, g.categorySynonyms); ok {
		e.Category = key
	}

	if key, ok := longestMatch(canon, g.courses); ok {
		e.CourseName = key
	} else if key, ok := longestMatch(canon, g.courseSynonyms); ok {
		e.CourseName = key
	} else {
		e.CourseName = g.fragment(canon, e.Category)
	}
	return e
}

// fragment finds the longest, then leftmost, run of words that occurs in
// some course key. Words that belong to the matched category are skipped
// as fragment candidates on their own.
func (g *Gazetteer) fragment(canon, category string) string {
	words := strings.Fields(canon)
	for n := len(words); n > 0; n-- {
		for i := 0; i+n <= len(words); i++ {
			run := words[i : i+n]
			if isStopword(run[0]) || isStopword(run[n-1]) {
				continue
			}
			candidate := strings.Join(run, " ")
			if category != "" && containsWords(Canonical(category), candidate) {
				continue
			}
			for _, course := range g.courseTexts {
				if containsWords(course, candidate) {
					return candidate
				}
			}
		}
	}
	return ""
}

// Resolve maps entity values produced elsewhere (a remote interpreter) onto
// catalog keys when they match a key or a synonym. Values that match
// nothing are kept trimmed so the matcher can report them back.
func (g *Gazetteer) Resolve(e Entities) Entities {
	return Entities{
		Category:   resolve(e.Category, g.categories, g.categorySynonyms),
		CourseName: resolve(e.CourseName, g.courses, g.courseSynonyms),
	}
}

func resolve(value string, keys, synonyms []phrase) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	canon := Canonical(value)
	for _, list := range [][]phrase{keys, synonyms} {
		for _, p := range list {
			if p.text == canon {
				return p.key
			}
		}
	}
	return value
}
