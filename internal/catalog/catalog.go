// Package catalog holds the course catalog and answers the five catalog
// questions (categories, courses, price, link, full info) against it.
//
// A Catalog is immutable once built. Keys are normalized with Normalize at
// construction, so lookups only ever normalize the query side.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Course is a single catalog entry.
type Course struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Price string `json:"price" yaml:"price" validate:"required,price"`
	Link  string `json:"link" yaml:"link" validate:"required,url"`
}

// Category is an ordered set of courses.
type Category struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Courses []Course `json:"courses" yaml:"courses" validate:"dive"`
}

// Catalog is an ordered, immutable category → course → {price, link} table.
type Catalog struct {
	categories []Category
	byCategory map[string]int
}

// New builds a catalog from categories in definition order.
// Category and course names are normalized; an empty or repeated category
// name is an error. Repeated course names across categories are allowed
// and reported by Duplicates.
func New(categories []Category) (*Catalog, error) {
	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byCategory: make(map[string]int, len(categories)),
	}
	for _, cat := range categories {
		key := strings.TrimSpace(Normalize(cat.Name))
		if key == "" {
			return nil, fmt.Errorf("category %q normalizes to an empty key", cat.Name)
		}
		if _, dup := c.byCategory[key]; dup {
			return nil, fmt.Errorf("duplicate category %q", key)
		}

		courses := make([]Course, 0, len(cat.Courses))
		seen := make(map[string]struct{}, len(cat.Courses))
		for _, course := range cat.Courses {
			name := strings.TrimSpace(Normalize(course.Name))
			if name == "" {
				return nil, fmt.Errorf("category %q: course %q normalizes to an empty key", key, course.Name)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("category %q: duplicate course %q", key, name)
			}
			seen[name] = struct{}{}
			courses = append(courses, Course{Name: name, Price: course.Price, Link: course.Link})
		}

		c.byCategory[key] = len(c.categories)
		c.categories = append(c.categories, Category{Name: key, Courses: courses})
	}
	return c, nil
}

// MustNew is like New but panics on error. Intended for static tables.
func MustNew(categories []Category) *Catalog {
	c, err := New(categories)
	if err != nil {
		panic(err)
	}
	return c
}

// Categories returns the normalized category keys in definition order.
func (c *Catalog) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}

// Courses returns the courses of a category (normalized key) in definition
// order, and whether the category exists.
func (c *Catalog) Courses(category string) ([]Course, bool) {
	i, ok := c.byCategory[category]
	if !ok {
		return nil, false
	}
	return slices.Clone(c.categories[i].Courses), true
}

// CourseNames returns every course key in catalog order.
func (c *Catalog) CourseNames() []string {
	var names []string
	for _, cat := range c.categories {
		for _, course := range cat.Courses {
			names = append(names, course.Name)
		}
	}
	return names
}

// Lookup finds a course by exact normalized key. The first category in
// definition order that holds the key wins.
func (c *Catalog) Lookup(name string) (Course, string, bool) {
	for _, cat := range c.categories {
		for _, course := range cat.Courses {
			if course.Name == name {
				return course, cat.Name, true
			}
		}
	}
	return Course{}, "", false
}

// Search returns every course key containing fragment, in catalog order.
func (c *Catalog) Search(fragment string) []string {
	var found []string
	for _, cat := range c.categories {
		for _, course := range cat.Courses {
			if strings.Contains(course.Name, fragment) {
				found = append(found, course.Name)
			}
		}
	}
	return found
}

// Duplicates lists course keys defined in more than one category.
// Exact lookups resolve such keys to the first category.
func (c *Catalog) Duplicates() []string {
	count := make(map[string]int)
	var dups []string
	for _, name := range c.CourseNames() {
		count[name]++
		if count[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}

// Len returns the total number of courses.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.categories {
		n += len(cat.Courses)
	}
	return n
}

// Snapshot returns a deep copy of the catalog contents.
func (c *Catalog) Snapshot() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{Name: cat.Name, Courses: slices.Clone(cat.Courses)}
	}
	return out
}
