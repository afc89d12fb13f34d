package district

import "strings"

// Collection is a read-only, ordered set of records. Lookups scan in file
// order and the first hit wins.
type Collection struct {
	records []Record
	lower   []string
}

// NewCollection keeps records in the order given.
func NewCollection(records []Record) *Collection {
	c := &Collection{
		records: make([]Record, len(records)),
		lower:   make([]string, len(records)),
	}
	copy(c.records, records)
	for i, r := range records {
		c.lower[i] = strings.ToLower(strings.TrimSpace(r.Name))
	}
	return c
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Records returns a copy of the records in collection order.
func (c *Collection) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Names returns district names in collection order.
func (c *Collection) Names() []string {
	out := make([]string, len(c.records))
	for i, r := range c.records {
		out[i] = r.Name
	}
	return out
}

// Mentioned returns the first record whose name occurs in text, compared
// case-insensitively. When several names match ("North Salem" and "Salem"),
// the one declared first wins.
func (c *Collection) Mentioned(text string) (Record, bool) {
	haystack := strings.ToLower(text)
	for i, name := range c.lower {
		if name == "" {
			continue
		}
		if strings.Contains(haystack, name) {
			return c.records[i], true
		}
	}
	return Record{}, false
}

// Lookup finds a record by name. An exact case-insensitive match is preferred;
// otherwise the first district mentioned in name is returned.
func (c *Collection) Lookup(name string) (Record, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return Record{}, false
	}
	for i, n := range c.lower {
		if n == want {
			return c.records[i], true
		}
	}
	return c.Mentioned(name)
}
