package courses

import "context"

// StaticCatalog resolves course numbers against lists taken from the guild
// configuration. A major with no configured list accepts any number, which
// keeps small servers from having to enumerate their whole catalog.
type StaticCatalog struct {
	numbers map[string]map[string]bool
}

func NewStaticCatalog(numbersByPrefix map[string][]string) *StaticCatalog {
	catalog := &StaticCatalog{numbers: make(map[string]map[string]bool)}
	for prefix, numbers := range numbersByPrefix {
		if len(numbers) == 0 {
			continue
		}
		set := make(map[string]bool, len(numbers))
		for _, number := range numbers {
			set[number] = true
		}
		catalog.numbers[prefix] = set
	}
	return catalog
}

func (c *StaticCatalog) Resolve(_ context.Context, major Major, numbers []string) ([]Course, []string, error) {
	known, restricted := c.numbers[major.Prefix]

	var valid []Course
	var invalid []string
	for _, number := range numbers {
		if restricted && !known[number] {
			invalid = append(invalid, number)
			continue
		}
		valid = append(valid, Course{Major: major, Number: number})
	}
	return valid, invalid, nil
}
