package courses

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Catalog resolves course numbers of one major into Course entities.
// Numbers the catalog does not recognize come back in invalid; err is
// reserved for transient failures (the caller should tell the user to
// retry, not that their input was wrong).
type Catalog interface {
	Resolve(ctx context.Context, major Major, numbers []string) (valid []Course, invalid []string, err error)
}

// Registry validates major prefixes against the guild configuration and
// resolves (major, number) pairs through the catalog.
type Registry struct {
	majors  map[string]Major
	catalog Catalog
	log     *zap.SugaredLogger
}

func NewRegistry(majors map[string]Major, catalog Catalog, log *zap.SugaredLogger) *Registry {
	return &Registry{
		majors:  majors,
		catalog: catalog,
		log:     log,
	}
}

func (r *Registry) Majors() map[string]Major {
	return r.majors
}

// ResolveCourses turns a disambiguated prefix-to-numbers map into Course
// entities. Unknown prefixes fail the whole request before the catalog is
// ever consulted; numbers the catalog rejects are collected as
// "prefix-number" strings instead of failing the request.
func (r *Registry) ResolveCourses(ctx context.Context, numbers map[string][]string) ([]Course, []string, error) {
	var invalidMajors []string
	for prefix := range numbers {
		if _, ok := r.majors[prefix]; !ok {
			invalidMajors = append(invalidMajors, prefix)
		}
	}
	if len(invalidMajors) > 0 {
		sort.Strings(invalidMajors)
		return nil, nil, &UserError{Message: fmt.Sprintf(
			"the major(s) '%s' are not valid in this server. The valid majors are: %s.",
			strings.Join(invalidMajors, ", "), strings.Join(r.sortedPrefixes(), ", "))}
	}

	prefixes := make([]string, 0, len(numbers))
	for prefix := range numbers {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var allValid []Course
	var allInvalidNames []string
	for _, prefix := range prefixes {
		major := r.majors[prefix]
		valid, invalid, err := r.catalog.Resolve(ctx, major, numbers[prefix])
		if err != nil {
			return nil, nil, fmt.Errorf("resolving courses for major %s: %w", prefix, err)
		}
		allValid = append(allValid, valid...)
		for _, number := range invalid {
			allInvalidNames = append(allInvalidNames, prefix+"-"+number)
		}
	}
	return allValid, allInvalidNames, nil
}

// ParseAndResolve is the full request pipeline: parse the raw text, fix up
// missing prefixes, validate majors and resolve against the catalog. It
// returns a UserError when the request itself is at fault and a plain
// error when a backend call failed.
func (r *Registry) ParseAndResolve(ctx context.Context, raw string) ([]Course, []string, error) {
	numbers := ParseCourseNumberList(raw)
	if len(numbers) == 0 {
		return nil, nil, &UserError{Message: "I didn't see any course numbers in your request!"}
	}

	if err := DisambiguateNumbers(numbers, r.majors); err != nil {
		return nil, nil, err
	}

	valid, invalidNames, err := r.ResolveCourses(ctx, numbers)
	if err != nil {
		return nil, nil, err
	}

	if len(valid) == 0 {
		return nil, invalidNames, &UserError{Message: fmt.Sprintf(
			"none of the courses you specified appear to be valid: %s. If you think this is a mistake, ask an admin for help!",
			strings.Join(invalidNames, ", "))}
	}
	return valid, invalidNames, nil
}

func (r *Registry) sortedPrefixes() []string {
	prefixes := make([]string, 0, len(r.majors))
	for prefix := range r.majors {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}
