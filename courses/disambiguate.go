package courses

// DisambiguateNumbers resolves the empty-prefix bucket produced by
// ParseCourseNumberList. With a single configured major the bare numbers
// are merged into that major's bucket; with more than one the request is
// ambiguous and the user has to be more specific. The map is mutated in
// place.
func DisambiguateNumbers(numbers map[string][]string, majors map[string]Major) error {
	bare, ok := numbers[""]
	if !ok {
		return nil
	}

	if len(majors) == 0 {
		return &UserError{Message: "no majors are configured for this server, ask an admin for help!"}
	}
	if len(majors) > 1 {
		return &UserError{Message: "please specify major prefixes for each of your courses."}
	}

	var only Major
	for _, major := range majors {
		only = major
	}
	for _, number := range bare {
		if !containsString(numbers[only.Prefix], number) {
			numbers[only.Prefix] = append(numbers[only.Prefix], number)
		}
	}
	delete(numbers, "")
	return nil
}
