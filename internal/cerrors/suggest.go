package cerrors

import "sort"

// MaxSuggestions is the cap on project-name suggestions attached to a
// ProjectNotFound error.
const MaxSuggestions = 5

// NewProjectNotFound builds a ProjectNotFound error carrying up to
// MaxSuggestions candidate project names ranked by edit distance to name.
func NewProjectNotFound(name string, known []string) *CodeContextError {
	suggestions := SuggestNames(name, known, MaxSuggestions)
	err := New(ProjectNotFound, "no project named \""+name+"\" is indexed")
	if len(suggestions) > 0 {
		err = err.WithDetails(map[string]interface{}{"suggestions": suggestions})
	}
	return err
}

// SuggestNames ranks known by Levenshtein distance to target, ascending,
// and returns at most limit names. Ties keep the input order from known.
func SuggestNames(target string, known []string, limit int) []string {
	type scored struct {
		name string
		dist int
		pos  int
	}
	scoredList := make([]scored, len(known))
	for i, n := range known {
		scoredList[i] = scored{name: n, dist: levenshtein(target, n), pos: i}
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].dist < scoredList[j].dist
	})
	if limit > len(scoredList) {
		limit = len(scoredList)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = scoredList[i].name
	}
	return out
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
