package retriever

// diversityFilter implements the Stage 5: walk hits (already sorted
// by final score descending), keep each unless its file_path already
// appears maxPerFile times in the kept list, except the top preserveTopN
// results which are kept unconditionally.
func diversityFilter(hits []Hit, preserveTopN, maxPerFile int) []Hit {
	if len(hits) == 0 {
		return hits
	}
	if preserveTopN < 0 {
		preserveTopN = 0
	}
	if preserveTopN > len(hits) {
		preserveTopN = len(hits)
	}

	preserved := hits[:preserveTopN]
	rest := hits[preserveTopN:]

	fileCounts := make(map[string]int, len(rest))
	for _, h := range preserved {
		fileCounts[h.FilePath]++
	}

	filtered := make([]Hit, 0, len(rest))
	for _, h := range rest {
		if maxPerFile > 0 && fileCounts[h.FilePath] >= maxPerFile {
			continue
		}
		fileCounts[h.FilePath]++
		filtered = append(filtered, h)
	}

	return append(append([]Hit{}, preserved...), filtered...)
}
