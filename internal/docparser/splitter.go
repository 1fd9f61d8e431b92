package docparser

import "strings"

// headerSplit is one markdown section: its rendered text (heading line
// kept, since line-number stamping needs the heading intact to classify a
// chunk as heading-led) plus the heading text/level that produced it, if
// any.
type headerSplit struct {
	text    string
	level   int // 0 when the section has no heading (the document's leading prose)
	heading string
}

// splitByHeadings splits markdown text into sections at ATX headings (#, ##,
// ### ...) up to maxLevel. Headers are kept in their own section's text
// rather than stripped.
func splitByHeadings(text string, maxLevel int) []headerSplit {
	lines := strings.Split(text, "\n")
	var sections []headerSplit
	var current []string
	level, heading := 0, ""

	flush := func() {
		content := strings.Join(current, "\n")
		if strings.TrimSpace(content) != "" {
			sections = append(sections, headerSplit{text: content, level: level, heading: heading})
		}
	}

	for _, line := range lines {
		if lvl, text := matchHeading(line, maxLevel); lvl > 0 {
			if len(current) > 0 {
				flush()
			}
			level, heading = lvl, text
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		flush()
	}

	if len(sections) == 0 {
		return []headerSplit{{text: text}}
	}
	return sections
}

func matchHeading(line string, maxLevel int) (int, string) {
	trimmed := strings.TrimSpace(line)
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > maxLevel {
		return 0, ""
	}
	rest := trimmed[n:]
	if rest == "" || rest[0] != ' ' {
		return 0, ""
	}
	return n, strings.TrimSpace(rest)
}

// recursiveSplit splits text into chunks no larger than maxSize, trying each
// separator in order and falling back to a hard character split, carrying
// overlap characters from the tail of one chunk into the next.
func recursiveSplit(text string, maxSize, overlap int, separators []string) []string {
	if len(text) <= maxSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if len(separators) == 0 {
		return splitBySize(text, maxSize, overlap)
	}

	sep := separators[0]
	rest := separators[1:]

	var splits []string
	if sep == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, sep)
	}

	var chunks []string
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, sep))
		}
	}

	for _, part := range splits {
		partSize := len(part) + len(sep)

		if partSize > maxSize {
			flush()
			current = nil
			currentSize = 0
			chunks = append(chunks, recursiveSplit(part, maxSize, overlap, rest)...)
			continue
		}

		if currentSize+partSize > maxSize && len(current) > 0 {
			flush()
			current = overlapTail(current, sep, overlap)
			currentSize = joinedSize(current, sep)
		}

		current = append(current, part)
		currentSize += partSize
	}
	flush()

	return chunks
}

func joinedSize(parts []string, sep string) int {
	if len(parts) == 0 {
		return 0
	}
	size := len(sep) * (len(parts) - 1)
	for _, p := range parts {
		size += len(p)
	}
	return size
}

// overlapTail returns the trailing parts of chunks whose combined size is
// at most overlap characters, preserving order, so the next chunk opens
// with context from the one before it.
func overlapTail(parts []string, sep string, overlap int) []string {
	if overlap == 0 || len(parts) == 0 {
		return nil
	}
	var tail []string
	size := 0
	for i := len(parts) - 1; i >= 0; i-- {
		partSize := len(parts[i]) + len(sep)
		if size+partSize > overlap {
			break
		}
		tail = append([]string{parts[i]}, tail...)
		size += partSize
	}
	return tail
}

func splitBySize(text string, maxSize, overlap int) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if overlap > 0 && end-overlap > start {
			start = end - overlap
		} else {
			start = end
		}
	}
	return chunks
}

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}
