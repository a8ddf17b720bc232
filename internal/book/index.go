package book

// ChapterStats summarizes a chapter list. Word counts are rune counts.
type ChapterStats struct {
	TotalChapters          int `json:"totalChapters" yaml:"totalChapters"`
	TotalWords             int `json:"totalWords" yaml:"totalWords"`
	AverageWordsPerChapter int `json:"averageWordsPerChapter" yaml:"averageWordsPerChapter"`
	ShortestChapter        int `json:"shortestChapter" yaml:"shortestChapter"`
	LongestChapter         int `json:"longestChapter" yaml:"longestChapter"`
}

// ChapterIndex looks chapters up by id, title or position.
type ChapterIndex struct {
	chapters []Chapter
	byID     map[int]int
}

// NewChapterIndex creates an index over chapters.
func NewChapterIndex(chapters []Chapter) *ChapterIndex {
	idx := &ChapterIndex{}
	idx.Set(chapters)
	return idx
}

// Set replaces the indexed chapters.
func (idx *ChapterIndex) Set(chapters []Chapter) {
	idx.chapters = append([]Chapter(nil), chapters...)
	idx.byID = make(map[int]int, len(chapters))
	for i, c := range idx.chapters {
		idx.byID[c.ID] = i
	}
}

// Get returns the chapter with the given id.
func (idx *ChapterIndex) Get(id int) (Chapter, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Chapter{}, false
	}
	return idx.chapters[i], true
}

// ByTitle returns the first chapter whose title equals title.
func (idx *ChapterIndex) ByTitle(title string) (Chapter, bool) {
	for _, c := range idx.chapters {
		if c.Title == title {
			return c, true
		}
	}
	return Chapter{}, false
}

// ByPosition returns the i-th chapter, zero based.
func (idx *ChapterIndex) ByPosition(i int) (Chapter, bool) {
	if i < 0 || i >= len(idx.chapters) {
		return Chapter{}, false
	}
	return idx.chapters[i], true
}

// Position returns the zero based position of chapter id.
func (idx *ChapterIndex) Position(id int) (int, bool) {
	i, ok := idx.byID[id]
	return i, ok
}

// All returns a copy of the chapters in document order.
func (idx *ChapterIndex) All() []Chapter {
	return append([]Chapter(nil), idx.chapters...)
}

// Count returns the number of chapters.
func (idx *ChapterIndex) Count() int {
	return len(idx.chapters)
}

// Stats folds over the current chapters. An empty index reports zeros.
func (idx *ChapterIndex) Stats() ChapterStats {
	s := ChapterStats{TotalChapters: len(idx.chapters)}
	if len(idx.chapters) == 0 {
		return s
	}
	s.ShortestChapter = idx.chapters[0].WordCount
	for _, c := range idx.chapters {
		s.TotalWords += c.WordCount
		s.ShortestChapter = min(s.ShortestChapter, c.WordCount)
		s.LongestChapter = max(s.LongestChapter, c.WordCount)
	}
	s.AverageWordsPerChapter = roundDiv(s.TotalWords, s.TotalChapters)
	return s
}

// roundDiv returns a/b rounded half up, or 0 when b is 0.
func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (2*a + b) / (2 * b)
}

// Percent returns 100*part/whole rounded, or 0 when whole is 0.
func Percent(part, whole int) int {
	return roundDiv(100*part, whole)
}
