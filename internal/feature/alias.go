package feature

import (
	"sort"
	"strings"
)

// --- Title normalization and similarity ---
//
// Duplicate detection compares token sets of normalized titles: two
// phrasings of the same feature share most of their meaningful words.
// Jaccard similarity over the token sets is symmetric and
// deterministic, so the same pair of titles always scores the same.

// stopWords are filtered out of titles before comparison — they carry
// no feature-identifying signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "into": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "the": true,
	"to": true, "via": true, "with": true,
}

// NormalizeTitle lowercases a title, strips punctuation, splits it into
// tokens, and drops stop words and duplicates. The result is sorted for
// a canonical representation.
func NormalizeTitle(title string) []string {
	words := strings.Fields(strings.ToLower(title))
	seen := map[string]bool{}
	var tokens []string
	for _, w := range words {
		var b strings.Builder
		for _, r := range w {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		t := b.String()
		if t == "" || stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// NormalizedKey returns the canonical single-string form of a title,
// suitable for equality comparison and index storage.
func NormalizedKey(title string) string {
	return strings.Join(NormalizeTitle(title), " ")
}

// Jaccard computes token-set similarity: |A∩B| / |A∪B|. Both inputs
// must be de-duplicated (NormalizeTitle output). Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inA := make(map[string]bool, len(a))
	for _, t := range a {
		inA[t] = true
	}
	intersection := 0
	for _, t := range b {
		if inA[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TitleSimilarity normalizes both titles and returns their Jaccard score.
func TitleSimilarity(a, b string) float64 {
	return Jaccard(NormalizeTitle(a), NormalizeTitle(b))
}

// FindDuplicates scans existing records of the same product and returns
// candidates whose title or any alias scores at or above the threshold.
// For each candidate slug, the best-scoring alias is reported. Results
// are sorted by similarity (descending), then slug, for a deterministic
// candidate set.
func FindDuplicates(title string, existing []FeatureRecord, threshold float64) []DuplicateCandidate {
	tokens := NormalizeTitle(title)
	if len(tokens) == 0 {
		return nil
	}

	var candidates []DuplicateCandidate
	for i := range existing {
		rec := &existing[i]
		best := DuplicateCandidate{Slug: rec.Slug, Title: rec.Title}
		names := append([]string{rec.Title}, rec.Aliases...)
		for _, name := range names {
			if sim := Jaccard(tokens, NormalizeTitle(name)); sim > best.Similarity {
				best.Similarity = sim
				best.Alias = name
			}
		}
		if best.Similarity >= threshold {
			candidates = append(candidates, best)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Slug < candidates[j].Slug
	})
	return candidates
}
