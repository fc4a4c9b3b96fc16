package interpret

import (
	"regexp"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// tagMatchThreshold is the Jaro-Winkler similarity a section tag needs to count as a block
const tagMatchThreshold = 0.9

var (
	sectionTag   = regexp.MustCompile(`(?m)^\s*\[([^\]]+)\]`)
	tagNumbering = regexp.MustCompile(`\s*\d+$`)
)

// StructureReport describes how generated lyrics cover a block sequence
type StructureReport struct {
	// Tags are the section headers found in the lyrics, in order
	Tags []string `json:"tags"`
	// Missing lists blocks no remaining tag could be matched to
	Missing []models.SongBlock `json:"missing,omitempty"`
}

// Complete reports whether every block was found in order
func (r StructureReport) Complete() bool {
	return len(r.Missing) == 0
}

// CheckStructure walks the blocks in order and matches each to the next fitting
// section tag of the lyrics. A block whose tag is absent, or only appears
// before an earlier block's tag, is reported missing.
func CheckStructure(lyrics string, blocks []models.SongBlock) StructureReport {
	var report StructureReport
	for _, m := range sectionTag.FindAllStringSubmatch(lyrics, -1) {
		report.Tags = append(report.Tags, strings.TrimSpace(m[1]))
	}

	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false

	next := 0
	for _, block := range blocks {
		found := false
		for i := next; i < len(report.Tags); i++ {
			if tagMatches(report.Tags[i], block, jw) {
				next = i + 1
				found = true
				break
			}
		}
		if !found {
			report.Missing = append(report.Missing, block)
		}
	}
	return report
}

func tagMatches(tag string, block models.SongBlock, jw *metrics.JaroWinkler) bool {
	head := normalizeTag(tag)
	for _, candidate := range []string{block.Type, block.Description} {
		c := strings.ToLower(strings.TrimSpace(candidate))
		if c == "" {
			continue
		}
		if head == c || strutil.Similarity(head, c, jw) >= tagMatchThreshold {
			return true
		}
	}
	// tags like "Final Chorus" still name their block type
	return strings.Contains(head, strings.ToLower(block.Type))
}

// normalizeTag turns "Verse 2: Rap Part" into "verse"
func normalizeTag(tag string) string {
	head := tag
	if i := strings.IndexAny(head, ":("); i > 0 {
		head = head[:i]
	}
	head = tagNumbering.ReplaceAllString(strings.TrimSpace(head), "")
	return strings.ToLower(strings.TrimSpace(head))
}
