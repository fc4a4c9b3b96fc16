package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

const noneMarker = "None"

// StructureLines serializes blocks as ordered "[Type]: description" lines
func StructureLines(blocks []models.SongBlock) string {
	lines := make([]string, len(blocks))
	for i, b := range blocks {
		lines[i] = fmt.Sprintf("[%s]: %s", b.Type, b.Description)
	}
	return strings.Join(lines, "\n")
}

func structureFragment(blocks []models.SongBlock, scope string) string {
	if len(blocks) == 0 {
		return ""
	}
	return fmt.Sprintf(`CRITICAL: Follow this Structure strictly in this exact order%s:
%s

Every block listed above MUST receive content, in exactly this order. Do not skip, merge or reorder blocks.
Put the structure tag (e.g., [Verse], [Chorus]) before the lyrics of each block.`, scope, StructureLines(blocks))
}

func negativeConstraintsFragment(excluded string) string {
	excluded = strings.TrimSpace(excluded)
	if excluded == "" {
		excluded = noneMarker
	}
	return fmt.Sprintf("Negative Constraints (DO NOT INCLUDE): %s.", excluded)
}

const strictLyricsFragment = `*** STRICT DANCE LYRIC MODE ACTIVATED ***
OBJECTIVE: Lyrics optimized for choreography (8-count structure) on a steady, unchanging beat.

1. SYLLABLE COUNT & DISPLAY:
   - You MUST display the syllable count at the end of EVERY line in parentheses.
     Format: "Lyric text here (count)"
   - Target a consistent 8 syllables per line.
   - Keep syllable counts consistent within each 4-line block.

2. 8-COUNT STRUCTURE:
   - Group lyrics strictly into 4-line blocks (one 8-count phrase each).
   - Add an empty line between every 4-line block.

3. RHYTHM:
   - Use [Strict Rhythm] (on-beat, Jeong-bak).
   - Avoid syncopation, rubato or wordy poetic lines that break the groove.
   - Simple, clear words that hit the beat.`

const strictSoundFragment = `STRICT DANCE MODE:
- The beat MUST be constant and steady (metronomic), with no syncopation.
- Emphasis on the "1" count.
- Clear percussion suitable for K-Pop choreography.`

func introStyleLyricsFragment(style catalog.IntroStyle) string {
	return fmt.Sprintf(`SPECIAL INTRO INSTRUCTION:
The selected intro vibe is "%s": %s
Style tags: %s
Indicate this vibe in the [Intro] section of the lyrics (e.g., [Intro: Whisper Narration]).`,
		style.Label, style.Description, style.Tags)
}

func introStyleSoundFragment(style catalog.IntroStyle) string {
	return "Intro Style: " + style.Tags
}

func referenceFragment(p *models.Project) string {
	if strings.TrimSpace(p.ReferenceSongTitle) == "" {
		return ""
	}
	artist := p.ReferenceArtist
	if artist == "" {
		artist = "Unknown Artist"
	}
	return fmt.Sprintf(
		`Reference Vibe/Flow: Make the lyrics and rhythm reminiscent of the song "%s" by %s. `+
			`Capture its emotional tone and rhythmic delivery.`,
		p.ReferenceSongTitle, artist)
}

func signatureFragment(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return fmt.Sprintf(
		`IMPORTANT: Include a shout-out to "%s" in EITHER the [Intro] OR the [Outro]. `+
			`Choose ONE location only. Never include it in both, and do not repeat it.`, name)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
