package prompt

import (
	"strings"
)

// Section names one instruction fragment of a prompt
type Section string

const (
	SectionBase                Section = "base"
	SectionStructure           Section = "structure"
	SectionNegativeConstraints Section = "negative_constraints"
	SectionStrictMode          Section = "strict_mode"
	SectionIntroStyle          Section = "intro_style"
	SectionReference           Section = "reference"
	SectionInstructions        Section = "instructions"
	SectionSignature           Section = "signature"
)

// sectionOrder is the order fragments appear in the built prompt
var sectionOrder = []Section{
	SectionBase,
	SectionStructure,
	SectionNegativeConstraints,
	SectionStrictMode,
	SectionIntroStyle,
	SectionReference,
	SectionInstructions,
	SectionSignature,
}

const sectionSeparator = "\n\n"

// Builder accumulates named prompt fragments and joins them in a fixed order
type Builder struct {
	fragments map[Section]string
}

// NewBuilder creates an empty prompt builder
func NewBuilder() *Builder {
	return &Builder{fragments: make(map[Section]string)}
}

// Set stores a fragment. Blank text removes the section.
func (b *Builder) Set(section Section, text string) *Builder {
	text = strings.TrimSpace(text)
	if text == "" {
		delete(b.fragments, section)
		return b
	}
	b.fragments[section] = text
	return b
}

// Has reports whether a section is present
func (b *Builder) Has(section Section) bool {
	_, ok := b.fragments[section]
	return ok
}

// Fragment returns the text of a section, empty when absent
func (b *Builder) Fragment(section Section) string {
	return b.fragments[section]
}

// Sections lists the present sections in join order
func (b *Builder) Sections() []Section {
	var out []Section
	for _, s := range sectionOrder {
		if b.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Build joins the present fragments
func (b *Builder) Build() string {
	parts := make([]string, 0, len(b.fragments))
	for _, s := range b.Sections() {
		parts = append(parts, b.fragments[s])
	}
	return strings.Join(parts, sectionSeparator)
}
