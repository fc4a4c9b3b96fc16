// Package interpret validates raw backend responses and turns them into domain values.
package interpret

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

const (
	// MaxTempo is the exclusive upper bound of a plausible BPM
	MaxTempo = 300

	defaultImageMIMEType = "image/png"
)

var (
	codeFence   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")
	firstNumber = regexp.MustCompile(`\d+`)
	titleHead   = regexp.MustCompile(`^([^(]+)`)
)

// Structured decodes a schema-constrained response into T.
// The raw text is checked against the schema before decoding, so a response
// missing a required field or with the wrong item count never yields a value.
func Structured[T any](facet models.Facet, raw string, schema *llm.Schema) (T, error) {
	var out T

	body := stripCodeFence(raw)
	if body == "" {
		return out, &ParseError{Facet: facet, Reason: "empty response"}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return out, &ParseError{Facet: facet, Reason: "malformed JSON", Err: err}
	}
	if dec.More() {
		return out, &ParseError{Facet: facet, Reason: "trailing data after JSON value"}
	}

	if schema != nil {
		if reason := validate(generic, schema, "$"); reason != "" {
			return out, &ParseError{Facet: facet, Reason: reason}
		}
	}

	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, &ParseError{Facet: facet, Reason: "decode failed", Err: err}
	}
	return out, nil
}

// validate returns a description of the first mismatch, or "" when v fits s
func validate(v any, s *llm.Schema, path string) string {
	switch s.Type {
	case llm.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Sprintf("%s: expected object", path)
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				return fmt.Sprintf("%s: missing required field %q", path, name)
			}
		}
		for name, prop := range s.Properties {
			val, present := obj[name]
			if !present {
				continue
			}
			if reason := validate(val, prop, path+"."+name); reason != "" {
				return reason
			}
		}
	case llm.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return fmt.Sprintf("%s: expected array", path)
		}
		if s.MinItems > 0 && len(arr) < s.MinItems {
			return fmt.Sprintf("%s: expected at least %d items, got %d", path, s.MinItems, len(arr))
		}
		if s.MaxItems > 0 && len(arr) > s.MaxItems {
			return fmt.Sprintf("%s: expected at most %d items, got %d", path, s.MaxItems, len(arr))
		}
		if s.Items != nil {
			for i, item := range arr {
				if reason := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); reason != "" {
					return reason
				}
			}
		}
	case llm.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("%s: expected string", path)
		}
	case llm.TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return fmt.Sprintf("%s: expected integer", path)
		}
		if _, err := n.Int64(); err != nil {
			return fmt.Sprintf("%s: expected integer", path)
		}
	case llm.TypeNumber:
		if _, ok := v.(json.Number); !ok {
			return fmt.Sprintf("%s: expected number", path)
		}
	case llm.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("%s: expected boolean", path)
		}
	}
	return ""
}

// Text returns the trimmed free-text result
func Text(facet models.Facet, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &EmptyError{Facet: facet}
	}
	return text, nil
}

// Image selects the first part carrying binary data
func Image(parts []llm.Part) (llm.Part, error) {
	var text []string
	for _, p := range parts {
		if p.HasData() {
			if p.MIMEType == "" {
				p.MIMEType = defaultImageMIMEType
			}
			return p, nil
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			text = append(text, t)
		}
	}
	return llm.Part{}, &NoImageError{Text: strings.Join(text, "\n")}
}

// DataURL renders an image part as a base64 data URL
func DataURL(p llm.Part) string {
	mime := p.MIMEType
	if mime == "" {
		mime = defaultImageMIMEType
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Tempo extracts the first integer in the text and checks 0 < bpm < MaxTempo
func Tempo(raw string) (int, error) {
	match := firstNumber.FindString(raw)
	if match == "" {
		return 0, &InvalidValueError{Raw: raw}
	}
	bpm, err := strconv.Atoi(match)
	if err != nil {
		// Only overflow can fail here
		return 0, &InvalidValueError{Raw: raw}
	}
	if bpm <= 0 || bpm >= MaxTempo {
		return 0, &InvalidValueError{Raw: raw, Value: bpm, Found: true}
	}
	return bpm, nil
}

// CleanTitle keeps the part of a suggestion before its first parenthesis
func CleanTitle(s string) string {
	if m := titleHead.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	return strings.TrimPrefix(body, "\ufeff")
}
