package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StripFences removes a surrounding ```json ... ``` block some models emit
// even when asked for bare JSON.
func StripFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = bytes.TrimPrefix(s, []byte("```"))
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	return bytes.TrimSpace(s)
}

// Sanitize nudges model output toward the op's schema before strict
// validation. It returns the rewritten document and a list of adjustments.
func Sanitize(op Op, raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(StripFences(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	keep := map[string]struct{}{}
	for k := range schemaFor(op)["properties"].(map[string]any) {
		keep[k] = struct{}{}
	}
	for k := range m {
		if _, ok := keep[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	switch op {
	case OpExtractText:
		if v, ok := m["extractedText"]; !ok || v == nil {
			m["extractedText"] = ""
			changed = append(changed, "extractedText(null)")
		}
	case OpGradeEssay:
		switch t := m["preliminaryScore"].(type) {
		case float64:
			m["preliminaryScore"] = strconv.FormatFloat(t, 'f', -1, 64)
			changed = append(changed, "preliminaryScore(number)")
		case string:
			m["preliminaryScore"] = strings.TrimSpace(t)
		}
		if s, ok := m["feedback"].(string); ok {
			m["feedback"] = strings.TrimSpace(s)
		}
	case OpIdentifyStudent:
		for _, k := range []string{"identifiedStudentId", "identifiedStudentName"} {
			v, ok := m[k]
			if !ok {
				m[k] = nil
				changed = append(changed, k+"(missing)")
				continue
			}
			if s, isStr := v.(string); isStr {
				s = strings.TrimSpace(s)
				if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "unknown") {
					m[k] = nil
					changed = append(changed, k+"(empty)")
				} else {
					m[k] = s
				}
			}
		}
		switch t := m["confidenceScore"].(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
			if err == nil {
				if strings.HasSuffix(strings.TrimSpace(t), "%") || f > 1 {
					f /= 100
				}
				m["confidenceScore"] = clamp01(f)
				changed = append(changed, "confidenceScore(string)")
			}
		case float64:
			if t > 1 && t <= 100 {
				m["confidenceScore"] = t / 100
				changed = append(changed, "confidenceScore(percent)")
			} else {
				m["confidenceScore"] = clamp01(t)
			}
		case nil:
			m["confidenceScore"] = 0.0
			changed = append(changed, "confidenceScore(null)")
		}
		if v, ok := m["confidenceReason"]; !ok || v == nil {
			m["confidenceReason"] = ""
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func schemaFor(op Op) map[string]any {
	switch op {
	case OpExtractText:
		return ExtractionSchema()
	case OpGradeEssay:
		return GradeSchema()
	case OpIdentifyStudent:
		return IdentificationSchema()
	case OpAnnotateGrammar:
		return GrammarSchema()
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
