package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Assessment is the structured verdict extracted from a model response.
type Assessment struct {
	Verdict       string
	YearsRequired string
}

var validVerdicts = map[string]struct{}{
	"yes":    {},
	"no":     {},
	"maybe":  {},
	"maybe+": {},
}

// ResponseFormatError means the model produced output the parser could not
// turn into a valid assessment. Raw carries the original response for
// diagnostics; callers must skip the listing, never default the verdict.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("unusable model response: %v", e.Err)
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

// InvalidVerdictError names a verdict value outside the accepted set.
type InvalidVerdictError struct {
	Verdict string
}

func (e *InvalidVerdictError) Error() string {
	return fmt.Sprintf("invalid verdict: %q", e.Verdict)
}

var trailingCommas = regexp.MustCompile(`,\s*([}\]])`)

// ParseVerdict extracts an Assessment from raw model text. It tolerates
// fenced code blocks and trailing commas but is strict about everything
// else: both verdict and years_required must be present, and the verdict
// must be one of yes/no/maybe/maybe+. A reasoning key is discarded.
func ParseVerdict(raw string) (*Assessment, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))
	cleaned = trailingCommas.ReplaceAllString(cleaned, "$1")

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ResponseFormatError{Raw: raw, Err: err}
	}

	verdictValue, ok := data["verdict"]
	if !ok {
		return nil, &ResponseFormatError{Raw: raw, Err: errors.New(`missing "verdict" key`)}
	}

	yearsValue, ok := data["years_required"]
	if !ok {
		return nil, &ResponseFormatError{Raw: raw, Err: errors.New(`missing "years_required" key`)}
	}

	verdict := strings.ToLower(strings.TrimSpace(coerceString(verdictValue)))
	if _, ok := validVerdicts[verdict]; !ok {
		return nil, &ResponseFormatError{Raw: raw, Err: &InvalidVerdictError{Verdict: verdict}}
	}

	return &Assessment{
		Verdict:       verdict,
		YearsRequired: strings.TrimSpace(coerceString(yearsValue)),
	}, nil
}

func extractJSON(raw string) string {
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
