package frontmatter

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-folio/internal/content"
)

// Delimiter bounds the metadata block at the top of a content file.
const Delimiter = "---"

// Metadata is the decoded key/value block.
type Metadata = content.Metadata

// DefaultDateFields lists the keys decoded into time.Time when no override is given.
var DefaultDateFields = []string{content.FieldDate, content.FieldStartDate, content.FieldEndDate}

// DateLayouts are tried in order when decoding date fields.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

// Options tunes parsing for a single file.
type Options struct {
	// Path identifies the file in returned errors.
	Path string
	// DateFields overrides DefaultDateFields.
	DateFields []string
}

func (o Options) dateFields() []string {
	if len(o.DateFields) == 0 {
		return DefaultDateFields
	}
	return o.DateFields
}

// Parse splits raw into metadata and body. The body is everything after the
// closing delimiter line.
func Parse(raw []byte, opts Options) (Metadata, []byte, error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	if err := scanBlock(raw); err != nil {
		return nil, nil, &content.MalformedFrontmatterError{Path: opts.Path, Reason: err.Error()}
	}

	decoded := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(raw), &decoded, yamlFormat)
	if err != nil {
		return nil, nil, &content.MalformedFrontmatterError{Path: opts.Path, Reason: "metadata is not key/value data", Err: err}
	}

	meta := make(Metadata, len(decoded))
	for key, value := range decoded {
		normalized, keep, err := normalizeValue(value)
		if err != nil {
			return nil, nil, &content.MalformedFrontmatterError{Path: opts.Path, Field: key, Reason: err.Error()}
		}
		if keep {
			meta[key] = normalized
		}
	}

	for _, field := range opts.dateFields() {
		value, ok := meta[field]
		if !ok {
			continue
		}
		parsed, err := parseDate(value)
		if err != nil {
			return nil, nil, &content.MalformedFrontmatterError{Path: opts.Path, Field: field, Reason: "unparsable date", Err: err}
		}
		meta[field] = parsed
	}

	return meta, body, nil
}

// scanBlock checks that raw opens with a delimiter line and that a closing one follows.
func scanBlock(raw []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), len(raw)+1)

	if !scanner.Scan() || strings.TrimRight(scanner.Text(), " \t\r") != Delimiter {
		return fmt.Errorf("missing front matter block")
	}
	for scanner.Scan() {
		if strings.TrimRight(scanner.Text(), " \t\r") == Delimiter {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("missing closing marker %q", Delimiter)
}

func normalizeValue(value any) (any, bool, error) {
	switch v := value.(type) {
	case nil:
		return nil, false, nil
	case string, bool, float64, time.Time:
		return v, true, nil
	case int:
		return v, true, nil
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v), true, nil
		}
		return float64(v), true, nil
	case uint64:
		if v <= math.MaxInt {
			return int(v), true, nil
		}
		return float64(v), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			text, err := scalarString(item)
			if err != nil {
				return nil, false, fmt.Errorf("list item %d: %w", i, err)
			}
			out = append(out, text)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported value of type %T", value)
	}
}

func scalarString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return formatDate(v), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", value)
	}
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		text := strings.TrimSpace(v)
		for _, layout := range DateLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q does not match a supported layout", v)
	default:
		return time.Time{}, fmt.Errorf("expected a date, got %T", value)
	}
}

func formatDate(t time.Time) string {
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}

// floatNode keeps integral floats from reading back as ints.
func floatNode(f float64) *yaml.Node {
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(text, ".eE") && !math.IsInf(f, 0) && !math.IsNaN(f) {
		text += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
}

// Marshal serializes meta and body back into a content file. Keys are sorted
// and dates formatted so that Parse(Marshal(m)) yields m again.
func Marshal(meta Metadata, body []byte) ([]byte, error) {
	out := make(map[string]any, len(meta))
	for _, key := range meta.Keys() {
		switch v := meta[key].(type) {
		case time.Time:
			out[key] = formatDate(v)
		case []string:
			out[key] = slices.Clone(v)
		case float64:
			out[key] = floatNode(v)
		default:
			out[key] = v
		}
	}

	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	if len(out) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("marshal front matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal front matter: %w", err)
		}
	}
	buf.WriteString(Delimiter + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
