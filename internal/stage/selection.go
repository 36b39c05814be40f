package stage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

// SourceAzureDevOps is the source type whose group ids are UUIDs.
const SourceAzureDevOps = "azure devops"

var rangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

type selectionKind int

const (
	selectNone selectionKind = iota
	selectAll
	selectRange
	selectIDs
)

// Selection is a parsed selection expression.
type Selection struct {
	kind  selectionKind
	start int // zero-based, inclusive
	end   int // exclusive
	ids   []models.ID
	raw   []string
}

// IsEmpty reports whether nothing was selected.
func (s Selection) IsEmpty() bool { return s.kind == selectNone }

// IsAll reports whether the whole listing was selected.
func (s Selection) IsAll() bool { return s.kind == selectAll }

// ParseSelection parses a selection expression: "all" or "." for everything,
// "<start>-<end>" for a 1-based inclusive range of listed groups, or explicit
// group ids. Blank tokens are ignored, so an empty expression selects
// nothing.
func ParseSelection(tokens []string, sourceType string) (Selection, error) {
	var clean []string
	for _, t := range tokens {
		for _, f := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' }) {
			if f = strings.TrimSpace(f); f != "" {
				clean = append(clean, f)
			}
		}
	}
	if len(clean) == 0 {
		return Selection{kind: selectNone}, nil
	}

	first := strings.ToLower(clean[0])
	if first == "all" || first == "." {
		return Selection{kind: selectAll, raw: clean}, nil
	}

	if m := rangePattern.FindStringSubmatch(clean[0]); m != nil {
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return Selection{}, malformed(clean[0], err)
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			return Selection{}, malformed(clean[0], err)
		}
		if start != 0 {
			start--
		}
		if end <= start {
			return Selection{}, malformed(clean[0], fmt.Errorf("range end precedes start"))
		}
		return Selection{kind: selectRange, start: start, end: end, raw: clean}, nil
	}

	ids := make([]models.ID, 0, len(clean))
	for _, tok := range clean {
		id, err := parseID(tok, sourceType)
		if err != nil {
			return Selection{}, err
		}
		ids = append(ids, id)
	}
	return Selection{kind: selectIDs, ids: ids, raw: clean}, nil
}

func parseID(tok, sourceType string) (models.ID, error) {
	if strings.EqualFold(sourceType, SourceAzureDevOps) {
		u, err := uuid.Parse(tok)
		if err != nil {
			return "", malformed(tok, err)
		}
		return models.ID(u.String()), nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return "", malformed(tok, nil)
	}
	return models.ID(strconv.Itoa(n)), nil
}
