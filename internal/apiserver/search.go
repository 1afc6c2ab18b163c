package apiserver

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/cncf/clotributor/internal/db"
)

// arrayKey matches bracket-indexed query string keys like "foundation[0]".
var arrayKey = regexp.MustCompile(`^([a-z_]+)\[([0-9]+)\]$`)

// ParseSearchIssuesInput deserialises an issues search query string into a
// structured input. Array filters use the bracket-indexed form the web
// client sends (key[i]=v); unknown keys are ignored.
func ParseSearchIssuesInput(rawQuery string) (*db.SearchIssuesInput, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	input := &db.SearchIssuesInput{}
	arrays := make(map[string]map[int]string)
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]

		if m := arrayKey.FindStringSubmatch(key); m != nil {
			name := m[1]
			index, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("invalid index in %s: %w", key, err)
			}
			if arrays[name] == nil {
				arrays[name] = make(map[int]string)
			}
			arrays[name][index] = val
			continue
		}

		switch key {
		case "limit":
			limit, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %w", err)
			}
			input.Limit = &limit
		case "offset":
			offset, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid offset: %w", err)
			}
			input.Offset = &offset
		case "sort_by":
			input.SortBy = &val
		case "ts_query_web":
			input.TSQueryWeb = &val
		case "mentor_available":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("invalid mentor_available: %w", err)
			}
			input.MentorAvailable = &b
		case "good_first_issue":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("invalid good_first_issue: %w", err)
			}
			input.GoodFirstIssue = &b
		case "no_linked_prs":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("invalid no_linked_prs: %w", err)
			}
			input.NoLinkedPRs = &b
		}
	}

	for name, indexed := range arrays {
		indexes := make([]int, 0, len(indexed))
		for index := range indexed {
			indexes = append(indexes, index)
		}
		sort.Ints(indexes)
		elems := make([]string, 0, len(indexes))
		for _, index := range indexes {
			elems = append(elems, indexed[index])
		}

		switch name {
		case "foundation":
			input.Foundation = elems
		case "maturity":
			input.Maturity = elems
		case "project":
			input.Project = elems
		case "area":
			input.Area = elems
		case "kind":
			input.Kind = elems
		case "difficulty":
			input.Difficulty = elems
		case "language":
			input.Language = elems
		}
	}

	return input, nil
}
