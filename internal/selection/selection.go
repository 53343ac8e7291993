// Package selection resolves the episode picker expressions accepted by the
// process command. An expression addresses rows of a displayed listing by
// 1-based position: "3", "1,4,5", "2-6", or "all". Resolution is atomic; one
// bad token rejects the whole expression.
package selection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

// Resolve maps a selection expression onto the identifiers of a displayed
// listing, preserving display order and dropping duplicates.
func Resolve(expr string, displayed []int64) ([]int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, services.Wrap(services.ErrInvalidSelection, "", "resolve selection", "empty selection", nil)
	}
	if strings.EqualFold(expr, "all") {
		out := make([]int64, len(displayed))
		copy(out, displayed)
		return out, nil
	}

	picked := make(map[int]struct{})
	order := make([]int, 0, len(displayed))
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, invalidToken(token, "empty token")
		}
		lo, hi, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > len(displayed) {
			return nil, invalidToken(token, fmt.Sprintf("out of range 1-%d", len(displayed)))
		}
		for idx := lo; idx <= hi; idx++ {
			if _, seen := picked[idx]; seen {
				continue
			}
			picked[idx] = struct{}{}
			order = append(order, idx)
		}
	}

	out := make([]int64, 0, len(order))
	for _, idx := range order {
		out = append(out, displayed[idx-1])
	}
	return out, nil
}

func parseToken(token string) (int, int, error) {
	if lo, hi, found := strings.Cut(token, "-"); found {
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, invalidToken(token, "not a number")
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, invalidToken(token, "not a number")
		}
		if end < start {
			return 0, 0, invalidToken(token, "descending range")
		}
		return start, end, nil
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, invalidToken(token, "not a number")
	}
	return value, value, nil
}

func invalidToken(token, reason string) error {
	return services.Wrap(services.ErrInvalidSelection, "", "resolve selection",
		fmt.Sprintf("%q: %s", token, reason), nil)
}
