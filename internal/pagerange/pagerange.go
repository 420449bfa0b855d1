// Package pagerange parses page selections such as "1,3-5,8-".
//
// Pages are numbered from 1. An interval is a single page "N", a closed
// range "N-M" or an open range "N-" that runs to the last page. Pages are
// visited in the order written; repeats are kept.
package pagerange

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Interval is a run of pages. End is 0 for an open interval.
type Interval struct {
	Start int
	End   int
}

func (iv Interval) String() string {
	switch {
	case iv.End == 0:
		return strconv.Itoa(iv.Start) + "-"
	case iv.End == iv.Start:
		return strconv.Itoa(iv.Start)
	}
	return fmt.Sprintf("%d-%d", iv.Start, iv.End)
}

// Intervals is a page selection. It implements the pflag.Value interface.
type Intervals []Interval

// Span returns the selection of pages a to b inclusive.
func Span(a, b int) Intervals {
	return Intervals{{Start: a, End: b}}
}

var errEmpty = errors.New("empty page interval")

// Parse parses a comma separated list of intervals.
func Parse(s string) (Intervals, error) {
	var res Intervals
	for _, item := range strings.Split(s, ",") {
		iv, err := parseInterval(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, nil
}

func parseInterval(item string) (Interval, error) {
	if item == "" {
		return Interval{}, errEmpty
	}
	startText, endText, ranged := strings.Cut(item, "-")

	start, err := parsePage(startText)
	if err != nil {
		return Interval{}, err
	}
	if !ranged {
		return Interval{Start: start, End: start}, nil
	}
	if endText == "" {
		return Interval{Start: start}, nil
	}
	end, err := parsePage(endText)
	if err != nil {
		return Interval{}, err
	}
	if end < start {
		return Interval{}, fmt.Errorf("invalid interval %q: end page is before start page", item)
	}
	return Interval{Start: start, End: end}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid page number %d: pages are numbered from 1", n)
	}
	return n, nil
}

// Pages returns the selected page numbers. Open intervals end at last.
// Closed intervals are not clipped, so a caller may see pages past the
// end of the document. The sequence can be iterated more than once.
func (ivs Intervals) Pages(last int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, iv := range ivs {
			end := iv.End
			if end == 0 {
				end = last
			}
			for page := iv.Start; page <= end; page++ {
				if !yield(page) {
					return
				}
			}
		}
	}
}

func (ivs Intervals) String() string {
	parts := make([]string, len(ivs))
	for i, iv := range ivs {
		parts[i] = iv.String()
	}
	return strings.Join(parts, ",")
}

// Set replaces the selection with the parsed value of s.
func (ivs *Intervals) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*ivs = parsed
	return nil
}

func (ivs *Intervals) Type() string {
	return "pages"
}
