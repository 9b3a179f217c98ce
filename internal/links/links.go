package links

import (
	"Moodle-Auto-Grader/internal/model"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	CommentPage = "comment.php"
	ReviewPage  = "reviewquestion.php"
)

var (
	ErrMalformedLink  = errors.New("malformed grading link")
	ErrNonNumericSlot = errors.New("slot is not numeric")
)

// SlotError reports a slot key that cannot be ordered numerically.
type SlotError struct {
	Slot string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("cannot order slot %q: not a number", e.Slot)
}

func (e *SlotError) Unwrap() error {
	return ErrNonNumericSlot
}

func slotOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("slot")
}

// ParseLink extracts the attempt and slot of a grading link.
func ParseLink(link string) (model.GradeableLink, error) {
	u, err := url.Parse(link)
	if err != nil {
		return model.GradeableLink{}, fmt.Errorf("%w: %v", ErrMalformedLink, err)
	}
	q := u.Query()
	attempt, err := strconv.Atoi(q.Get("attempt"))
	if err != nil {
		return model.GradeableLink{}, fmt.Errorf("%w: attempt %q in %s", ErrMalformedLink, q.Get("attempt"), link)
	}
	return model.GradeableLink{URL: link, Attempt: attempt, Slot: q.Get("slot")}, nil
}

// AttemptAndSlot returns both identifiers as integers; either one missing is an error.
func AttemptAndSlot(link string) (attempt, slot int, err error) {
	gl, err := ParseLink(link)
	if err != nil {
		return 0, 0, err
	}
	slot, err = strconv.Atoi(gl.Slot)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: slot %q in %s", ErrMalformedLink, gl.Slot, link)
	}
	return gl.Attempt, slot, nil
}

// GroupBySlot buckets links by their slot query parameter, keeping arrival order
// within each bucket. Links without a slot land under "".
func GroupBySlot(links []string) map[string][]string {
	grouped := make(map[string][]string)
	for _, link := range links {
		slot := slotOf(link)
		grouped[slot] = append(grouped[slot], link)
	}
	return grouped
}

// ReorderForGrading flattens the groups in ascending numeric slot order so every
// response to the same question is graded back to back.
func ReorderForGrading(grouped map[string][]string) ([]string, error) {
	type slotKey struct {
		raw string
		n   int
	}
	keys := make([]slotKey, 0, len(grouped))
	total := 0
	for raw, group := range grouped {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &SlotError{Slot: raw}
		}
		keys = append(keys, slotKey{raw: raw, n: n})
		total += len(group)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].n != keys[j].n {
			return keys[i].n < keys[j].n
		}
		return keys[i].raw < keys[j].raw
	})

	ordered := make([]string, 0, total)
	for _, k := range keys {
		ordered = append(ordered, grouped[k.raw]...)
	}
	return ordered, nil
}

func replacePage(link, from, to string) string {
	u, err := url.Parse(link)
	if err != nil || !strings.HasSuffix(u.Path, "/"+from) && u.Path != from {
		return link
	}
	u.Path = strings.TrimSuffix(u.Path, from) + to
	u.RawPath = ""
	return u.String()
}

// ToReviewURL points a comment.php link at reviewquestion.php with the same query.
func ToReviewURL(link string) string {
	return replacePage(link, CommentPage, ReviewPage)
}

func ToCommentURL(link string) string {
	return replacePage(link, ReviewPage, CommentPage)
}

// ParseMaxMark reads the maximum mark from grade text such as "Marked out of 10.00".
func ParseMaxMark(gradeInfo string) (int, bool) {
	idx := strings.LastIndex(gradeInfo, "out of")
	if idx < 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(gradeInfo[idx+len("out of"):]), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f), true
}
