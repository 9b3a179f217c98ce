// Package parser hides Moodle's markup behind one accessor per extracted field.
package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	QuestionNotFound  = "Question not found"
	AnswerNotFound    = "Answer not found"
	GradeInfoNotFound = "Grade info not found"
)

var (
	reviewLinkPattern = regexp.MustCompile(`reviewquestion\.php\?.*slot=`)
	sesskeyPattern    = regexp.MustCompile(`"sesskey":"([^"]+)"`)
)

// ReportPage is the quiz responses report listing every attempt.
type ReportPage interface {
	RequiresGradingLinks() []string
}

// QuestionPage is reviewquestion.php for one attempt and slot.
type QuestionPage interface {
	QuestionText() string
	StudentAnswer() string
	GradeInfo() string
}

// CommentPage is comment.php, the manual grading form.
type CommentPage interface {
	FieldPrefix(slot int) string
	SessKey() string
	SequenceCheck() string
	CommentItemID() string
}

type htmlPage struct {
	raw string
	doc *goquery.Document
}

func load(r io.Reader) (*htmlPage, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return &htmlPage{raw: string(body), doc: doc}, nil
}

func (p *htmlPage) textOr(selector, fallback string) string {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fallback
	}
	return strings.TrimSpace(sel.Text())
}

func (p *htmlPage) inputValueContaining(nameFragment string) string {
	var value string
	p.doc.Find("input[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.Contains(name, nameFragment) {
			return true
		}
		value, _ = s.Attr("value")
		return false
	})
	return value
}

func NewReportPage(r io.Reader) (ReportPage, error) {
	p, err := load(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func NewQuestionPage(r io.Reader) (QuestionPage, error) {
	p, err := load(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func NewCommentPage(r io.Reader) (CommentPage, error) {
	p, err := load(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *htmlPage) RequiresGradingLinks() []string {
	var found []string
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !reviewLinkPattern.MatchString(href) {
			return
		}
		if strings.Contains(strings.ToLower(s.Text()), "requires grading") {
			found = append(found, href)
		}
	})
	return found
}

func (p *htmlPage) QuestionText() string {
	return p.textOr("div.qtext", QuestionNotFound)
}

func (p *htmlPage) StudentAnswer() string {
	return p.textOr("div.qtype_essay_response", AnswerNotFound)
}

func (p *htmlPage) GradeInfo() string {
	return p.textOr("div.grade", GradeInfoNotFound)
}

// FieldPrefix derives the "q<id>" form-field prefix from the question-<id>-<slot> element id.
func (p *htmlPage) FieldPrefix(slot int) string {
	re := regexp.MustCompile(fmt.Sprintf(`question-(\d+)-%d\b`, slot))
	m := re.FindStringSubmatch(p.raw)
	if m == nil {
		return ""
	}
	return "q" + m[1]
}

func (p *htmlPage) SessKey() string {
	m := sesskeyPattern.FindStringSubmatch(p.raw)
	if m == nil {
		return ""
	}
	return m[1]
}

func (p *htmlPage) SequenceCheck() string {
	return p.inputValueContaining("sequencecheck")
}

func (p *htmlPage) CommentItemID() string {
	return p.inputValueContaining("comment:itemid")
}
