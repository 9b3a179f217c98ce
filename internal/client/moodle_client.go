package client

import (
	"Moodle-Auto-Grader/internal/config"
	"Moodle-Auto-Grader/internal/links"
	"Moodle-Auto-Grader/internal/model"
	"Moodle-Auto-Grader/internal/parser"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type StatusError struct {
	URL    string
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

type MoodleClient struct {
	cfg        config.Config
	HTTPClient *http.Client
	logger     zerolog.Logger
}

func NewMoodleClient(cfg config.Config, logger zerolog.Logger) *MoodleClient {
	return &MoodleClient{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.With().Str("component", "moodle_client").Logger(),
	}
}

func (c *MoodleClient) logRequest(req *http.Request, description string) {
	if !c.cfg.DebugHTTP {
		return
	}
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		c.logger.Warn().Err(err).Str("request", description).Msg("cannot dump request")
		return
	}
	c.logger.Debug().Str("request", description).Msg(string(dump))
}

func (c *MoodleClient) setCommonHeaders(req *http.Request) {
	for k, v := range c.cfg.Headers() {
		req.Header[k] = v
	}
}

// getPage issues a GET and returns the body of a 200 response.
func (c *MoodleClient) getPage(ctx context.Context, pageURL, description string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", description, err)
	}
	c.setCommonHeaders(req)
	c.logRequest(req, description)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", description, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: pageURL, Status: resp.Status}
	}
	return resp.Body, nil
}

// FindRequiresGradingLinks lists the review links on the report page still marked
// "Requires grading". An empty result means there is nothing to grade.
func (c *MoodleClient) FindRequiresGradingLinks(ctx context.Context, reportURL string) ([]string, error) {
	body, err := c.getPage(ctx, reportURL, "quiz report")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	page, err := parser.NewReportPage(body)
	if err != nil {
		return nil, fmt.Errorf("parse quiz report: %w", err)
	}
	found := page.RequiresGradingLinks()
	c.logger.Info().Int("count", len(found)).Msg("found responses requiring grading")
	return found, nil
}

func (c *MoodleClient) GetQuestionDetails(ctx context.Context, link string) (model.QuestionDetail, error) {
	c.logger.Debug().Str("url", link).Msg("fetching question")
	body, err := c.getPage(ctx, link, "review question")
	if err != nil {
		return model.QuestionDetail{}, err
	}
	defer body.Close()

	page, err := parser.NewQuestionPage(body)
	if err != nil {
		return model.QuestionDetail{}, fmt.Errorf("parse review question: %w", err)
	}

	detail := model.QuestionDetail{
		QuestionText:  page.QuestionText(),
		StudentAnswer: page.StudentAnswer(),
		GradeInfo:     page.GradeInfo(),
	}
	detail.MaxMark, detail.MaxMarkFound = links.ParseMaxMark(detail.GradeInfo)
	if !detail.MaxMarkFound {
		c.logger.Warn().Str("grade_info", detail.GradeInfo).Str("url", link).Msg("max mark not found, using 0")
	}
	return detail, nil
}

// fetchCommentTokens reads comment.php for the pair. A failed fetch leaves every
// token empty; Moodle will then reject the post on its own.
func (c *MoodleClient) fetchCommentTokens(ctx context.Context, commentURL string, slot int) model.CommentFormTokens {
	body, err := c.getPage(ctx, commentURL, "comment page")
	if err != nil {
		c.logger.Warn().Err(err).Msg("cannot load comment page, submitting without form tokens")
		return model.CommentFormTokens{}
	}
	defer body.Close()

	page, err := parser.NewCommentPage(body)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cannot parse comment page, submitting without form tokens")
		return model.CommentFormTokens{}
	}
	tokens := model.CommentFormTokens{
		FieldPrefix:   page.FieldPrefix(slot),
		SessKey:       page.SessKey(),
		SequenceCheck: page.SequenceCheck(),
		ItemID:        page.CommentItemID(),
	}
	if tokens.FieldPrefix == "" || tokens.SessKey == "" {
		c.logger.Warn().Str("url", commentURL).Msg("comment page is missing form tokens")
	}
	return tokens
}

// BuildSubmissionForm assembles the fields comment.php expects for one manual grade.
func BuildSubmissionForm(sub model.GradeSubmission, tokens model.CommentFormTokens) url.Values {
	prefix := fmt.Sprintf("%s:%d_", tokens.FieldPrefix, sub.Slot)
	slot := strconv.Itoa(sub.Slot)
	return url.Values{
		prefix + ":sequencecheck":  {tokens.SequenceCheck},
		prefix + "-comment":        {""},
		prefix + "-comment:itemid": {tokens.ItemID},
		prefix + "-commentformat":  {"1"},
		prefix + "-mark":           {sub.Grade},
		prefix + "-maxmark":        {strconv.Itoa(sub.MaxMark)},
		prefix + ":minfraction":    {"0"},
		prefix + ":maxfraction":    {"1"},
		"attempt":                  {strconv.Itoa(sub.Attempt)},
		"slot":                     {slot},
		"slots":                    {slot},
		"sesskey":                  {tokens.SessKey},
		"submit":                   {"Save"},
	}
}

// SubmitGrade posts a manual grade for the attempt and slot named in link. A nil
// error only means the request went through; Moodle's verdict is not inspected.
func (c *MoodleClient) SubmitGrade(ctx context.Context, link, grade string, maxMark int) error {
	attempt, slot, err := links.AttemptAndSlot(link)
	if err != nil {
		return err
	}

	commentURL := c.cfg.CommentURL(attempt, slot)
	tokens := c.fetchCommentTokens(ctx, commentURL, slot)

	sub := model.GradeSubmission{
		Link:    link,
		Attempt: attempt,
		Slot:    slot,
		Grade:   grade,
		MaxMark: maxMark,
	}
	form := BuildSubmissionForm(sub, tokens)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CommentEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build grade submission: %w", err)
	}
	c.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.cfg.BaseURL)
	req.Header.Set("Referer", commentURL)
	c.logRequest(req, "submit grade")

	c.logger.Info().Int("attempt", attempt).Int("slot", slot).
		Str("grade", grade).Int("max_mark", maxMark).Msg("submitting grade")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("grade submission request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug().Int("status", resp.StatusCode).Msg("grade submission response")
	return nil
}
