package service

import (
	"Moodle-Auto-Grader/internal/links"
	"Moodle-Auto-Grader/internal/model"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var ErrInvalidGrade = errors.New("invalid grade")

var plainDecimal = regexp.MustCompile(`^\d+(\.\d+)?$`)

type MoodleClient interface {
	FindRequiresGradingLinks(ctx context.Context, reportURL string) ([]string, error)
	GetQuestionDetails(ctx context.Context, link string) (model.QuestionDetail, error)
	SubmitGrade(ctx context.Context, link, grade string, maxMark int) error
}

type Prompter interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	WaitForEnter(ctx context.Context, prompt string) error
	Printf(format string, args ...any)
	Println(args ...any)
	Title(title string)
	Rule(ch string)
	QuestionBanner(question string, maxMark int)
	AnswerBlock(index, total int, answer string)
	Success(msg string)
	Failure(msg string)
}

type GraderService struct {
	client    MoodleClient
	console   Prompter
	reportURL string
	logger    zerolog.Logger
}

func NewGraderService(client MoodleClient, console Prompter, reportURL string, logger zerolog.Logger) *GraderService {
	return &GraderService{
		client:    client,
		console:   console,
		reportURL: reportURL,
		logger:    logger.With().Str("component", "grader").Logger(),
	}
}

// Prepare discovers the responses awaiting a grade and returns their review links,
// batched by slot in ascending order.
func (s *GraderService) Prepare(ctx context.Context) ([]string, error) {
	found, err := s.client.FindRequiresGradingLinks(ctx, s.reportURL)
	if err != nil {
		return nil, fmt.Errorf("discover gradeable responses: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	ordered, err := links.ReorderForGrading(links.GroupBySlot(found))
	if err != nil {
		return nil, err
	}
	for i := range ordered {
		ordered[i] = links.ToReviewURL(ordered[i])
	}
	return ordered, nil
}

// ValidateGrade accepts a plain non-negative decimal no larger than maxMark. A maxMark
// of 0 means the page did not state one, so only the form is checked.
func ValidateGrade(raw string, maxMark int) (string, error) {
	grade := strings.TrimSpace(raw)
	if !plainDecimal.MatchString(grade) {
		return "", fmt.Errorf("%w: %q is not a plain decimal number", ErrInvalidGrade, raw)
	}
	value, err := strconv.ParseFloat(grade, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a number", ErrInvalidGrade, raw)
	}
	if maxMark > 0 && value > float64(maxMark) {
		return "", fmt.Errorf("%w: %s is above the maximum of %d", ErrInvalidGrade, grade, maxMark)
	}
	return grade, nil
}

// readGrade prompts until a valid grade or an empty line (skip) is entered.
func (s *GraderService) readGrade(ctx context.Context, maxMark int) (string, bool, error) {
	for {
		raw, err := s.console.ReadLine(ctx, "Enter the grade for this question (blank to skip): ")
		if err != nil {
			return "", false, err
		}
		if strings.TrimSpace(raw) == "" {
			return "", false, nil
		}
		grade, err := ValidateGrade(raw, maxMark)
		if err == nil {
			return grade, true, nil
		}
		s.console.Printf("%v\n", err)
	}
}

// Run performs one full grading session. Failures on a single item are reported
// and counted; discovery and console errors end the session.
func (s *GraderService) Run(ctx context.Context) (model.Summary, error) {
	var summary model.Summary

	s.console.Title("Moodle Auto Grader")
	s.console.Printf("Quiz Report URL: %s\n", s.reportURL)
	s.console.Rule("=")

	s.console.Println("\nFetching questions that require grading...")
	ordered, err := s.Prepare(ctx)
	if err != nil {
		return summary, err
	}
	if len(ordered) == 0 {
		s.console.Println("No questions requiring grading found.")
		return summary, nil
	}

	for _, link := range ordered {
		s.console.Println(link)
	}
	summary.Total = len(ordered)
	s.console.Printf("\nTotal submissions to grade: %d\n", summary.Total)

	if err := s.console.WaitForEnter(ctx, "\nPress Enter to start grading..."); err != nil {
		summary.Skipped = summary.Total
		if errors.Is(err, io.EOF) {
			s.logger.Warn().Int("remaining", summary.Total).Msg("input closed before grading started")
			return summary, nil
		}
		return summary, fmt.Errorf("read confirmation: %w", err)
	}

	previousQuestion := ""
	for i, link := range ordered {
		if err := ctx.Err(); err != nil {
			summary.Skipped += summary.Total - i
			return summary, fmt.Errorf("grading interrupted: %w", err)
		}

		detail, err := s.client.GetQuestionDetails(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				summary.Skipped += summary.Total - i
				return summary, fmt.Errorf("grading interrupted: %w", ctx.Err())
			}
			s.logger.Error().Err(err).Str("url", link).Msg("cannot fetch question, skipping")
			s.console.Failure(fmt.Sprintf("[%d/%d] Could not load %s: %v", i+1, summary.Total, link, err))
			summary.Failed++
			continue
		}

		if i == 0 || detail.QuestionText != previousQuestion {
			s.console.QuestionBanner(detail.QuestionText, detail.MaxMark)
			if !detail.MaxMarkFound {
				s.console.Printf("(max mark not found: %s)\n", detail.GradeInfo)
			}
			previousQuestion = detail.QuestionText
		}

		s.console.AnswerBlock(i+1, summary.Total, detail.StudentAnswer)

		grade, ok, err := s.readGrade(ctx, detail.MaxMark)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			summary.Skipped += summary.Total - i
			if errors.Is(err, io.EOF) {
				s.logger.Warn().Int("remaining", summary.Total-i).Msg("input closed, stopping session")
				break
			}
			return summary, fmt.Errorf("read grade: %w", err)
		}
		if !ok {
			s.console.Println("Skipped.")
			summary.Skipped++
			continue
		}

		if err := s.client.SubmitGrade(ctx, link, grade, detail.MaxMark); err != nil {
			if ctx.Err() != nil {
				summary.Skipped += summary.Total - i
				return summary, fmt.Errorf("grading interrupted: %w", ctx.Err())
			}
			s.logger.Error().Err(err).Str("url", link).Msg("grade submission failed")
			s.console.Failure("Grade submission failed. Check the error above.")
			summary.Failed++
			continue
		}
		s.console.Success("Grade submitted successfully.")
		summary.Submitted++
	}

	s.console.Println()
	s.console.Title("Grading session complete!")
	s.console.Printf("Total submissions: %d\n", summary.Total)
	s.console.Printf("Submitted: %d  Failed: %d  Skipped: %d\n", summary.Submitted, summary.Failed, summary.Skipped)
	s.console.Rule("=")
	return summary, nil
}
