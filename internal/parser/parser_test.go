package parser_test

import (
	"Moodle-Auto-Grader/internal/parser"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const reportHTML = `<html><body><table>
<tr><td><a href="https://moodle.example.edu/mod/quiz/reviewquestion.php?attempt=41&slot=3" title="Review response">Requires grading</a></td></tr>
<tr><td><a href="https://moodle.example.edu/mod/quiz/reviewquestion.php?attempt=42&slot=1">Graded 5.00</a></td></tr>
<tr><td><a href="https://moodle.example.edu/mod/quiz/review.php?attempt=41">Requires grading</a></td></tr>
<tr><td><a href="https://moodle.example.edu/mod/quiz/reviewquestion.php?attempt=43&slot=2"><span>REQUIRES GRADING</span></a></td></tr>
</table></body></html>`

const questionHTML = `<html><body>
<div class="que essay manualgraded" id="question-7-4">
  <div class="info"><div class="grade">Marked out of 10.00</div></div>
  <div class="formulation">
    <div class="qtext">  <p>Explain the CAP theorem.</p>  </div>
    <div class="answer"><div class="qtype_essay_response readonly"><p>Consistency, availability and partition tolerance.</p></div></div>
  </div>
</div>
</body></html>`

const commentHTML = `<html><head>
<script>M.cfg = {"wwwroot":"https:\/\/moodle.example.edu","sesskey":"abc123","sessiontimeout":"7200"};</script>
</head><body>
<form method="post" action="comment.php">
<div id="question-7-4" class="que essay">
<input type="hidden" name="q7:4_:sequencecheck" value="9">
<textarea name="q7:4_-comment"></textarea>
<input type="hidden" name="q7:4_-comment:itemid" value="55">
<input type="text" name="q7:4_-mark" value="">
</div>
</form>
</body></html>`

func TestReportPage_RequiresGradingLinks(t *testing.T) {
	page, err := parser.NewReportPage(strings.NewReader(reportHTML))
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://moodle.example.edu/mod/quiz/reviewquestion.php?attempt=41&slot=3",
		"https://moodle.example.edu/mod/quiz/reviewquestion.php?attempt=43&slot=2",
	}, page.RequiresGradingLinks())
}

func TestReportPage_NothingToGrade(t *testing.T) {
	page, err := parser.NewReportPage(strings.NewReader(`<html><body><p>No attempts</p></body></html>`))
	require.NoError(t, err)
	require.Empty(t, page.RequiresGradingLinks())
}

func TestQuestionPage_Fields(t *testing.T) {
	page, err := parser.NewQuestionPage(strings.NewReader(questionHTML))
	require.NoError(t, err)

	require.Equal(t, "Explain the CAP theorem.", page.QuestionText())
	require.Equal(t, "Consistency, availability and partition tolerance.", page.StudentAnswer())
	require.Equal(t, "Marked out of 10.00", page.GradeInfo())
}

func TestQuestionPage_Fallbacks(t *testing.T) {
	page, err := parser.NewQuestionPage(strings.NewReader(`<html><body><div>login required</div></body></html>`))
	require.NoError(t, err)

	require.Equal(t, parser.QuestionNotFound, page.QuestionText())
	require.Equal(t, parser.AnswerNotFound, page.StudentAnswer())
	require.Equal(t, parser.GradeInfoNotFound, page.GradeInfo())
}

func TestCommentPage_Tokens(t *testing.T) {
	page, err := parser.NewCommentPage(strings.NewReader(commentHTML))
	require.NoError(t, err)

	require.Equal(t, "q7", page.FieldPrefix(4))
	require.Equal(t, "abc123", page.SessKey())
	require.Equal(t, "9", page.SequenceCheck())
	require.Equal(t, "55", page.CommentItemID())
}

func TestCommentPage_MissingTokensAreEmpty(t *testing.T) {
	page, err := parser.NewCommentPage(strings.NewReader(`<html><body><p>Session expired</p></body></html>`))
	require.NoError(t, err)

	require.Empty(t, page.FieldPrefix(4))
	require.Empty(t, page.SessKey())
	require.Empty(t, page.SequenceCheck())
	require.Empty(t, page.CommentItemID())
}

func TestCommentPage_FieldPrefixMatchesWholeSlot(t *testing.T) {
	page, err := parser.NewCommentPage(strings.NewReader(`<div id="question-7-41"></div><div id="question-8-4"></div>`))
	require.NoError(t, err)
	require.Equal(t, "q8", page.FieldPrefix(4))
}
