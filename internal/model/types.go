package model

// GradeableLink identifies one (attempt, slot) pair that still needs a manual grade.
type GradeableLink struct {
	URL     string
	Attempt int
	Slot    string
}

type QuestionDetail struct {
	QuestionText  string
	StudentAnswer string
	GradeInfo     string
	MaxMark       int
	MaxMarkFound  bool
}

type GradeSubmission struct {
	Link    string
	Attempt int
	Slot    int
	Grade   string
	MaxMark int
}

// CommentFormTokens are the session-bound values harvested from comment.php.
// Any of them may be empty when the page did not carry it.
type CommentFormTokens struct {
	FieldPrefix   string
	SessKey       string
	SequenceCheck string
	ItemID        string
}

type Summary struct {
	Total     int
	Submitted int
	Failed    int
	Skipped   int
}
