package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/examind/examtaker/internal/gateway"
	"github.com/examind/examtaker/internal/session"
)

var (
	heading  = color.New(color.FgCyan, color.Bold)
	urgent   = color.New(color.FgRed, color.Bold)
	okGreen  = color.New(color.FgGreen)
	marked   = color.New(color.FgYellow)
	dimmed   = color.New(color.Faint)
	selected = color.New(color.FgGreen, color.Bold)
)

func renderWaitingRoom(eng *session.Engine) {
	sess := eng.Session()
	fmt.Println()
	heading.Printf("── %s ──\n", sess.Exam.Title)
	fmt.Printf("Candidate: %s (roll no. %s)\n", sess.Candidate.Name, sess.Candidate.RollNumber)
	fmt.Printf("Duration: %s\n", formatDuration(time.Duration(sess.Exam.DurationSeconds)*time.Second))
	fmt.Println("Waiting for the exam to be started by the invigilator...")
}

func renderScreen(eng *session.Engine) {
	store := eng.Store()
	sess := eng.Session()
	focused := eng.Focused()

	q, ok := store.Question(focused)
	if !ok {
		return
	}
	r, _ := store.Response(focused)

	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
	heading.Printf("%s", sess.Exam.Title)
	fmt.Print("    ")
	renderTimer(eng)
	fmt.Println()

	fmt.Printf("Question %d of %d", focused+1, store.Total())
	if r.MarkedForReview {
		marked.Print("  [marked for review]")
	}
	fmt.Println()
	fmt.Println()
	fmt.Println(q.Text)
	for _, opt := range q.Options {
		if opt.Label == r.SelectedAnswer {
			selected.Printf("  > %s. %s\n", opt.Label, opt.Text)
		} else {
			fmt.Printf("    %s. %s\n", opt.Label, opt.Text)
		}
	}

	fmt.Println()
	renderPalette(eng)
	fmt.Printf("Answered %d/%d (%.0f%%), %d marked for review\n",
		store.AnsweredCount(), store.Total(),
		store.ProgressFraction()*100, store.ReviewCount())
}

// renderTimer prints the recomputed remaining time, switching to the
// urgency treatment below the low-time threshold.
func renderTimer(eng *session.Engine) {
	remaining := eng.Remaining()
	text := fmt.Sprintf("⏱ %s remaining", formatDuration(remaining))
	if eng.LowTime() {
		urgent.Print(text)
		return
	}
	fmt.Print(text)
}

// renderPalette prints one cell per question: the focused cell in
// brackets, colored by its derived status.
func renderPalette(eng *session.Engine) {
	states := eng.Palette()
	focused := eng.Focused()

	fmt.Print("Palette: ")
	for i, st := range states {
		cell := fmt.Sprintf("%d", i+1)
		if i == focused {
			cell = "[" + cell + "]"
		}
		switch st {
		case session.QuestionAnswered:
			okGreen.Print(cell)
		case session.QuestionMarked:
			marked.Print(cell)
		case session.QuestionLocked:
			dimmed.Print(cell)
		default:
			fmt.Print(cell)
		}
		fmt.Print(" ")
	}
	fmt.Println()
}

func renderConfirmation(eng *session.Engine) {
	fmt.Println()
	okGreen.Println("Your exam has been submitted.")
	if sess := eng.Session(); sess != nil {
		fmt.Printf("Candidate: %s (roll no. %s), %s\n",
			sess.Candidate.Name, sess.Candidate.RollNumber, sess.Exam.Title)
	}
	fmt.Println("You may now close this window.")
}

func renderTerminalError(err error) {
	fmt.Println()
	switch {
	case err == nil:
		urgent.Println("This session is not valid.")
	case gateway.Terminal(err):
		urgent.Println("This session is not valid or has been withdrawn.")
	default:
		urgent.Println("This session cannot continue.")
	}
	fmt.Println("Please contact the invigilator or help desk.")
}

func renderSubmitError() {
	urgent.Println("Submission failed. Your answers are still here; try submitting again.")
}

func renderHelp() {
	fmt.Println(`Commands:
  a/b/c/d   select an option      clear     clear your answer
  m         mark for review       g <n>     go to question n
  n / p     next / previous       submit    submit final answers
  h         help                  q         leave (timer keeps running)`)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
