package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/examind/examtaker/internal/config"
	"github.com/examind/examtaker/internal/gateway"
	"github.com/examind/examtaker/internal/logger"
	"github.com/examind/examtaker/internal/session"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Fatal().Msg("examtaker is interactive and needs a terminal")
	}

	reader := bufio.NewReader(os.Stdin)

	token := ""
	if len(os.Args) > 1 {
		token = strings.TrimSpace(os.Args[1])
	} else {
		fmt.Print("Enter session token: ")
		line, _ := reader.ReadString('\n')
		token = strings.TrimSpace(line)
	}
	if token == "" {
		// Precondition failure: no network call is ever attempted.
		fmt.Println("A session token is required. Contact the invigilator if you do not have one.")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ─── Wire Engine ───────────────────────────────────────────────────
	client := gateway.NewClient(cfg.GatewayBaseURL, cfg.RequestTimeout, log)
	eng := session.New(client, token, log, session.Options{
		LowTime:      cfg.LowTimeThreshold,
		PollInterval: cfg.WaitingPollInterval,
	})
	defer eng.Close()

	phase, err := eng.Start(ctx)
	runPhase(ctx, eng, reader, phase, err, log)
}

// runPhase drives the session until a terminal phase is reached.
func runPhase(ctx context.Context, eng *session.Engine, reader *bufio.Reader, phase session.Phase, err error, log zerolog.Logger) {
	for {
		switch phase {
		case session.PhaseInvalid:
			renderTerminalError(err)
			os.Exit(1)

		case session.PhaseSubmitted:
			renderConfirmation(eng)
			return

		case session.PhaseWaiting:
			renderWaitingRoom(eng)
			phase, err = eng.AwaitStart(ctx)
			if ctx.Err() != nil {
				return
			}

		case session.PhaseLoadFailed:
			fmt.Println("Could not load the question paper. Press Enter to retry, or type q to leave.")
			line, readErr := reader.ReadString('\n')
			if readErr != nil || strings.TrimSpace(line) == "q" {
				return
			}
			phase, err = eng.RetryLoad(ctx)

		case session.PhaseActive:
			examLoop(ctx, eng, reader, log)
			phase = eng.Phase()
			if phase == session.PhaseActive {
				// examLoop only returns from ACTIVE on EOF/quit.
				return
			}

		default:
			if err != nil {
				fmt.Println("Could not reach the exam gateway. Check your connection and restart.")
				log.Error().Err(err).Msg("Session start failed")
			}
			return
		}
	}
}

// examLoop is the candidate interaction loop over one active session.
func examLoop(ctx context.Context, eng *session.Engine, reader *bufio.Reader, log zerolog.Logger) {
	renderHelp()

	for {
		if eng.Phase() == session.PhaseSubmitted {
			renderConfirmation(eng)
			return
		}

		renderScreen(eng)
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToLower(strings.TrimSpace(line))

		switch {
		case cmd == "":
			// redraw

		case cmd == "a" || cmd == "b" || cmd == "c" || cmd == "d":
			if err := eng.SetAnswer(strings.ToUpper(cmd)); err != nil {
				renderActionError(err)
			}

		case cmd == "clear":
			if err := eng.SetAnswer(""); err != nil {
				renderActionError(err)
			}

		case cmd == "m" || cmd == "mark":
			if err := eng.ToggleReview(); err != nil {
				renderActionError(err)
			}

		case cmd == "n" || cmd == "next":
			eng.Next()

		case cmd == "p" || cmd == "prev":
			eng.Prev()

		case strings.HasPrefix(cmd, "g "):
			n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(cmd, "g ")))
			if convErr != nil {
				fmt.Println("Usage: g <question number>")
				continue
			}
			eng.Jump(n - 1)

		case cmd == "submit":
			if !confirmSubmit(reader, eng) {
				continue
			}
			if err := eng.SubmitManual(ctx); err != nil && !errors.Is(err, session.ErrSubmitInFlight) {
				renderSubmitError()
				log.Error().Err(err).Msg("Manual submission failed")
			}

		case cmd == "h" || cmd == "help":
			renderHelp()

		case cmd == "q" || cmd == "quit":
			fmt.Println("Leaving. Your answers are saved as you go; the timer keeps running.")
			return

		default:
			fmt.Printf("Unknown command %q. Type h for help.\n", cmd)
		}
	}
}

// confirmSubmit is the explicit confirmation step of the manual path. The
// timeout path never asks.
func confirmSubmit(reader *bufio.Reader, eng *session.Engine) bool {
	store := eng.Store()
	unanswered := store.Total() - store.AnsweredCount()
	if unanswered > 0 {
		fmt.Printf("%d question(s) are still unanswered.\n", unanswered)
	}
	fmt.Print("Submit final answers? This cannot be undone. [y/N] ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func renderActionError(err error) {
	switch {
	case errors.Is(err, session.ErrTimeExpired):
		fmt.Println("Time is over; answers can no longer be changed.")
	case errors.Is(err, session.ErrUnknownOption):
		fmt.Println("That option is not available on this question.")
	case errors.Is(err, session.ErrNotActive):
		// Session closed between prompt and action; the loop will render
		// the terminal screen next pass.
	default:
		fmt.Println("That action is not possible right now.")
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
