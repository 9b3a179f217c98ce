package main

import (
	"Moodle-Auto-Grader/internal/client"
	"Moodle-Auto-Grader/internal/config"
	"Moodle-Auto-Grader/internal/console"
	"Moodle-Auto-Grader/internal/links"
	"Moodle-Auto-Grader/internal/service"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "v0.1"

func main() {
	root := &cobra.Command{
		Use:   "grader",
		Short: "grade Moodle essay responses from the terminal",
		Long: "Finds quiz responses that still require grading, shows each answer\n" +
			"and posts the grade you type back to Moodle.\n\n" +
			"Configure MOODLE_BASE_URL, QUIZ_REPORT_URL and MOODLE_COOKIES in the\n" +
			"environment or a .env file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          commandGrade,
	}

	root.AddCommand(&cobra.Command{
		Use:   "links",
		Short: "list the review links that require grading, in grading order",
		Args:  cobra.NoArgs,
		RunE:  commandLinks,
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version number of grader",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("grader " + version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
}

// setup loads and validates configuration. A nil service with a nil error means
// configuration is incomplete and the user has been told so.
func setup() (*service.GraderService, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		var missing *config.MissingFieldError
		if !errors.As(err, &missing) {
			return nil, logger, err
		}
		fmt.Printf("Error: %v\n", err)
		fmt.Println("\nPlease configure your .env file with the required values.")
		fmt.Println("See .env.example for reference.")
		return nil, logger, nil
	}

	moodle := client.NewMoodleClient(cfg, logger)
	term := console.New(os.Stdin, os.Stdout)
	return service.NewGraderService(moodle, term, cfg.QuizReportURL, logger), logger, nil
}

func commandGrade(cmd *cobra.Command, args []string) error {
	grader, logger, err := setup()
	if err != nil || grader == nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := grader.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Printf("\nGrading interrupted. Submitted: %d  Failed: %d  Skipped: %d\n",
			summary.Submitted, summary.Failed, summary.Skipped)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Debug().Int("total", summary.Total).Int("submitted", summary.Submitted).
		Int("failed", summary.Failed).Int("skipped", summary.Skipped).Msg("session finished")
	return nil
}

func commandLinks(cmd *cobra.Command, args []string) error {
	grader, _, err := setup()
	if err != nil || grader == nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ordered, err := grader.Prepare(ctx)
	if err != nil {
		return err
	}
	for _, link := range ordered {
		gl, err := links.ParseLink(link)
		if err != nil {
			fmt.Println(link)
			continue
		}
		fmt.Printf("slot %-4s attempt %-8d %s\n", gl.Slot, gl.Attempt, link)
	}
	fmt.Printf("%d responses require grading\n", len(ordered))
	return nil
}
