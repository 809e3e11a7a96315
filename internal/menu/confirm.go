// Package menu asks the operator yes/no questions on the terminal.
package menu

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/manifoldco/promptui"

	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
)

// Result is the outcome of a confirmation prompt.
type Result int

const (
	Invalid Result = iota
	Confirmed
	Declined
)

func (r Result) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case Declined:
		return "declined"
	default:
		return "invalid"
	}
}

// DefaultMaxAttempts bounds how often an unrecognised answer is asked again.
const DefaultMaxAttempts = 3

// ErrInterrupted matches, via errors.Is, the error returned when the
// operator aborts a prompt with Ctrl+C.
var ErrInterrupted = apperrors.SystemError(apperrors.CodeInterrupted, "prompt interrupted", nil).
	WithModule("menu")

// Prompter reads one line of input for a label.
type Prompter interface {
	Prompt(label string) (string, error)
}

// TerminalPrompter reads answers with promptui.
type TerminalPrompter struct{}

// Prompt implements Prompter.
func (TerminalPrompter) Prompt(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . | bold }} ",
			Valid:   "{{ . | bold }} ",
			Invalid: "{{ . | bold }} ",
			Success: "{{ . | faint }} ",
		},
	}
	answer, err := prompt.Run()
	if stdErrors.Is(err, promptui.ErrInterrupt) {
		return "", apperrors.SystemError(apperrors.CodeInterrupted, "prompt interrupted", err).
			WithModule("menu").
			WithOperation("Prompt")
	}
	return answer, err
}

// Confirmer asks yes/no questions a bounded number of times.
type Confirmer struct {
	prompter    Prompter
	maxAttempts int
	assumeYes   bool
	logger      logger.Logger
}

// Option customises a Confirmer.
type Option func(*Confirmer)

// WithPrompter overrides the input source.
func WithPrompter(p Prompter) Option {
	return func(c *Confirmer) {
		c.prompter = p
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(c *Confirmer) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// AssumeYes makes every question answer itself with Confirmed.
func AssumeYes(yes bool) Option {
	return func(c *Confirmer) {
		c.assumeYes = yes
	}
}

// NewConfirmer creates a Confirmer reading from the terminal by default.
func NewConfirmer(log logger.Logger, opts ...Option) *Confirmer {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	c := &Confirmer{
		prompter:    TerminalPrompter{},
		maxAttempts: DefaultMaxAttempts,
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask poses question until it gets yes or no, at most maxAttempts times.
// Unrecognised answers beyond that yield Invalid.
func (c *Confirmer) Ask(ctx context.Context, question string) (Result, error) {
	if c.assumeYes {
		c.logger.Debug("%s (yes, assumed)", question)
		return Confirmed, nil
	}

	label := question + " (yes/no)"
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Invalid, err
		}

		answer, err := c.prompter.Prompt(label)
		if err != nil {
			return Invalid, err
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "yes", "y":
			return Confirmed, nil
		case "no", "n":
			return Declined, nil
		}

		c.logger.Warn("Invalid input %q. Please enter 'yes' or 'no'. (%d/%d)", answer, attempt, c.maxAttempts)
	}

	return Invalid, nil
}
