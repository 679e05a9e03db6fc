// Package cliprompt wraps survey/v2 behind a small Prompter interface so
// the submit pipeline and CLI commands can be exercised without a real
// terminal.
package cliprompt

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	surveyTerminal "github.com/AlecAivazis/survey/v2/terminal"

	"stacker.dev/stacker/internal/stkerrors"
)

// Prompter is the interactive-confirmation capability the submit pipeline
// depends on for its empty-branch gate: skip branches with no diff against
// their parent, after confirming with the user.
type Prompter interface {
	Confirm(message string, defaultYes bool) (bool, error)
}

// SurveyPrompter is the real terminal-backed Prompter.
type SurveyPrompter struct{}

// Confirm asks the user a yes/no question, translating a Ctrl-C interrupt
// into stkerrors.ErrKilled so callers can treat it like any other
// abort path.
func (SurveyPrompter) Confirm(message string, defaultYes bool) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{Message: message, Default: defaultYes}
	if err := survey.AskOne(prompt, &answer); err != nil {
		if errors.Is(err, surveyTerminal.InterruptErr) {
			return false, stkerrors.ErrKilled
		}
		return false, err
	}
	return answer, nil
}

// NonInteractivePrompter answers every confirmation with a fixed value,
// for `--force`-style flags and for tests.
type NonInteractivePrompter struct {
	Answer bool
}

func (p NonInteractivePrompter) Confirm(message string, defaultYes bool) (bool, error) {
	return p.Answer, nil
}
