package cli

import (
	"os"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/GenieGo/models"
)

// prompter asks the user for decisions the REPL cannot infer.
type prompter interface {
	ConfirmClear() (bool, error)
	SelectPeriod(def models.Period) (models.Period, error)
}

type surveyPrompter struct{}

func (surveyPrompter) ConfirmClear() (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: "Clear the chat history?",
		Help:    "Recent symbols are kept.",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

func (surveyPrompter) SelectPeriod(def models.Period) (models.Period, error) {
	options := make([]string, len(models.DisplayPeriods))
	for i, p := range models.DisplayPeriods {
		options[i] = string(p)
	}
	var choice string
	prompt := &survey.Select{
		Message: "Time range:",
		Options: options,
		Default: string(def),
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return models.ParsePeriod(choice)
}

// stdinIsTerminal reports whether prompts can be shown.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func defaultPrompter() prompter {
	if stdinIsTerminal() {
		return surveyPrompter{}
	}
	return nil
}
