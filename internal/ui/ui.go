package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"orderdash/pkg/errors"
	"orderdash/pkg/models"
)

// UI represents the main UI interface
type UI struct {
	Verbose bool
	Quiet   bool
	spinner *Spinner
}

// NewUI creates a new UI instance
func NewUI(verbose, quiet bool) *UI {
	return &UI{
		Verbose: verbose,
		Quiet:   quiet,
	}
}

// Printf prints formatted output if not in quiet mode
func (u *UI) Printf(format string, args ...interface{}) {
	if !u.Quiet {
		fmt.Fprintf(Output, format, args...)
	}
}

// VerbosePrintf prints formatted output only in verbose mode
func (u *UI) VerbosePrintf(format string, args ...interface{}) {
	if u.Verbose && !u.Quiet {
		fmt.Fprintf(Output, format, args...)
	}
}

// StartProgress starts a progress indicator with a message
func (u *UI) StartProgress(message string) {
	if !u.Quiet && supportsColor {
		u.spinner = NewSpinner(message)
		u.spinner.Start()
	}
}

// StopProgress stops the progress indicator
func (u *UI) StopProgress(success bool, message string) {
	if u.spinner != nil {
		u.spinner.Stop(success, message)
		u.spinner = nil
	}
}

// Info prints an information message
func (u *UI) Info(message string) {
	if !u.Quiet {
		ShowInfo(message)
	}
}

// Success prints a success message
func (u *UI) Success(message string) {
	if !u.Quiet {
		ShowSuccess(message)
	}
}

// Warning prints a warning message
func (u *UI) Warning(message string) {
	if !u.Quiet {
		ShowWarning(message)
	}
}

// Asker abstracts survey so prompts can be scripted in tests
type Asker interface {
	Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error
	AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
}

// SurveyAsker asks on the terminal
type SurveyAsker struct{}

func (SurveyAsker) Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error {
	return survey.Ask(qs, response, opts...)
}

func (SurveyAsker) AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	return survey.AskOne(p, response, opts...)
}

// ErrCancelled is returned when the user interrupts a prompt
var ErrCancelled = errors.New(errors.ErrCodeInvalidInput, "Cancelled by user")

func cancelled(err error) error {
	if err == terminal.InterruptErr {
		return ErrCancelled
	}
	return err
}

type filterAnswers struct {
	Start      string   `survey:"start"`
	End        string   `survey:"end"`
	Warehouses []string `survey:"warehouses"`
}

func validDate(ans interface{}) error {
	s, _ := ans.(string)
	if _, err := models.ParseDate(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("enter a date as YYYY-MM-DD")
	}
	return nil
}

// PromptFilters asks for a date range and a warehouse selection, offering
// current as the defaults.
func PromptFilters(asker Asker, current models.FilterSpec, available []string) (models.FilterSpec, error) {
	questions := []*survey.Question{
		{
			Name: "start",
			Prompt: &survey.Input{
				Message: "Start date:",
				Default: current.StartDate.Format(models.DateLayout),
				Help:    "First order date to include (YYYY-MM-DD)",
			},
			Validate: validDate,
		},
		{
			Name: "end",
			Prompt: &survey.Input{
				Message: "End date:",
				Default: current.EndDate.Format(models.DateLayout),
				Help:    "Last order date to include (YYYY-MM-DD)",
			},
			Validate: validDate,
		},
		{
			Name: "warehouses",
			Prompt: &survey.MultiSelect{
				Message:  "Warehouses:",
				Options:  available,
				Default:  current.Warehouses,
				PageSize: 10,
			},
		},
	}

	var answers filterAnswers
	if err := asker.Ask(questions, &answers); err != nil {
		return models.FilterSpec{}, cancelled(err)
	}

	start, err := models.ParseDate(strings.TrimSpace(answers.Start))
	if err != nil {
		return models.FilterSpec{}, errors.ValidationError("start", answers.Start, "not a date")
	}
	end, err := models.ParseDate(strings.TrimSpace(answers.End))
	if err != nil {
		return models.FilterSpec{}, errors.ValidationError("end", answers.End, "not a date")
	}
	return models.NewFilterSpec(start, end, answers.Warehouses), nil
}

// Confirm shows a yes/no prompt
func Confirm(asker Asker, message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := asker.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &result)
	return result, cancelled(err)
}

// Password displays a password input prompt
func Password(asker Asker, message, help string) (string, error) {
	var result string
	err := asker.AskOne(&survey.Password{Message: message, Help: help}, &result, survey.WithValidator(survey.Required))
	return result, cancelled(err)
}
