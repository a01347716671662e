package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"orderdash/pkg/models"
)

// ConfigWizard provides an interactive configuration setup
type ConfigWizard struct {
	asker       Asker
	currentStep int
	totalSteps  int
}

// WizardResult is the configuration to save plus the password, which the
// caller stores in the keyring rather than in config.yaml.
type WizardResult struct {
	Config   *models.Config
	Password string
}

// NewConfigWizard creates a new configuration wizard
func NewConfigWizard(asker Asker) *ConfigWizard {
	if asker == nil {
		asker = SurveyAsker{}
	}
	return &ConfigWizard{
		asker:       asker,
		currentStep: 1,
		totalSteps:  4,
	}
}

// Run executes the configuration wizard starting from base
func (w *ConfigWizard) Run(base *models.Config) (*WizardResult, error) {
	ShowHeader("orderdash - Configuration Setup")

	config := *base
	result := &WizardResult{Config: &config}

	if err := w.configureSourceStep(&config); err != nil {
		return nil, cancelled(err)
	}

	if config.Source.Kind == "snowflake" {
		password, err := w.configureSnowflakeStep(&config)
		if err != nil {
			return nil, cancelled(err)
		}
		result.Password = password
	} else {
		w.currentStep++
	}

	if err := w.configureCacheStep(&config); err != nil {
		return nil, cancelled(err)
	}

	if err := w.reviewConfiguration(&config); err != nil {
		return nil, cancelled(err)
	}
	return result, nil
}

type sourceAnswers struct {
	Kind string `survey:"kind"`
	Path string `survey:"path"`
}

func (w *ConfigWizard) configureSourceStep(config *models.Config) error {
	w.showProgress("Data Source")

	kind := config.Source.Kind
	if kind == "" {
		kind = "snowflake"
	}
	questions := []*survey.Question{
		{
			Name: "kind",
			Prompt: &survey.Select{
				Message: "Where do orders come from?",
				Options: []string{"snowflake", "csv", "xlsx"},
				Default: kind,
				Help:    "A Snowflake table or a static CSV/XLSX export",
			},
		},
		{
			Name: "path",
			Prompt: &survey.Input{
				Message: "Export path (csv/xlsx only):",
				Default: config.Source.Path,
				Help:    "Leave empty for Snowflake",
			},
		},
	}

	var answers sourceAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return err
	}
	if answers.Kind != "snowflake" && strings.TrimSpace(answers.Path) == "" {
		return fmt.Errorf("a %s source needs a path", answers.Kind)
	}

	config.Source.Kind = answers.Kind
	config.Source.Path = strings.TrimSpace(answers.Path)
	w.currentStep++
	return nil
}

type snowflakeAnswers struct {
	Account   string `survey:"account"`
	Username  string `survey:"username"`
	Password  string `survey:"password"`
	Warehouse string `survey:"warehouse"`
	Database  string `survey:"database"`
	Schema    string `survey:"schema"`
	Role      string `survey:"role"`
	Table     string `survey:"table"`
}

func (w *ConfigWizard) configureSnowflakeStep(config *models.Config) (string, error) {
	w.showProgress("Snowflake Connection")

	sf := config.Snowflake
	questions := []*survey.Question{
		{
			Name:     "account",
			Prompt:   &survey.Input{Message: "Snowflake Account:", Default: sf.Account, Help: "Account identifier, e.g. xy12345.us-east-1"},
			Validate: survey.Required,
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:", Default: sf.Username},
			Validate: survey.Required,
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password:", Help: "Stored in the system keyring, not in config.yaml"},
			Validate: survey.Required,
		},
		{
			Name:     "warehouse",
			Prompt:   &survey.Input{Message: "Warehouse:", Default: orDefault(sf.Warehouse, "COMPUTE_WH")},
			Validate: survey.Required,
		},
		{
			Name:   "database",
			Prompt: &survey.Input{Message: "Database:", Default: sf.Database},
		},
		{
			Name:   "schema",
			Prompt: &survey.Input{Message: "Schema:", Default: orDefault(sf.Schema, "PUBLIC")},
		},
		{
			Name:   "role",
			Prompt: &survey.Input{Message: "Role:", Default: sf.Role},
		},
		{
			Name:     "table",
			Prompt:   &survey.Input{Message: "Orders table:", Default: sf.Table},
			Validate: survey.Required,
		},
	}

	var answers snowflakeAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return "", err
	}

	config.Snowflake.Account = answers.Account
	config.Snowflake.Username = answers.Username
	config.Snowflake.Password = ""
	config.Snowflake.Warehouse = answers.Warehouse
	config.Snowflake.Database = answers.Database
	config.Snowflake.Schema = answers.Schema
	config.Snowflake.Role = answers.Role
	config.Snowflake.Table = answers.Table

	w.currentStep++
	return answers.Password, nil
}

type cacheAnswers struct {
	RefreshAt string `survey:"refresh_at"`
	Timezone  string `survey:"timezone"`
}

func (w *ConfigWizard) configureCacheStep(config *models.Config) error {
	w.showProgress("Cache")

	questions := []*survey.Question{
		{
			Name: "refresh_at",
			Prompt: &survey.Input{
				Message: "Daily refresh time (HH:MM):",
				Default: orDefault(config.Cache.RefreshAt, "08:10"),
				Help:    "The cached table is refetched once a day at this time",
			},
			Validate: survey.Required,
		},
		{
			Name: "timezone",
			Prompt: &survey.Input{
				Message: "Timezone:",
				Default: orDefault(config.Cache.Timezone, "America/New_York"),
			},
		},
	}

	var answers cacheAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return err
	}

	config.Cache.Enabled = true
	config.Cache.TTL = ""
	config.Cache.RefreshAt = answers.RefreshAt
	config.Cache.Timezone = answers.Timezone
	w.currentStep++
	return nil
}

func (w *ConfigWizard) reviewConfiguration(config *models.Config) error {
	w.showProgress("Review Configuration")

	PrintSection("Configuration Summary")

	PrintKeyValue("Source", config.Source.Kind)
	if config.Source.Path != "" {
		PrintKeyValue("Path", config.Source.Path)
	}
	if config.Source.Kind == "snowflake" {
		PrintKeyValue("Account", config.Snowflake.Account)
		PrintKeyValue("Username", config.Snowflake.Username)
		PrintKeyValue("Warehouse", config.Snowflake.Warehouse)
		PrintKeyValue("Table", config.Snowflake.Table)
	}
	PrintKeyValue("Refresh", config.Cache.RefreshAt+" "+config.Cache.Timezone)
	fmt.Fprintln(Output, strings.Repeat("─", 50))

	ok, err := Confirm(w.asker, "Save this configuration?", true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func (w *ConfigWizard) showProgress(step string) {
	fmt.Fprintf(Output, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress("►"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
