package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/cortexctl/internal/symbols"
	"github.com/dyike/cortexctl/pkg/models"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

// formPrompter asks for the analysis form fields one at a time.
type formPrompter interface {
	Ticker(def string) (string, error)
	Date(def string) (string, error)
	Analysts(saved []string) ([]string, error)
	Depth(def int) (int, error)
	Provider(providers []models.Provider, def string) (models.Provider, error)
	Models(cat *models.ModelCatalog, defQuick, defDeep string) (string, string, error)
	Notification(defWebhook string, defNotify bool) (string, bool, error)
}

// surveyPrompter asks on the terminal.
type surveyPrompter struct{}

func (surveyPrompter) Ticker(def string) (string, error)         { return PromptForTicker(def) }
func (surveyPrompter) Date(def string) (string, error)           { return PromptForDate(def) }
func (surveyPrompter) Analysts(saved []string) ([]string, error) { return PromptForAnalysts(saved) }
func (surveyPrompter) Depth(def int) (int, error)                { return PromptForDepth(def) }

func (surveyPrompter) Provider(providers []models.Provider, def string) (models.Provider, error) {
	return PromptForProvider(providers, def)
}

func (surveyPrompter) Models(cat *models.ModelCatalog, defQuick, defDeep string) (string, string, error) {
	return PromptForModels(cat, defQuick, defDeep)
}

func (surveyPrompter) Notification(defWebhook string, defNotify bool) (string, bool, error) {
	return PromptForNotification(defWebhook, defNotify)
}

// PromptForTicker asks for a ticker with suggestions from the bundled
// symbol list.
func PromptForTicker(def string) (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: "Ticker symbol (e.g., AAPL, MSFT, SAP.DE):",
		Help:    "Type a symbol or company name; press Tab for suggestions.",
		Default: def,
		Suggest: symbols.Suggest,
	}

	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		str := symbols.TickerFromSuggestion(val.(string))
		if str == "" {
			return fmt.Errorf("ticker symbol cannot be empty")
		}
		if len(str) > 12 {
			return fmt.Errorf("ticker symbol too long (max 12 characters)")
		}
		if !tickerPattern.MatchString(str) {
			return fmt.Errorf("invalid ticker format (use letters, numbers, dots, and hyphens only)")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return symbols.TickerFromSuggestion(answer), nil
}

// PromptForDate asks for the analysis date; def is pre-filled.
func PromptForDate(def string) (string, error) {
	if def == "" {
		def = time.Now().Format(dateLayout)
	}
	var answer string
	prompt := &survey.Input{
		Message: "Analysis date (YYYY-MM-DD):",
		Default: def,
	}
	err := survey.AskOne(prompt, &answer, survey.WithValidator(func(val interface{}) error {
		if _, err := time.Parse(dateLayout, strings.TrimSpace(val.(string))); err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// PromptForAnalysts lets the user pick the analyst team. Previously used
// analysts are pre-selected; with none saved every analyst is.
func PromptForAnalysts(saved []string) ([]string, error) {
	options := make([]string, 0, len(models.AllAnalysts))
	byName := make(map[string]models.AnalystType, len(models.AllAnalysts))
	for _, a := range models.AllAnalysts {
		options = append(options, a.DisplayName())
		byName[a.DisplayName()] = a
	}

	defaults := make([]string, 0, len(saved))
	for _, s := range saved {
		name := models.AnalystType(s).DisplayName()
		if _, ok := byName[name]; ok {
			defaults = append(defaults, name)
		}
	}
	if len(defaults) == 0 {
		defaults = options
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select analyst team members:",
		Options: options,
		Default: defaults,
		Help:    "Use space to select, enter to confirm.",
	}
	err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1)))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(selected))
	for _, name := range selected {
		out = append(out, string(byName[name]))
	}
	return out, nil
}

// PromptForDepth asks for the number of research rounds.
func PromptForDepth(def int) (int, error) {
	options := make([]string, 0, len(depthOptions))
	defOption := ""
	for _, o := range depthOptions {
		label := fmt.Sprintf("%s (%d)", o.Label, o.Rounds)
		options = append(options, label)
		if o.Rounds == def {
			defOption = label
		}
	}
	if defOption == "" {
		defOption = options[0]
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select research depth:",
		Options: options,
		Default: defOption,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return 0, err
	}
	for i, o := range options {
		if o == selected {
			return depthOptions[i].Rounds, nil
		}
	}
	return defaultDepth, nil
}

// PromptForProvider offers the providers the backend reports.
func PromptForProvider(providers []models.Provider, def string) (models.Provider, error) {
	if len(providers) == 0 {
		return models.Provider{}, fmt.Errorf("backend reported no providers")
	}
	options := make([]string, 0, len(providers))
	defOption := ""
	for _, p := range providers {
		label := fmt.Sprintf("%s - %s", p.Name, p.URL)
		options = append(options, label)
		if strings.EqualFold(p.Name, def) {
			defOption = label
		}
	}
	if defOption == "" {
		defOption = options[0]
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select LLM provider:",
		Options: options,
		Default: defOption,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return models.Provider{}, err
	}
	for i, o := range options {
		if o == selected {
			return providers[i], nil
		}
	}
	return providers[0], nil
}

// PromptForModels picks the quick and deep model. When the backend lists no
// models for the provider, free text is accepted.
func PromptForModels(cat *models.ModelCatalog, defQuick, defDeep string) (string, string, error) {
	var quick, deep []models.ModelOption
	if cat != nil {
		quick, deep = cat.Quick, cat.Deep
	}
	q, err := promptModel("Select quick-thinking model:", quick, defQuick)
	if err != nil {
		return "", "", err
	}
	d, err := promptModel("Select deep-thinking model:", deep, defDeep)
	if err != nil {
		return "", "", err
	}
	return q, d, nil
}

func promptModel(message string, opts []models.ModelOption, def string) (string, error) {
	var answer string
	if len(opts) == 0 {
		prompt := &survey.Input{Message: message + " (model id)", Default: def}
		err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required))
		return strings.TrimSpace(answer), err
	}

	options := make([]string, 0, len(opts))
	defOption := ""
	for _, o := range opts {
		label := fmt.Sprintf("%s (%s)", o.Name, o.Value)
		options = append(options, label)
		if o.Value == def {
			defOption = label
		}
	}
	if defOption == "" {
		defOption = options[0]
	}
	prompt := &survey.Select{Message: message, Options: options, Default: defOption}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	for i, o := range options {
		if o == answer {
			return opts[i].Value, nil
		}
	}
	return opts[0].Value, nil
}

// PromptForNotification asks where to post the finished analysis. An empty
// webhook turns notifications off.
func PromptForNotification(defWebhook string, defNotify bool) (string, bool, error) {
	var webhook string
	prompt := &survey.Input{
		Message: "Discord webhook URL (optional):",
		Help:    "Leave empty to skip notifications.",
		Default: defWebhook,
	}
	err := survey.AskOne(prompt, &webhook, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if str != "" && !strings.HasPrefix(str, "https://") {
			return fmt.Errorf("webhook URL must start with https://")
		}
		return nil
	}))
	if err != nil {
		return "", false, err
	}
	webhook = strings.TrimSpace(webhook)
	if webhook == "" {
		return "", false, nil
	}

	notify := defNotify
	if err := survey.AskOne(&survey.Confirm{
		Message: "Send a Discord notification when the analysis finishes?",
		Default: defNotify,
	}, &notify); err != nil {
		return "", false, err
	}
	return webhook, notify, nil
}

// PromptForConfirmation shows the request summary and asks to proceed.
func PromptForConfirmation(req models.AnalysisRequest) (bool, error) {
	analysts := make([]string, 0, len(req.Analysts))
	for _, a := range req.Analysts {
		analysts = append(analysts, a.DisplayName())
	}
	fmt.Printf(`
Analysis configuration
  Ticker:       %s
  Date:         %s
  Analysts:     %s
  Depth:        %d
  Provider:     %s
  Quick model:  %s
  Deep model:   %s

`, req.Ticker, req.Date, strings.Join(analysts, ", "), req.ResearchDepth,
		req.LLMProvider, req.QuickThinkModel, req.DeepThinkModel)

	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Proceed with this analysis?",
		Default: true,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}

// PromptForRestartOrExit is asked after each analysis in the interactive
// loop.
func PromptForRestartOrExit() (bool, error) {
	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do next?",
		Options: []string{
			"Start a new analysis",
			"Exit",
		},
		Default: "Start a new analysis",
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return false, err
	}
	return choice == "Start a new analysis", nil
}
