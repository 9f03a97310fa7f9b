package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initAnswers collects the interactive wizard's results.
type initAnswers struct {
	Provider   string
	Model      string
	APIKeyEnv  string
	BaseURL    string
	Bind       string
	AdminToken string
	Audit      bool
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "advisor.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers, err := runInitWizard()
			if err != nil {
				return err
			}

			raw, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, raw, 0o600); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", path)
			fmt.Printf("Remember to export %s before starting.\n", answers.APIKeyEnv)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func runInitWizard() (initAnswers, error) {
	answers := initAnswers{
		Provider:  "provider.gemini",
		Model:     "gemini-2.0-flash",
		APIKeyEnv: "GEMINI_API_KEY",
		Bind:      "127.0.0.1:8080",
		Audit:     true,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("LLM provider").
				Options(
					huh.NewOption("Google Gemini", "provider.gemini"),
					huh.NewOption("OpenAI-compatible API", "provider.openai_compatible"),
				).
				Value(&answers.Provider),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Model").
				Value(&answers.Model),
			huh.NewInput().
				Title("Environment variable holding the API key").
				Value(&answers.APIKeyEnv),
			huh.NewInput().
				Title("Listen address").
				Value(&answers.Bind),
			huh.NewInput().
				Title("Admin bearer token (empty disables admin endpoints)").
				Value(&answers.AdminToken),
			huh.NewConfirm().
				Title("Persist guard audit events to SQLite?").
				Value(&answers.Audit),
		),
	)
	if err := form.Run(); err != nil {
		return initAnswers{}, err
	}

	if answers.Provider == "provider.openai_compatible" {
		answers.BaseURL = "https://api.openai.com/v1"
		extra := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Value(&answers.BaseURL),
		))
		if err := extra.Run(); err != nil {
			return initAnswers{}, err
		}
	}

	return answers, nil
}

// renderConfig turns wizard answers into a YAML document the config loader
// accepts. API keys stay in the environment; only the variable name is
// written to disk.
func renderConfig(a initAnswers) ([]byte, error) {
	providerCfg := map[string]any{
		"model":       a.Model,
		"api_key_env": a.APIKeyEnv,
	}
	if a.BaseURL != "" {
		providerCfg["base_url"] = a.BaseURL
	}

	gatewayCfg := map[string]any{
		"bind": a.Bind,
	}
	if a.AdminToken != "" {
		gatewayCfg["auth"] = map[string]any{
			"bearer_token": a.AdminToken,
		}
	}

	modules := map[string]any{
		a.Provider: providerCfg,
		"chat.advisor": map[string]any{
			"providers": []string{a.Provider},
		},
		"gateway.http": gatewayCfg,
	}
	if a.Audit {
		modules["audit.sqlite"] = map[string]any{}
	}

	return yaml.Marshal(map[string]any{
		"version": "1",
		"modules": modules,
	})
}
