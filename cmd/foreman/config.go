package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpratt/foreman/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  showConfig,
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Printf("project config: %s\n", p)
	}
	fmt.Println()

	anthropicKey, _ := config.GetAnthropicKey(cfg)
	openaiKey, _ := config.GetOpenAIKey(cfg)
	fmt.Printf("anthropic key:  %s\n", config.MaskAPIKey(anthropicKey))
	fmt.Printf("anthropic model: %s", cfg.Anthropic.Model)
	if cfg.Anthropic.UseBedrock {
		fmt.Printf(" (via Bedrock, region %s)", cfg.Anthropic.AWSRegion)
	}
	fmt.Println()
	fmt.Printf("openai key:     %s\n", config.MaskAPIKey(openaiKey))
	fmt.Printf("openai model:   %s\n", cfg.OpenAI.Model)
	fmt.Println()

	fmt.Printf("default worker:  %s\n", cfg.Defaults.Worker)
	fmt.Printf("max concurrency: %d\n", cfg.Defaults.MaxConcurrency)
	fmt.Printf("max attempts:    %d\n", cfg.Defaults.MaxAttempts)
	fmt.Printf("task timeout:    %s\n", cfg.Defaults.TaskTimeout)
	return nil
}
