package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/climbsec/vibecheck/internal/model"
	"github.com/climbsec/vibecheck/internal/render"
)

var rulesTool string

var rulesCmd = &cobra.Command{
	Use:   "rules <ruleId>",
	Short: "Resolve the documentation URL for a (tool, ruleId) pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := render.RuleURL(model.Tool(rulesTool), args[0])
		if url == "" {
			fmt.Println("no documentation URL resolved")
			return nil
		}
		fmt.Println(url)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVar(&rulesTool, "tool", "", "Tool the rule id belongs to")
	rulesCmd.MarkFlagRequired("tool")
}
