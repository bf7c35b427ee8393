package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Company lifecycle",
	}
	cmd.AddCommand(companyCreateCmd())
	return cmd
}

func companyCreateCmd() *cobra.Command {
	var goal string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Seed the founding documents and the investor channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(goal) == "" {
				if !stdinIsTTY() {
					return fmt.Errorf("--goal is required when stdin is not a terminal")
				}
				form := huh.NewForm(huh.NewGroup(
					huh.NewText().
						Title("Company goal").
						Description("One paragraph: what should this company achieve?").
						Value(&goal),
				))
				if err := form.Run(); err != nil {
					return err
				}
			}
			goal = strings.TrimSpace(goal)
			if goal == "" {
				return fmt.Errorf("goal must not be empty")
			}

			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			var out struct {
				Goal     string   `json:"goal"`
				StateDir string   `json:"stateDir"`
				Files    []string `json:"files"`
			}
			if err := client.Call(protocol.MethodCompanyCreate, map[string]interface{}{
				"goal": goal,
			}, &out); err != nil {
				return err
			}

			fmt.Printf("Company created under %s\n", out.StateDir)
			if len(out.Files) > 0 {
				fmt.Println("Seeded:")
				for _, f := range out.Files {
					fmt.Printf("  %s\n", f)
				}
			} else {
				fmt.Println("All founding documents already present.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "company goal (prompted interactively when omitted)")
	return cmd
}

func stdinIsTTY() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
