package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect company tasks",
	}
	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksSummaryCmd())
	return cmd
}

func tasksListCmd() *cobra.Command {
	var (
		agentID string
		status  string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			params := map[string]interface{}{}
			if agentID != "" {
				params["agentId"] = agentID
			}
			if status != "" {
				params["status"] = status
			}
			if cmd.Flags().Changed("limit") {
				params["limit"] = limit
			}
			var out struct {
				Tasks []store.Task `json:"tasks"`
			}
			if err := client.Call(protocol.MethodTasksList, params, &out); err != nil {
				return err
			}

			if len(out.Tasks) == 0 {
				fmt.Println("No tasks.")
				return nil
			}
			for _, t := range out.Tasks {
				age := time.Since(time.UnixMilli(t.UpdatedAt)).Round(time.Minute)
				fmt.Printf("%-10s %-12s %-8s %-12s %s\n",
					shortID(t.ID), t.Status, t.Priority, t.AgentID,
					runewidth.Truncate(t.Objective, 60, "…"))
				fmt.Printf("           updated %s ago\n", age)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "only tasks assigned to this agent")
	cmd.Flags().StringVar(&status, "status", "", "only tasks in this status")
	cmd.Flags().IntVar(&limit, "limit", 200, "max tasks to fetch")
	return cmd
}

func tasksSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals per status and per agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialGateway()
			if err != nil {
				return err
			}
			defer client.Close()

			var out struct {
				Summary store.TaskSummary        `json:"summary"`
				Agents  []store.AgentTaskSummary `json:"agents"`
			}
			if err := client.Call(protocol.MethodTasksSummary, map[string]interface{}{}, &out); err != nil {
				return err
			}

			fmt.Printf("Tasks: %d total, %d stale\n", out.Summary.Total, out.Summary.Stale)
			for _, status := range sortedKeys(out.Summary.ByStatus) {
				fmt.Printf("  %-12s %d\n", status, out.Summary.ByStatus[status])
			}

			if len(out.Agents) == 0 {
				return nil
			}
			fmt.Println("\nBy agent:")
			for _, a := range out.Agents {
				line := fmt.Sprintf("  %-12s %d", a.AgentID, a.Total)
				for _, status := range sortedKeys(a.ByStatus) {
					line += fmt.Sprintf("  %s=%d", status, a.ByStatus[status])
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
