// Package company seeds and watches the on-disk company state: the charter
// and roster documents, the knowledge base, per-agent workspaces, and the
// investor-relations channel.
package company

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/store"
)

//go:embed templates/*.md
var templateFS embed.FS

// Company documents under <stateDir>/company/.
const (
	CharterFile = "CHARTER.md"
	BudgetFile  = "BUDGET.md"
	RosterFile  = "ROSTER.md"
)

// workspaceFiles are seeded into the CEO workspace, in this order.
var workspaceFiles = []string{
	"SOUL.md",
	"IDENTITY.md",
	"MEMORY.md",
	"HEARTBEAT.md",
	"TOOLS.md",
	"AGENTS.md",
}

// The investor-relations channel always exists and carries the founder
// updates for the (human) investor.
const (
	InvestorChannelName = "investor-relations"
	InvestorMemberID    = "investor"
)

// Result reports what Bootstrap created. Files are state-dir relative.
type Result struct {
	Goal     string   `json:"goal"`
	StateDir string   `json:"stateDir"`
	Files    []string `json:"files"`
}

func (r *Result) addFile(stateDir, path string) {
	if rel, err := filepath.Rel(stateDir, path); err == nil {
		r.Files = append(r.Files, rel)
		return
	}
	r.Files = append(r.Files, path)
}

// Bootstrap seeds company state: the charter (carrying goal verbatim),
// budget and roster documents, the knowledge base, the CEO workspace with
// a dated memory file, one workspace per roster agent, and the
// investor-relations channel. Existing files are never overwritten, so
// re-running on a live company only fills gaps.
func Bootstrap(ctx context.Context, cfg *config.Config, channels store.ChannelStore, goal string) (*Result, error) {
	stateDir := config.StateDir()
	res := &Result{Goal: goal, StateDir: stateDir}
	log := slog.Default().With("component", "company")

	for _, dir := range []string{config.CompanyDir(), config.KnowledgeBaseDir(), config.WorkspacesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	companyDir := config.CompanyDir()
	for _, name := range []string{CharterFile, BudgetFile, RosterFile} {
		created, err := seedTemplate(companyDir, name, goal)
		if err != nil {
			return nil, err
		}
		if created {
			res.addFile(stateDir, filepath.Join(companyDir, name))
		}
	}

	// CEO workspace plus a dated memory note.
	ceoDir := config.AgentWorkspaceDir(config.DefaultAgentID)
	if err := os.MkdirAll(filepath.Join(ceoDir, "memory"), 0o755); err != nil {
		return nil, fmt.Errorf("create CEO workspace: %w", err)
	}
	for _, name := range workspaceFiles {
		created, err := seedTemplate(ceoDir, name, goal)
		if err != nil {
			return nil, err
		}
		if created {
			res.addFile(stateDir, filepath.Join(ceoDir, name))
		}
	}

	today := time.Now().Format("2006-01-02")
	dailyPath := filepath.Join(ceoDir, "memory", today+".md")
	dailyNote := fmt.Sprintf("# %s\n\nCompany bootstrapped. Goal:\n\n%s\n", today, goal)
	created, err := seedFile(dailyPath, []byte(dailyNote))
	if err != nil {
		return nil, err
	}
	if created {
		res.addFile(stateDir, dailyPath)
	}

	// One workspace directory per non-CEO roster agent.
	for _, id := range cfg.AgentIDs() {
		if id == config.DefaultAgentID {
			continue
		}
		if err := os.MkdirAll(config.AgentWorkspaceDir(id), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace for %s: %w", id, err)
		}
	}

	if err := EnsureInvestorChannel(ctx, channels); err != nil {
		return nil, err
	}

	log.Info("company bootstrapped", "stateDir", stateDir, "created", len(res.Files))
	return res, nil
}

// EnsureInvestorChannel guarantees the investor-relations channel exists
// with the investor and the CEO as members. Also run at serve startup.
func EnsureInvestorChannel(ctx context.Context, channels store.ChannelStore) error {
	ch, err := channels.ResolveChannel(ctx, InvestorChannelName)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", InvestorChannelName, err)
	}
	if ch == nil {
		_, err := channels.CreateChannel(ctx, store.CreateChannelParams{
			Name:        InvestorChannelName,
			Type:        store.ChannelTypePrivate,
			Description: "Founder updates for the investor.",
			CreatedBy:   config.DefaultAgentID,
			Members:     []string{config.DefaultAgentID, InvestorMemberID},
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("create %s: %w", InvestorChannelName, err)
		}
		return nil
	}
	for _, id := range []string{config.DefaultAgentID, InvestorMemberID} {
		if _, err := channels.AddMember(ctx, ch.ID, id, ""); err != nil {
			return fmt.Errorf("add %s to %s: %w", id, InvestorChannelName, err)
		}
	}
	return nil
}

func seedTemplate(dir, name, goal string) (bool, error) {
	content, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return false, fmt.Errorf("read template %s: %w", name, err)
	}
	rendered := strings.ReplaceAll(string(content), "{{GOAL}}", goal)
	return seedFile(filepath.Join(dir, name), []byte(rendered))
}

// seedFile creates path with content unless it already exists.
func seedFile(path string, content []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(path)
		return false, err
	}
	return true, nil
}
