package company

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/internal/store/sqlite"
)

func newTestChannelStore(t *testing.T) store.ChannelStore {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "channels.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(db, sqlite.SetChannels); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlite.NewSQLiteChannelStore(db, nil)
}

func testConfig(agents ...string) *config.Config {
	cfg := config.Default()
	cfg.Agents = nil
	for _, id := range agents {
		cfg.Agents = append(cfg.Agents, config.AgentConfig{ID: id})
	}
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestBootstrapSeedsCompanyState(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENCLAW_PROFILE", "")
	channels := newTestChannelStore(t)
	ctx := context.Background()

	goal := "Build a profitable weekly AI newsletter"
	res, err := Bootstrap(ctx, testConfig("main", "alice"), channels, goal)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	charter := readFile(t, filepath.Join(config.CompanyDir(), CharterFile))
	if !strings.Contains(charter, goal) {
		t.Errorf("charter does not carry the goal verbatim:\n%s", charter)
	}
	if strings.Contains(charter, "{{GOAL}}") {
		t.Error("charter still contains the goal placeholder")
	}

	roster := readFile(t, filepath.Join(config.CompanyDir(), RosterFile))
	if !strings.Contains(roster, "main") {
		t.Errorf("roster missing the CEO row:\n%s", roster)
	}

	ceoDir := config.AgentWorkspaceDir(config.DefaultAgentID)
	for _, name := range workspaceFiles {
		if _, err := os.Stat(filepath.Join(ceoDir, name)); err != nil {
			t.Errorf("CEO workspace missing %s: %v", name, err)
		}
	}
	today := time.Now().Format("2006-01-02")
	daily := readFile(t, filepath.Join(ceoDir, "memory", today+".md"))
	if !strings.Contains(daily, goal) {
		t.Errorf("daily memory note missing the goal:\n%s", daily)
	}

	if fi, err := os.Stat(config.AgentWorkspaceDir("alice")); err != nil || !fi.IsDir() {
		t.Errorf("workspace for alice not created: %v", err)
	}
	if fi, err := os.Stat(config.KnowledgeBaseDir()); err != nil || !fi.IsDir() {
		t.Errorf("knowledge base dir not created: %v", err)
	}

	ch, err := channels.GetChannel(ctx, InvestorChannelName)
	if err != nil {
		t.Fatalf("investor-relations channel missing: %v", err)
	}
	members := make(map[string]bool)
	for _, m := range ch.Members {
		members[m.MemberID] = true
	}
	if !members[config.DefaultAgentID] || !members[InvestorMemberID] {
		t.Errorf("investor-relations members = %v, want investor and main", ch.Members)
	}

	if res.StateDir != config.StateDir() {
		t.Errorf("StateDir = %q, want %q", res.StateDir, config.StateDir())
	}
	found := false
	for _, f := range res.Files {
		if f == filepath.Join("company", CharterFile) {
			found = true
		}
	}
	if !found {
		t.Errorf("Files = %v, want to include company/%s", res.Files, CharterFile)
	}
}

func TestBootstrapNeverOverwrites(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENCLAW_PROFILE", "")
	channels := newTestChannelStore(t)
	ctx := context.Background()

	if _, err := Bootstrap(ctx, testConfig("main"), channels, "first goal"); err != nil {
		t.Fatalf("first Bootstrap: %v", err)
	}

	// A human (or the CEO) edits the charter.
	charterPath := filepath.Join(config.CompanyDir(), CharterFile)
	if err := os.WriteFile(charterPath, []byte("hand-edited charter"), 0o644); err != nil {
		t.Fatalf("edit charter: %v", err)
	}

	res, err := Bootstrap(ctx, testConfig("main"), channels, "second goal")
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	for _, f := range res.Files {
		if strings.HasSuffix(f, CharterFile) {
			t.Errorf("second run reported the charter as created: %v", res.Files)
		}
	}
	if got := readFile(t, charterPath); got != "hand-edited charter" {
		t.Errorf("charter was overwritten: %q", got)
	}
}

func TestEnsureInvestorChannelRepairsMembership(t *testing.T) {
	channels := newTestChannelStore(t)
	ctx := context.Background()

	// Channel exists but the investor was removed.
	if _, err := channels.CreateChannel(ctx, store.CreateChannelParams{
		Name:      InvestorChannelName,
		CreatedBy: config.DefaultAgentID,
	}); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	if err := EnsureInvestorChannel(ctx, channels); err != nil {
		t.Fatalf("EnsureInvestorChannel: %v", err)
	}

	ch, err := channels.GetChannel(ctx, InvestorChannelName)
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	members := make(map[string]bool)
	for _, m := range ch.Members {
		members[m.MemberID] = true
	}
	if !members[InvestorMemberID] {
		t.Error("investor not re-added to existing channel")
	}

	// Idempotent on a healthy channel.
	if err := EnsureInvestorChannel(ctx, channels); err != nil {
		t.Fatalf("second EnsureInvestorChannel: %v", err)
	}
}
