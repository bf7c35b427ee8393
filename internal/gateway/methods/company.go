package methods

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nextlevelbuilder/opencompany/internal/company"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/gateway"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// CompanyMethods serves company.create: seed the company documents and
// workspaces for a goal. Existing files are never overwritten, so the
// call is safe to repeat.
type CompanyMethods struct {
	cfg      *config.Config
	channels store.ChannelStore
}

// NewCompanyMethods creates the handler set.
func NewCompanyMethods(cfg *config.Config, channels store.ChannelStore) *CompanyMethods {
	return &CompanyMethods{cfg: cfg, channels: channels}
}

// Register binds the company lifecycle methods onto the router.
func (m *CompanyMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodCompanyCreate, m.handleCreate)
}

func (m *CompanyMethods) handleCreate(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Goal string `json:"goal"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	params.Goal = strings.TrimSpace(params.Goal)
	if params.Goal == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "goal is required"))
		return
	}

	res, err := company.Bootstrap(ctx, m.cfg, m.channels, params.Goal)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	files := res.Files
	if files == nil {
		files = []string{} // repeat runs create nothing; keep the array shape
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"goal":     params.Goal,
		"stateDir": res.StateDir,
		"files":    files,
	}))
}
