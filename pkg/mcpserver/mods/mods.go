// Package mods provides an MCP server exposing the mods of a mods
// directory as tools: listing, reading and changing settings, applying and
// checking.
package mods

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/document"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/reconcile"
	"github.com/flexmod/flexmod/internal/settings"
	"github.com/flexmod/flexmod/pkg/types"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

type tools struct {
	mods     *project.Service
	patterns []string
}

// NewServer creates a new MCP server serving the mods found by mods.
func NewServer(mods *project.Service, cfg *types.AppConfig) *server.MCPServer {
	if cfg == nil {
		cfg = &types.AppConfig{}
	}
	t := &tools{mods: mods, patterns: cfg.Patterns()}

	s := server.NewMCPServer(
		"flexmod",
		Version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewTool("list_mods",
		mcp.WithDescription("Lists the mods of the mods directory"),
	), t.listMods)

	s.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Returns the blocks and groups a mod declares"),
		modArg(),
	), t.getDocument)

	s.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Returns the selected values, defaults and presets of a mod"),
		modArg(),
	), t.getSettings)

	s.AddTool(mcp.NewTool("set_settings",
		mcp.WithDescription("Selects values for blocks of a mod. Either every value is stored or none is."),
		modArg(),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Block ids mapped to the values to select"),
		),
	), t.setSettings)

	s.AddTool(mcp.NewTool("apply",
		mcp.WithDescription("Patches the target files of a mod with its selected values"),
		modArg(),
		mcp.WithBoolean("dryRun",
			mcp.Description("Report diffs without writing any file"),
		),
	), t.apply)

	s.AddTool(mcp.NewTool("check",
		mcp.WithDescription("Reports missing, orphaned and dangling markers of a mod"),
		modArg(),
	), t.check)

	return s
}

func modArg() mcp.ToolOption {
	return mcp.WithString("mod",
		mcp.Required(),
		mcp.Description("Directory name of the mod"),
	)
}

func (t *tools) listMods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := t.mods.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (t *tools) getDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mod, errResult := t.mod(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	var doc *types.Document
	err := mod.Exclusive(func() error {
		var err error
		doc, _, err = document.Load(ctx, mod)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc)
}

func (t *tools) getSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mod, errResult := t.mod(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	var ps *types.PlayerSettings
	err := mod.Exclusive(func() error {
		doc, _, err := document.Load(ctx, mod)
		if err != nil {
			return err
		}
		ps, _, err = settings.LoadOrCreate(ctx, mod, doc)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ps)
}

func (t *tools) setSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mod, errResult := t.mod(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	raw, ok := request.GetArguments()["values"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("values must be an object"), nil
	}

	// Arguments arrive unordered; sort for a stable changed list.
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := types.NewValueMap()
	for _, id := range ids {
		values.Set(id, raw[id])
	}

	var ps *types.PlayerSettings
	err := mod.Exclusive(func() error {
		doc, _, err := document.Load(ctx, mod)
		if err != nil {
			return err
		}
		ps, _, err = settings.LoadOrCreate(ctx, mod, doc)
		if err != nil {
			return err
		}
		changed, err := settings.SetValues(ps, doc, values)
		if err != nil || len(changed) == 0 {
			return err
		}
		return settings.Save(ctx, mod, ps, "set", changed)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ps.FinalSettings)
}

func (t *tools) apply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mod, errResult := t.mod(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	var opts []apply.Option
	if request.GetBool("dryRun", false) {
		opts = append(opts, apply.WithDryRun())
	}
	report, err := apply.ApplyMod(ctx, mod, opts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (t *tools) check(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mod, errResult := t.mod(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	var doc *types.Document
	err := mod.Exclusive(func() error {
		var err error
		doc, _, err = document.Load(ctx, mod)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(reconcile.Run(doc, mod, t.patterns, nil))
}

// mod resolves the mod argument. A non-nil result is the error to return.
func (t *tools) mod(ctx context.Context, request mcp.CallToolRequest) (*project.Mod, *mcp.CallToolResult) {
	name, err := request.RequireString("mod")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	mod, err := t.mods.Get(ctx, name)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return mod, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
