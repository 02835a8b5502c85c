package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the bridge and whether the receiver is reachable"),
		),
		s.handleGetHealth,
	)

	// Receiver description
	s.mcpServer.AddTool(
		mcp.NewTool("get_receiver",
			mcp.WithDescription("Get the receiver description: identity, model and controllable channels including the available input choices"),
		),
		s.handleGetReceiver,
	)

	// Current state
	s.mcpServer.AddTool(
		mcp.NewTool("get_state",
			mcp.WithDescription("Get the last known receiver state (power, volume, mute, input, connectivity)"),
		),
		s.handleGetState,
	)

	// Power
	s.mcpServer.AddTool(
		mcp.NewTool("set_power",
			mcp.WithDescription("Turn the receiver on or off"),
			mcp.WithBoolean("on",
				mcp.Required(),
				mcp.Description("true to power on, false to power off (standby)"),
			),
		),
		s.handleSetPower,
	)

	// Volume
	s.mcpServer.AddTool(
		mcp.NewTool("set_volume",
			mcp.WithDescription("Set the receiver volume as a percentage"),
			mcp.WithNumber("volume",
				mcp.Required(),
				mcp.Description("Volume level 0-100"),
			),
		),
		s.handleSetVolume,
	)

	// Mute
	s.mcpServer.AddTool(
		mcp.NewTool("set_mute",
			mcp.WithDescription("Mute or unmute the receiver"),
			mcp.WithBoolean("mute",
				mcp.Required(),
				mcp.Description("true to mute, false to unmute"),
			),
		),
		s.handleSetMute,
	)

	// Input
	s.mcpServer.AddTool(
		mcp.NewTool("set_input",
			mcp.WithDescription("Switch the receiver input. Accepts an input code (e.g. \"23\") or a display label (e.g. \"HDMI 1\")"),
			mcp.WithString("input",
				mcp.Required(),
				mcp.Description("Input code or display label; use get_receiver to list choices"),
			),
		),
		s.handleSetInput,
	)

	// Combined state write
	s.mcpServer.AddTool(
		mcp.NewTool("set_state",
			mcp.WithDescription("Apply a partial receiver state in one call. Power is applied first so a combined power+input write works from standby."),
			mcp.WithObject("state",
				mcp.Required(),
				mcp.Description("State properties to set (e.g. {\"power\": true, \"volume\": 35, \"input\": \"HDMI 1\"})"),
			),
		),
		s.handleSetState,
	)

	// Probe
	s.mcpServer.AddTool(
		mcp.NewTool("probe_input",
			mcp.WithDescription("Ask the receiver which input is currently selected and return the resolved code"),
		),
		s.handleProbeInput,
	)
}
