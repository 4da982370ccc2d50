package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the bourse MCP server.

const editionDescription = "Edition ID (defaults to the register's configured edition)"

// lookupTool returns the bourse_lookup tool definition.
func lookupTool() mcp.Tool {
	return mcp.NewTool("bourse_lookup",
		mcp.WithDescription("Look up an article in the register's local catalog by barcode. Works offline. Returns nothing found when the article is sold or unknown."),
		mcp.WithString("barcode",
			mcp.Required(),
			mcp.Description("Barcode printed on the article label"),
		),
	)
}

// pendingTool returns the bourse_pending tool definition.
func pendingTool() mcp.Tool {
	return mcp.NewTool("bourse_pending",
		mcp.WithDescription("List sales recorded offline that are waiting to be uploaded, oldest first, with the queue capacity."),
		mcp.WithString("edition",
			mcp.Description(editionDescription),
		),
	)
}

// conflictsTool returns the bourse_conflicts tool definition.
func conflictsTool() mcp.Tool {
	return mcp.NewTool("bourse_conflicts",
		mcp.WithDescription("List queued sales the sale-event server rejected, with the server's reason."),
		mcp.WithString("edition",
			mcp.Description(editionDescription),
		),
	)
}

// statusTool returns the bourse_status tool definition.
func statusTool() mcp.Tool {
	return mcp.NewTool("bourse_status",
		mcp.WithDescription("Get register status: cached catalog size, pending and conflicting sales, last refresh and last sync."),
	)
}

// syncTool returns the bourse_sync tool definition.
func syncTool() mcp.Tool {
	return mcp.NewTool("bourse_sync",
		mcp.WithDescription("Upload all pending sales to the sale-event server in one batch. Confirmed sales leave the queue; rejected ones become conflicts."),
		mcp.WithString("edition",
			mcp.Description(editionDescription),
		),
	)
}
