// Package flowdex provides a Go client for the flowdex template corpus API.
//
//	client, _ := flowdex.New("https://flowdex.internal")
//	page, _ := client.List(ctx, flowdex.ListParams{Category: "Sales", PageSize: 20})
//	tpl, _ := client.Get(ctx, "auto-sync-notion-to-slack")
//	answer, _ := client.Assist(ctx, "sync new CRM leads into a spreadsheet")
package flowdex
