package catalog

// Default returns the compiled-in catalog for the logistics console.
// Menu keys are hierarchical (group -> page); the other domains are flat.
func Default() *Catalog {
	c, err := New(defaultItems())
	if err != nil {
		// The compiled-in catalog is covered by tests; failing here
		// means the binary itself is broken.
		panic(err)
	}
	return c
}

func defaultItems() []Item {
	menu := []Item{
		{Key: "dashboard", Label: "Dashboard"},
		{Key: "dashboard.transport", Label: "Transport Overview", Parent: "dashboard"},
		{Key: "dashboard.kpi", Label: "KPI Board", Parent: "dashboard"},
		{Key: "orders", Label: "Orders"},
		{Key: "orders.list", Label: "Order List", Parent: "orders"},
		{Key: "orders.import", Label: "Order Import", Parent: "orders"},
		{Key: "dispatch", Label: "Dispatch"},
		{Key: "dispatch.board", Label: "Dispatch Board", Parent: "dispatch"},
		{Key: "dispatch.routes", Label: "Route Planning", Parent: "dispatch"},
		{Key: "fleet", Label: "Fleet"},
		{Key: "fleet.vehicles", Label: "Vehicles", Parent: "fleet"},
		{Key: "fleet.drivers", Label: "Drivers", Parent: "fleet"},
		{Key: "contracts", Label: "Contracts"},
		{Key: "contracts.list", Label: "Contract List", Parent: "contracts"},
		{Key: "contracts.rates", Label: "Rate Cards", Parent: "contracts"},
		{Key: "invoicing", Label: "Invoicing"},
		{Key: "invoicing.drafts", Label: "Draft Invoices", Parent: "invoicing"},
		{Key: "invoicing.approvals", Label: "Invoice Approvals", Parent: "invoicing"},
		{Key: "settings", Label: "Settings"},
		{Key: "settings.users", Label: "User Management", Parent: "settings"},
		{Key: "settings.roles", Label: "Role Management", Parent: "settings"},
		{Key: "settings.catalog", Label: "Permission Catalog", Parent: "settings"},
	}
	function := []Item{
		{Key: "orders.create", Label: "Create Orders"},
		{Key: "orders.cancel", Label: "Cancel Orders"},
		{Key: "dispatch.assign", Label: "Assign Vehicles"},
		{Key: "dispatch.reroute", Label: "Reroute Shipments"},
		{Key: "fleet.retire", Label: "Retire Vehicles"},
		{Key: "contracts.approve", Label: "Approve Contracts"},
		{Key: "invoices.issue", Label: "Issue Invoices"},
		{Key: "invoices.void", Label: "Void Invoices"},
		{Key: "users.invite", Label: "Invite Users"},
		{Key: "exports.download", Label: "Download Exports"},
	}
	project := []Item{
		{Key: "project.view_reports", Label: "View Project Reports"},
		{Key: "project.edit_schedule", Label: "Edit Project Schedule"},
		{Key: "project.manage_members", Label: "Manage Project Members"},
		{Key: "project.close", Label: "Close Projects"},
	}
	data := []Item{
		{Key: "data.own", Label: "Own Records"},
		{Key: "data.team", Label: "Team Records"},
		{Key: "data.tenant", Label: "All Tenant Records"},
		{Key: "data.financial", Label: "Financial Records"},
	}

	items := make([]Item, 0, len(menu)+len(function)+len(project)+len(data))
	for _, it := range menu {
		it.Domain = DomainMenu
		items = append(items, it)
	}
	for _, it := range function {
		it.Domain = DomainFunction
		items = append(items, it)
	}
	for _, it := range project {
		it.Domain = DomainProject
		items = append(items, it)
	}
	for _, it := range data {
		it.Domain = DomainData
		items = append(items, it)
	}
	return items
}
