package shared

// Report permissions.
const (
	PermSalesView        = "sales.view"
	PermInventoryView    = "inventory.view"
	PermCRMView          = "crm.view"
	PermExceptionsView   = "exceptions.view"
	PermExceptionsExport = "exceptions.export"
	PermVendorsView      = "vendors.view"
	PermPOSAuditView     = "posaudit.view"
	PermDashboardView    = "dashboard.view"
	PermCacheManage      = "cache.manage"
	PermRolesView        = "roles.view"
)

// ReportScopes lists every permission a report route can require.
func ReportScopes() []string {
	return []string{
		PermSalesView,
		PermInventoryView,
		PermCRMView,
		PermExceptionsView,
		PermExceptionsExport,
		PermVendorsView,
		PermPOSAuditView,
		PermDashboardView,
		PermCacheManage,
		PermRolesView,
	}
}
