package rbac

import "github.com/retailhq/headoffice/internal/shared"

// Roles the API assigns to Head Office users.
const (
	RoleAdmin      = "admin"
	RoleManagement = "management"
	RoleFinance    = "finance"
	RolePurchase   = "purchase"
	RoleStore      = "store"
	RoleAuditor    = "auditor"
)

// Role is a role with the permissions it grants.
type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Policy maps a role name to the permissions it grants.
type Policy map[string][]string

// DefaultPolicy is the built in role table.
func DefaultPolicy() Policy {
	return Policy{
		RoleAdmin: shared.ReportScopes(),
		RoleManagement: {
			shared.PermSalesView, shared.PermInventoryView, shared.PermCRMView,
			shared.PermExceptionsView, shared.PermVendorsView, shared.PermPOSAuditView,
			shared.PermDashboardView,
		},
		RoleFinance: {
			shared.PermSalesView, shared.PermExceptionsView, shared.PermExceptionsExport,
			shared.PermVendorsView, shared.PermDashboardView,
		},
		RolePurchase: {shared.PermVendorsView, shared.PermInventoryView},
		RoleStore:    {shared.PermSalesView, shared.PermInventoryView, shared.PermCRMView, shared.PermPOSAuditView},
		RoleAuditor:  {shared.PermExceptionsView, shared.PermExceptionsExport, shared.PermPOSAuditView},
	}
}
