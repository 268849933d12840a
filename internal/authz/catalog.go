package authz

import (
	"sort"
	"strings"
)

// ServiceActions is the permission catalog: every service and the actions
// it exposes. Codes take the form SERVICE.ACTION where the action part may
// itself contain dots.
var ServiceActions = map[string][]string{
	"SALES": {"READ", "CREATE", "UPDATE", "DELETE", "APPROVE", "FULFILL", "COMPLETE", "CANCEL", "EXPORT"},
	"PRINT": {"READ", "CREATE", "UPDATE", "DELETE", "START", "COMPLETE"},
	"ACC":   {"READ", "UPDATE", "APPROVE", "PAY", "EXPORT"},
	"INV":   {"READ", "ADJUST", "RECEIVE_PO"},
	"CAT":   {"READ", "CREATE", "MANAGE"},
	"PO":    {"READ", "CREATE", "RECEIVE", "CLOSE", "VENDOR.READ", "VENDOR.CREATE", "VENDOR.UPDATE", "VENDOR.ACTIVATE", "VENDOR.DEACTIVATE"},
	"RPR":   {"READ", "MANAGE"},
	"RPT":   {"READ"},
	"ADMIN": {"USER.MANAGE", "ROLE.MANAGE", "GROUP.MANAGE", "SETTINGS.MANAGE"},
}

// Services returns the catalog's service identifiers in sorted order.
func Services() []string {
	out := make([]string, 0, len(ServiceActions))
	for svc := range ServiceActions {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

// AllCodes returns every permission code in the catalog, sorted.
func AllCodes() []string {
	var out []string
	for svc, actions := range ServiceActions {
		for _, action := range actions {
			out = append(out, svc+"."+action)
		}
	}
	sort.Strings(out)
	return out
}

// ValidCode reports whether code names a catalog permission.
func ValidCode(code string) bool {
	svc, action, ok := strings.Cut(code, ".")
	if !ok || svc == "" || action == "" {
		return false
	}
	for _, known := range ServiceActions[svc] {
		if known == action {
			return true
		}
	}
	return false
}

// SplitCode breaks a catalog code into service and action parts.
func SplitCode(code string) (service, action string) {
	service, action, _ = strings.Cut(code, ".")
	return service, action
}

// RolePreset describes a role seeded at install time.
type RolePreset struct {
	Name        string
	Description string
	Kind        RoleKind
	Codes       []string
}

// RolePresets are the roles the seeder installs. The Owner preset carries
// no explicit codes; its superuser kind grants the whole catalog.
var RolePresets = []RolePreset{
	{
		Name:        "Seller",
		Description: "Sales counter staff",
		Kind:        RoleStandard,
		Codes: []string{
			"SALES.READ", "SALES.CREATE", "SALES.UPDATE", "SALES.CANCEL",
			"CAT.READ", "INV.READ",
		},
	},
	{
		Name:        "Printer",
		Description: "Print operators",
		Kind:        RoleStandard,
		Codes: []string{
			"PRINT.READ", "PRINT.CREATE", "PRINT.START", "PRINT.COMPLETE",
			"CAT.READ",
		},
	},
	{
		Name:        "Accounting",
		Description: "Ledger and payments",
		Kind:        RoleStandard,
		Codes: []string{
			"ACC.READ", "ACC.UPDATE", "ACC.APPROVE", "ACC.PAY", "ACC.EXPORT",
			"RPT.READ",
		},
	},
	{
		Name:        "Manager",
		Description: "Branch managers",
		Kind:        RoleStandard,
		Codes: []string{
			"SALES.READ", "SALES.CREATE", "SALES.UPDATE", "SALES.APPROVE",
			"SALES.FULFILL", "SALES.COMPLETE", "SALES.CANCEL", "SALES.EXPORT",
			"PRINT.READ", "PRINT.CREATE", "PRINT.START", "PRINT.COMPLETE",
			"ACC.READ", "ACC.APPROVE",
			"INV.READ", "INV.ADJUST", "INV.RECEIVE_PO",
			"CAT.READ", "CAT.CREATE", "CAT.MANAGE",
			"PO.READ", "PO.CREATE", "PO.RECEIVE", "PO.CLOSE",
			"PO.VENDOR.READ", "PO.VENDOR.CREATE", "PO.VENDOR.UPDATE",
			"PO.VENDOR.ACTIVATE", "PO.VENDOR.DEACTIVATE",
			"RPR.READ", "RPR.MANAGE",
			"RPT.READ",
		},
	},
	{
		Name:        "Owner",
		Description: "Full access",
		Kind:        RoleSuperuser,
	},
}
