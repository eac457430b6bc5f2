package shared

// Administration permissions checked by the HTTP layer.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
	// PermRolesAudit guards governance analytics and the audit trail.
	PermRolesAudit = "roles.audit"

	PermPermissionsView = "permissions.view"
)

// HR permissions granted through roles but enforced by the HR modules.
const (
	PermEmployeesView   = "employees.view"
	PermEmployeesEdit   = "employees.edit"
	PermLeaveView       = "leave.view"
	PermLeaveApprove    = "leave.approve"
	PermAttendanceView  = "attendance.view"
	PermViewReports     = "view_reports"
	PermManagePayroll   = "manage_payroll"
	PermPayslipsViewOwn = "payslips.view_own"
)

// CoreScopes lists the permissions the administration surface depends on.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermRolesAudit,
		PermPermissionsView,
	}
}

// HRScopes lists the HR module permissions seeded with the system roles.
func HRScopes() []string {
	return []string{
		PermEmployeesView,
		PermEmployeesEdit,
		PermLeaveView,
		PermLeaveApprove,
		PermAttendanceView,
		PermViewReports,
		PermManagePayroll,
		PermPayslipsViewOwn,
	}
}
