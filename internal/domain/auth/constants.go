package auth

const (
	RoleAdmin     = "admin"
	RoleDean      = "dziekan"
	RoleLibrarian = "biblioteka"
	RoleLibrary   = "library"
)

const (
	PermFormFill        = "form.fill"
	PermCatalogEdit     = "catalog.edit"
	PermUsersManage     = "users.manage"
	PermResponsesReview = "responses.review"
	PermLibraryReview   = "library.review"
	PermReportsRead     = "reports.read"
)

// KnownRoles lists every role a profile may carry.
var KnownRoles = []string{RoleAdmin, RoleDean, RoleLibrarian, RoleLibrary}

// BasePermissions are held by every authenticated user, role or not.
var BasePermissions = []string{PermFormFill}

var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermCatalogEdit,
		PermUsersManage,
		PermResponsesReview,
		PermLibraryReview,
		PermReportsRead,
	},
	RoleDean: {
		PermResponsesReview,
		PermReportsRead,
	},
	RoleLibrarian: {
		PermLibraryReview,
		PermReportsRead,
	},
	RoleLibrary: {
		PermLibraryReview,
		PermReportsRead,
	},
}
