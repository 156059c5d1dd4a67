package models

// DefaultCatalog returns the selectable SCIM 2.0 compliance tests, one group per endpoint.
// Nothing is checked and every group is collapsed.
func DefaultCatalog() []TestGroup {
	return []TestGroup{
		{
			ID:   1,
			Name: "/ServiceProviderConfig",
			Sub: []TestCase{
				{Name: "GET /ServiceProviderConfig", StateName: "serviceProviderConfigGet"},
			},
		},
		{
			ID:   2,
			Name: "/Schemas",
			Sub: []TestCase{
				{Name: "GET /Schemas", StateName: "schemasGet"},
			},
		},
		{
			ID:   3,
			Name: "/ResourceTypes",
			Sub: []TestCase{
				{Name: "GET /ResourceTypes", StateName: "resourceTypesGet"},
			},
		},
		{
			ID:   4,
			Name: "/Users",
			Sub: []TestCase{
				{Name: "GET /Users", StateName: "userGet"},
				{Name: "GET /Users/{id}", StateName: "userGetById"},
				{Name: "POST /Users", StateName: "userPost"},
				{Name: "PUT /Users", StateName: "userPut"},
				{Name: "PATCH /Users", StateName: "userPatch"},
				{Name: "DELETE /Users", StateName: "userDelete"},
				{Name: "POST /Users/.search", StateName: "userSearch"},
			},
		},
		{
			ID:   5,
			Name: "/Groups",
			Sub: []TestCase{
				{Name: "GET /Groups", StateName: "groupGet"},
				{Name: "GET /Groups/{id}", StateName: "groupGetById"},
				{Name: "POST /Groups", StateName: "groupPost"},
				{Name: "PUT /Groups", StateName: "groupPut"},
				{Name: "PATCH /Groups", StateName: "groupPatch"},
				{Name: "DELETE /Groups", StateName: "groupDelete"},
				{Name: "POST /Groups/.search", StateName: "groupSearch"},
			},
		},
		{
			ID:   6,
			Name: "/Me",
			Sub: []TestCase{
				{Name: "GET /Me", StateName: "meGet"},
				{Name: "POST /Me", StateName: "mePost"},
				{Name: "PUT /Me", StateName: "mePut"},
				{Name: "PATCH /Me", StateName: "mePatch"},
				{Name: "DELETE /Me", StateName: "meDelete"},
			},
		},
		{
			ID:   7,
			Name: "/Bulk",
			Sub: []TestCase{
				{Name: "POST /Bulk", StateName: "bulkPost"},
				{Name: "PUT /Bulk", StateName: "bulkPut"},
				{Name: "PATCH /Bulk", StateName: "bulkPatch"},
				{Name: "DELETE /Bulk", StateName: "bulkDelete"},
			},
		},
		{
			ID:   8,
			Name: "/Roles",
			Sub: []TestCase{
				{Name: "GET /Roles", StateName: "rolesGet"},
				{Name: "GET /Roles/{id}", StateName: "rolesGetById"},
				{Name: "POST /Roles", StateName: "rolesPost"},
				{Name: "PUT /Roles", StateName: "rolesPut"},
				{Name: "PATCH /Roles", StateName: "rolesPatch"},
				{Name: "DELETE /Roles", StateName: "rolesDelete"},
				{Name: "POST /Roles/.search", StateName: "rolesSearch"},
			},
		},
	}
}

// NewDefaultSelectionTree returns a tree over DefaultCatalog
func NewDefaultSelectionTree() SelectionTree {
	t, err := NewSelectionTree(DefaultCatalog())
	if err != nil {
		// The catalog is static; a failure here is a programming error
		panic(err)
	}
	return t
}
