package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTenantRequired indicates the request carried no tenant identity.
	ErrTenantRequired = errors.New("tenant identity required")
)
