package httpx

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// TenantHeader scopes every request to one tenant.
const TenantHeader = "X-Tenant-ID"

// TenantID extracts and parses the tenant header.
func TenantID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(TenantHeader)
	if raw == "" {
		return uuid.Nil, errors.New("missing " + TenantHeader + " header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("malformed " + TenantHeader + " header")
	}
	return id, nil
}
