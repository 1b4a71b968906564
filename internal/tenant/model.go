package tenant

import (
	"time"

	"github.com/okutsen/tenant-service/internal/geo"
)

// Tenant is a managed tenant record. The location is resolved from the ZIP
// code at create/update time and stored alongside the record.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Unit      string     `json:"unit,omitempty"`
	ZipCode   string     `json:"zipCode"`
	Location  geo.Result `json:"location"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
