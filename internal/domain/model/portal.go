package model

// Tenant is the government agency the portal is deployed for.
type Tenant struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	SupportEmail string `json:"supportEmail"`
	LogoURL      string `json:"logoUrl,omitempty"`
}

type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type LGA struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// AdminSession is the backend's answer to a successful admin login.
type AdminSession struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type DashboardStats struct {
	Registrations   int   `json:"totalRegistrations"`
	Migrations      int   `json:"totalMigrations"`
	Transfers       int   `json:"totalTransfers"`
	Renewals        int   `json:"totalRenewals"`
	PendingPayments int   `json:"pendingPayments"`
	Revenue         int64 `json:"revenue"`
}
