package database

import "database/sql"

// Repositories bundles every repository constructed against a shared
// pool, grounded on the teacher's repository-aggregator convention so
// service constructors take one struct instead of seven arguments.
type Repositories struct {
	Tenants      *TenantRepository
	Users        *UserRepository
	Documents    *DocumentRepository
	Signers      *SignerRepository
	ShareTokens  *ShareTokenRepository
	Otp          *OtpRepository
	Audit        *AuditRepository
	Certificates *CertificateRepository
}

// NewRepositories constructs every repository against db.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Tenants:      NewTenantRepository(db),
		Users:        NewUserRepository(db),
		Documents:    NewDocumentRepository(db),
		Signers:      NewSignerRepository(db),
		ShareTokens:  NewShareTokenRepository(db),
		Otp:          NewOtpRepository(db),
		Audit:        NewAuditRepository(db),
		Certificates: NewCertificateRepository(db),
	}
}
