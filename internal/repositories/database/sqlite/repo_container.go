package sqlite

import (
	"database/sql"

	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
)

func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:        NewUserRepository(db),
		RequisitionRepo: NewRequisitionRepository(db),
	}
}
