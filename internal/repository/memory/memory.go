package memory

import (
	"payments_ledger/internal/repository"
)

var (
	_ repository.ClientStateRepository = (*ClientStateRepository)(nil)
)
