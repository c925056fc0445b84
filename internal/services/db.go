package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withRowLock adds FOR UPDATE on dialects that support it. SQLite, used by
// the test suite, serializes writers on its own and rejects the syntax.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
