package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/leftoverchef/internal/dbx"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/leftoverchef/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Predictions(db dbx.DBTX) predictions.Repository
}
