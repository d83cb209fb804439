package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/images"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/services"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Services(db dbx.DBTX) services.Repository
	Images(db dbx.DBTX) images.Repository
}
