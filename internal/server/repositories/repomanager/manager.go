package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/compositions"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/keymappings"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/songs"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Compositions(db dbx.DBTX) compositions.Repository
	KeyMappings(db dbx.DBTX) keymappings.Repository
	Recordings(db dbx.DBTX) recordings.Repository
	Songs(db dbx.DBTX) songs.Repository
}
