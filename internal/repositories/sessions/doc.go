// Package sessions is the local journal of asset upload sessions.
//
// Every state change of an upload is written here, so a run that crashed
// between reserve and commit leaves a record of the remote asset it
// created. ListUnfinished returns those records; the caller decides whether
// to commit them again or discard the remote asset.
//
// Typical usage:
//
//	db, _ := sessions.Open(ctx, "ascgate.db")
//	repo := sessions.NewSQLiteRepository(db)
//	pending, _ := repo.ListUnfinished(ctx)
package sessions
