package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/repositories/sessions"
	"github.com/dmitrijs2005/ascgate/internal/source"
	"github.com/dmitrijs2005/ascgate/internal/upload"
	"github.com/spf13/cobra"
)

type sessionView struct {
	AssetID  string `json:"assetId"`
	Kind     string `json:"kind"`
	ParentID string `json:"parentId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Parts    int    `json:"parts"`
	Checksum string `json:"checksum,omitempty"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

func viewOf(s *upload.Session) sessionView {
	v := sessionView{
		AssetID:  s.AssetID,
		Kind:     s.Kind.Name,
		ParentID: s.ParentID,
		FileName: s.FileName,
		FileSize: s.FileSize,
		Parts:    len(s.Operations),
		Checksum: s.Checksum,
		State:    string(s.State),
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

func (a *App) uploadCommand() *cobra.Command {
	var (
		kindName     string
		parentID     string
		localization string
		displayType  string
		fileName     string
	)

	cmd := &cobra.Command{
		Use:   "upload <file|s3://bucket/key>",
		Short: "Reserve, transfer and commit an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			creds := a.config.Credentials()

			kind, err := upload.KindByName(kindName)
			if err != nil {
				return fmt.Errorf("%w: %w", common.ErrConfiguration, err)
			}

			if parentID == "" {
				if localization == "" || displayType == "" {
					return fmt.Errorf("%w: give --parent, or --localization with --display-type", common.ErrConfiguration)
				}
				parentID, _, err = a.pipeline.FindOrCreateSet(ctx, creds, kind, localization, displayType)
				if err != nil {
					return err
				}
			}

			var s3 source.S3API
			if _, _, perr := source.ParseS3URI(args[0]); perr == nil {
				if s3, err = a.newS3(ctx, a.config.S3()); err != nil {
					return err
				}
			}
			src, err := source.Open(ctx, args[0], s3)
			if err != nil {
				return fmt.Errorf("%w: open %s: %w", common.ErrConfiguration, args[0], err)
			}
			defer src.Close()

			if fileName == "" {
				fileName = src.Name()
			}

			start := time.Now()
			session, err := a.pipeline.Upload(ctx, creds, upload.ReserveRequest{
				Kind:     kind,
				ParentID: parentID,
				FileName: fileName,
				FileSize: src.Size(),
			}, src)
			if session != nil {
				if perr := a.printJSON(viewOf(session)); perr != nil {
					return errors.Join(err, perr)
				}
			}
			if err != nil {
				return err
			}
			a.logger.Info(ctx, "upload finished", "asset_id", session.AssetID, "elapsed", time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", upload.Screenshot.Name, "screenshot, preview or review-attachment")
	cmd.Flags().StringVar(&parentID, "parent", "", "id of the set or review detail to upload into")
	cmd.Flags().StringVar(&localization, "localization", "", "version localization id, to find or create the set")
	cmd.Flags().StringVar(&displayType, "display-type", "", "display or preview type of the set, e.g. APP_IPHONE_67")
	cmd.Flags().StringVar(&fileName, "name", "", "file name to report, defaults to the source's base name")
	return cmd
}

func (a *App) sessionsCommand() *cobra.Command {
	var prune time.Duration

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List journalled uploads that never committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.journal == nil {
				return fmt.Errorf("%w: sessions needs --journal", common.ErrConfiguration)
			}
			if prune > 0 {
				ids, err := sessions.Prune(cmd.Context(), a.db, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				a.logger.Info(cmd.Context(), "pruned committed sessions", "count", len(ids))
			}

			records, err := a.journal.ListUnfinished(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]sessionView, 0, len(records))
			for _, r := range records {
				views = append(views, sessionView{
					AssetID:  r.AssetID,
					Kind:     r.Kind,
					ParentID: r.ParentID,
					FileName: r.FileName,
					FileSize: r.FileSize,
					Checksum: r.Checksum,
					State:    r.State,
					Error:    r.Error,
				})
			}
			return a.printJSON(views)
		},
	}
	cmd.Flags().DurationVar(&prune, "prune", 0, "first delete committed sessions older than this")
	return cmd
}

func (a *App) commitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <asset-id>",
		Short: "Retry the commit of a journalled upload whose parts were all sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.journal == nil {
				return fmt.Errorf("%w: commit needs --journal", common.ErrConfiguration)
			}

			rec, err := a.journal.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("commit %s: %w", args[0], err)
			}
			session, err := upload.SessionFromRecord(rec)
			if err != nil {
				return fmt.Errorf("%w: %w", common.ErrConfiguration, err)
			}
			if !session.Transferred() {
				return fmt.Errorf("%w: asset %s was not fully transferred, discard it and upload again", common.ErrInvalidState, session.AssetID)
			}

			err = a.pipeline.Commit(ctx, a.config.Credentials(), session)
			if perr := a.printJSON(viewOf(session)); perr != nil {
				return errors.Join(err, perr)
			}
			return err
		},
	}
}

func (a *App) discardCommand() *cobra.Command {
	var kindName string

	cmd := &cobra.Command{
		Use:   "discard <asset-id>",
		Short: "Delete an uploaded asset and forget its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID := args[0]

			// the journal knows the kind of assets it recorded
			if !cmd.Flags().Changed("kind") && a.journal != nil {
				rec, err := a.journal.Get(ctx, assetID)
				switch {
				case err == nil:
					kindName = rec.Kind
				case !errors.Is(err, common.ErrorNotFound):
					return err
				}
			}

			kind, err := upload.KindByName(kindName)
			if err != nil {
				return fmt.Errorf("%w: %w", common.ErrConfiguration, err)
			}
			if err := a.pipeline.Discard(ctx, a.config.Credentials(), kind, assetID); err != nil {
				return err
			}
			return a.printJSON(map[string]string{"assetId": assetID, "state": "discarded"})
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", upload.Screenshot.Name, "asset kind, read from the journal when known")
	return cmd
}
