package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/labandina/internal/client/api"
)

// UploadMIDI attaches the MIDI file at path to a recording: the server
// hands out a presigned url and the file goes straight to the bucket.
func (a *App) UploadMIDI(ctx context.Context, recordingID, path string) error {
	if a.session == nil {
		return errNotLoggedIn
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("cannot read %s: %s", path, err.Error())
		return err
	}

	u, err := a.api.MIDIUploadURL(ctx, a.session.AccessToken, recordingID)
	if errors.Is(err, api.ErrUnauthorized) && a.session.RefreshToken != "" {
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		u, err = a.api.MIDIUploadURL(ctx, a.session.AccessToken, recordingID)
	}
	if err != nil {
		log.Printf("upload url request failed: %s", err.Error())
		return err
	}

	if err := a.api.UploadMIDI(ctx, u, data); err != nil {
		log.Printf("upload failed: %s", err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Uploaded %d bytes as %s\n", len(data), u.Key)
	return nil
}
