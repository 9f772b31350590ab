package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const jsonContentType = "application/json"

// SnapshotPublisher writes JSON documents through a Driver and returns their public URL.
type SnapshotPublisher struct {
	Driver Driver
}

func NewSnapshotPublisher(driver Driver) *SnapshotPublisher {
	return &SnapshotPublisher{Driver: driver}
}

// PublishJSON stores v as JSON under key, replacing the previous version. The
// returned URL is empty when the driver cannot generate one.
func (p *SnapshotPublisher) PublishJSON(ctx context.Context, key string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := p.Driver.Save(ctx, key, bytes.NewReader(body), jsonContentType); err != nil {
		return "", fmt.Errorf("storage driver failed: %w", err)
	}

	// The stored object is the current snapshot; a missing link does not undo it.
	url, err := p.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		slog.WarnContext(ctx, "snapshot stored without a public URL", "key", key, "error", err)
		return "", nil
	}

	slog.DebugContext(ctx, "snapshot published", "key", key, "bytes", len(body))
	return url, nil
}

// ReadJSON decodes the object stored under key into v.
func (p *SnapshotPublisher) ReadJSON(ctx context.Context, key string, v any) error {
	reader, _, err := p.Driver.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return err
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return nil
}
