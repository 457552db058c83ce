package wizard

import (
	"context"
	"log/slog"

	"github.com/NestNote/CradleLog/internal/models"
	"github.com/NestNote/CradleLog/internal/store"
)

// StoreSubmitter persists assembled wizard payloads to the record store. It is
// the production Submitter; tests use mocks.
type StoreSubmitter struct {
	st store.Store
}

// NewStoreSubmitter creates a submitter backed by the given store.
func NewStoreSubmitter(st store.Store) *StoreSubmitter {
	return &StoreSubmitter{st: st}
}

func (s *StoreSubmitter) SubmitFeeding(ctx context.Context, rec models.FeedingRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := s.st.AddFeeding(rec)
	if err != nil {
		slog.Error("StoreSubmitter.SubmitFeeding: store write failed", "child", rec.ChildID, "kind", rec.Kind, "error", err)
		return "", err
	}
	slog.Debug("StoreSubmitter.SubmitFeeding: stored", "id", id, "child", rec.ChildID, "kind", rec.Kind)
	return id, nil
}

func (s *StoreSubmitter) SubmitNap(ctx context.Context, rec models.NapRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := s.st.AddNap(rec)
	if err != nil {
		slog.Error("StoreSubmitter.SubmitNap: store write failed", "child", rec.ChildID, "error", err)
		return "", err
	}
	slog.Debug("StoreSubmitter.SubmitNap: stored", "id", id, "child", rec.ChildID)
	return id, nil
}

func (s *StoreSubmitter) SubmitSleep(ctx context.Context, rec models.SleepRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := s.st.AddSleep(rec)
	if err != nil {
		slog.Error("StoreSubmitter.SubmitSleep: store write failed", "child", rec.ChildID, "error", err)
		return "", err
	}
	slog.Debug("StoreSubmitter.SubmitSleep: stored", "id", id, "child", rec.ChildID)
	return id, nil
}
