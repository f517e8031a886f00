package client

import (
	"context"

	"examia/internal/auth"
	"examia/internal/model"
	"examia/internal/replica"
	"examia/internal/service"
	"examia/internal/storage"
)

// local answers every operation from the replica, guarded by a locally configured gate.
type local struct {
	gate    *auth.Gate
	catalog service.CatalogService
	assets  service.AssetService
}

func newLocal(gate *auth.Gate, rep *replica.Manager, store storage.Storage) *local {
	return &local{
		gate:    gate,
		catalog: service.NewCatalogService(gate, rep),
		assets:  service.NewAssetService(gate, store),
	}
}

func (l *local) Login(_ context.Context, identity, secret string) (auth.Capability, error) {
	return l.gate.Login(identity, secret)
}

func (l *local) Query(ctx context.Context, f model.Filter) ([]model.Question, error) {
	return l.catalog.Query(ctx, f)
}

func (l *local) Insert(ctx context.Context, q model.Question, c auth.Capability) (string, error) {
	return l.catalog.Insert(ctx, q, c)
}

func (l *local) Delete(ctx context.Context, id string, c auth.Capability) error {
	return l.catalog.Delete(ctx, id, c)
}

func (l *local) Upload(ctx context.Context, req model.UploadRequest, c auth.Capability) (*model.ImageAsset, error) {
	return l.assets.Upload(ctx, req, c)
}
