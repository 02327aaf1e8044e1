package gemini

import (
	"context"

	"scene-swap/internal/asset"
)

type ExchangeIface interface {
	Exchange(ctx context.Context, scene, reference *asset.ImageAsset) (string, bool, error)
}
