package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/images"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// ErrNoVariants is returned when the pipeline produced nothing to store.
var ErrNoVariants = errors.New("no variants created")

type VariantPipeline interface {
	Process(ctx context.Context, ev *types.ImageUploadedEvent) ([]images.Variant, error)
}

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type VariantRegistrar interface {
	RegisterVariant(ctx context.Context, imageID int64, v types.ImageVariantResult) error
}

// ImageVariantsProcessor handles images.create_variants: derive, upload
// every variant, then register every variant.
type ImageVariantsProcessor struct {
	pipeline  VariantPipeline
	store     ObjectStore
	registrar VariantRegistrar
}

func NewImageVariantsProcessor(pipeline VariantPipeline, store ObjectStore, registrar VariantRegistrar) *ImageVariantsProcessor {
	return &ImageVariantsProcessor{pipeline: pipeline, store: store, registrar: registrar}
}

func (p *ImageVariantsProcessor) TaskType() string         { return TaskTypeCreateVariants }
func (p *ImageVariantsProcessor) RetryPolicy() RetryPolicy { return ImageVariantsPolicy() }

func (p *ImageVariantsProcessor) Process(ctx context.Context, task *types.Task) *types.TaskResult {
	ev, err := types.DecodeImageUploadedEvent(task.Payload)
	if err != nil {
		return types.NewTaskFailure(err)
	}

	logger.Info(ctx, "creating image variants", logger.Fields{
		"image_id":   ev.ImageID,
		"product_id": ev.ProductID,
	})

	variants, err := p.pipeline.Process(ctx, ev)
	if err != nil {
		return types.NewTaskFailure(err)
	}
	if len(variants) == 0 {
		return types.NewTaskFailure(ErrNoVariants)
	}

	for _, v := range variants {
		if err := p.store.Put(ctx, v.Meta.StorageKey, v.Data, "image/"+v.Meta.Format); err != nil {
			return types.NewTaskFailure(fmt.Errorf("failed to upload variant %s: %w", v.Meta.Variant, err))
		}
	}

	created := make([]string, 0, len(variants))
	for _, v := range variants {
		if err := p.registrar.RegisterVariant(ctx, ev.ImageID, v.Meta); err != nil {
			return types.NewTaskFailure(fmt.Errorf("failed to register variant %s: %w", v.Meta.Variant, err))
		}
		created = append(created, v.Meta.Variant)
	}

	logger.Info(ctx, "image variants created", logger.Fields{
		"image_id": ev.ImageID,
		"variants": created,
	})
	return types.NewTaskSuccess(types.CreateVariantsResult{
		ImageID:         ev.ImageID,
		VariantsCreated: created,
	})
}
