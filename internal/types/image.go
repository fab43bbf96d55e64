package types

// ImageUploadedEvent is the payload of images.create_variants.
type ImageUploadedEvent struct {
	ImageID        int64  `json:"image_id"`
	ProductID      string `json:"product_id"`
	OriginalURL    string `json:"original_url" validate:"url"`
	OriginalKey    string `json:"original_key" validate:"min=1"`
	OriginalFormat string `json:"original_format"`
	OriginalWidth  int    `json:"original_width" validate:"gt=0"`
	OriginalHeight int    `json:"original_height" validate:"gt=0"`
}

// DecodeImageUploadedEvent strictly decodes an image job payload.
func DecodeImageUploadedEvent(data []byte) (*ImageUploadedEvent, error) {
	var ev ImageUploadedEvent
	if err := DecodeStrict("image uploaded event", data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ImageVariantResult describes one derived variant ready for storage and
// registration.
type ImageVariantResult struct {
	Variant    string `json:"variant"`
	StorageKey string `json:"storage_key"`
	Format     string `json:"format"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ByteSize   int    `json:"byte_size"`
}

// CreateVariantsResult is the return value of images.create_variants.
type CreateVariantsResult struct {
	ImageID         int64    `json:"image_id"`
	VariantsCreated []string `json:"variants_created"`
}

// EagerResult is one derived rendition reported by the transform service.
type EagerResult struct {
	URL    string
	Width  int
	Height int
}
