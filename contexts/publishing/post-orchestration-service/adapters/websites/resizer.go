package websites

import (
	"context"
	"fmt"

	"crosspost/contexts/publishing/post-orchestration-service/domain/entities"
	domainerrors "crosspost/contexts/publishing/post-orchestration-service/domain/errors"
	"crosspost/contexts/publishing/post-orchestration-service/ports"
)

// DimensionResizer scales file dimensions to fit a request while keeping the aspect ratio.
// Pixel work belongs to the file pipeline; this only rewrites the metadata handed to destinations.
type DimensionResizer struct{}

func (DimensionResizer) Resize(
	ctx context.Context,
	file entities.SubmissionFile,
	req entities.ResizeRequest,
) (entities.SubmissionFile, error) {
	if err := ctx.Err(); err != nil {
		return entities.SubmissionFile{}, err
	}
	// Dimensions cannot shrink the byte size here, so an oversized file fails the request.
	if req.MaxBytes > 0 && file.Size > req.MaxBytes {
		return entities.SubmissionFile{}, fmt.Errorf("%w: %s is %d bytes, limit %d",
			domainerrors.ErrFileTooLarge, file.ID, file.Size, req.MaxBytes)
	}
	if req.MaxWidth <= 0 && req.MaxHeight <= 0 {
		return file, nil
	}
	if file.Width <= 0 || file.Height <= 0 {
		return entities.SubmissionFile{}, domainerrors.ErrInvalidPostInput
	}
	width, height := file.Width, file.Height
	if req.MaxWidth > 0 && width > req.MaxWidth {
		height = height * req.MaxWidth / width
		width = req.MaxWidth
	}
	if req.MaxHeight > 0 && height > req.MaxHeight {
		width = width * req.MaxHeight / height
		height = req.MaxHeight
	}
	resized := file
	resized.Width = max(width, 1)
	resized.Height = max(height, 1)
	return resized, nil
}

var _ ports.FileResizer = DimensionResizer{}
