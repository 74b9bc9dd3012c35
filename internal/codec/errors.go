package codec

import (
	"fmt"

	"github.com/tasklens/tasklens/internal/domain"
)

func invalidImage(detail string) *domain.PipelineError {
	return domain.ErrInvalidImage(fmt.Sprintf("invalid base64 image data: %s", detail))
}
