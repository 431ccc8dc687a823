package postprocess

import (
	"github.com/docsight-ai/go-docscan/classes"
	"github.com/docsight-ai/go-docscan/common"
	"github.com/docsight-ai/go-docscan/preprocess"
)

// Project remaps kept candidates from padded model space into original
// image pixel space and resolves their labels, producing the public
// Detection type.
//
// Corner coordinates are unprojected through the letterbox geometry, which
// clamps them into the image bounds and rounds to integers. Boxes that end
// up with zero area after clamping (they lay entirely in the pad region)
// are kept but flagged through Meta.Reason rather than dropped silently.
//
// Arguments:
//   - candidates: Suppressed candidates in descending score order.
//   - lb: The letterbox geometry recorded during preparation.
//   - table: The class-name table resolving class ids to labels.
//
// Returns:
//   - []common.Detection: Detections in original image coordinates, with
//     Meta.Source set to SourceDetector.
func Project(
	candidates []Candidate,
	lb preprocess.Letterbox,
	table *classes.Table,
) []common.Detection {
	detections := make([]common.Detection, 0, len(candidates))

	for _, c := range candidates {
		x1, y1, x2, y2 := c.corners()
		box := lb.Unproject(x1, y1, x2, y2)

		meta := &common.DetectionMeta{Source: common.SourceDetector}
		if box.Area() == 0 {
			meta.Reason = "degenerate box after clamping to image bounds"
		}

		detections = append(detections, common.Detection{
			Label: table.Name(c.Class),
			Score: c.Score,
			Box:   box,
			Meta:  meta,
		})
	}

	return detections
}
