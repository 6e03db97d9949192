package rekognition

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"

	indexer "github.com/mediatrove/keyword-indexer"
)

const (
	defaultMaxLabels     = 20
	defaultMinConfidence = 50.0
)

// Client wraps the Rekognition DetectLabels API as the pipeline's label
// service.
type Client struct {
	svc           *rekognition.Rekognition
	maxLabels     int64
	minConfidence float64
}

func New(sess *session.Session) *Client {
	return &Client{
		svc:           rekognition.New(sess),
		maxLabels:     defaultMaxLabels,
		minConfidence: defaultMinConfidence,
	}
}

// DetectLabels sends raw image bytes and returns labels in the
// service's order (highest confidence first), with confidence scaled
// from Rekognition's [0, 100] down to [0, 1].
func (c *Client) DetectLabels(ctx context.Context, image []byte) ([]indexer.Label, error) {
	out, err := c.svc.DetectLabelsWithContext(ctx, &rekognition.DetectLabelsInput{
		Image: &rekognition.Image{
			Bytes: image,
		},
		MaxLabels:     aws.Int64(c.maxLabels),
		MinConfidence: aws.Float64(c.minConfidence),
	})
	if err != nil {
		return nil, err
	}

	labels := make([]indexer.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, indexer.Label{
			Description: aws.StringValue(l.Name),
			Confidence:  aws.Float64Value(l.Confidence) / 100,
		})
	}

	return labels, nil
}
