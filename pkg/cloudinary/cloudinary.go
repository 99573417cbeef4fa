package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Avatar delivery sizes. Markers render the thumbnail; the profile card
// loads the full size.
const (
	FullWidth  = 800
	ThumbWidth = 200
)

// Client uploads avatar images and hands back CDN URLs.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (url, thumbnailURL string, err error)
}

// DeliveryURL builds a transformation URL for an already-uploaded public id
// with auto quality and format at the given width.
func DeliveryURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = FullWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

type uploadClient struct {
	cloudName string
	api       *uploader.API
}

var syncEager = false

// UploadImage pushes the image with an eager full-size transformation so the
// first map render never waits on on-the-fly resizing.
func (c *uploadClient) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (string, string, error) {
	result, err := c.api.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      fmt.Sprintf("q_auto,f_auto,w_%d,c_fill", FullWidth),
		EagerAsync: &syncEager,
	})
	if err != nil {
		return "", "", err
	}
	url := result.SecureURL
	thumb := DeliveryURL(c.cloudName, result.PublicID, ThumbWidth)
	if len(result.Eager) > 0 {
		url = result.Eager[0].SecureURL
	}
	return url, thumb, nil
}

func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	api, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &uploadClient{cloudName: cloudName, api: api}, nil
}
